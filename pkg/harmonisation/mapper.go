// Package harmonisation projects a vendor's raw rows into the shared ledger.
package harmonisation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

const amountPlaces = 2

// Map builds one harmonised record per raw row. Reps without both rates keep
// NULL commission amounts and are reported once each as a configuration gap.
// The output does not depend on the order of rows or rates.
func Map(vendor vendors.Vendor, rows []models.RawSaleRow, rates []models.CommissionRate) ([]models.HarmonisedRecord, []apperrors.ConfigurationGap) {
	byRep := make(map[string]models.CommissionRate, len(rates))
	for _, r := range rates {
		byRep[r.SalesRep] = r
	}

	records := make([]models.HarmonisedRecord, 0, len(rows))
	gapReps := map[string]struct{}{}
	for _, row := range rows {
		rate, ok := byRep[row.SalesRep]
		if !ok || !rate.Tier1Rate.Valid || !rate.Tier2Rate.Valid {
			gapReps[row.SalesRep] = struct{}{}
		}
		tier1, tier2Diff := Amounts(row.Paid, rate)

		records = append(records, models.HarmonisedRecord{
			Date:          row.Period().String(),
			Month:         row.Month,
			Year:          row.Year,
			SalesRep:      row.SalesRep,
			SalesActual:   row.Invoiced,
			RevActual:     row.Paid,
			ProductLine:   vendor.ProductLine,
			DataSource:    vendor.DataSource,
			RowHash:       row.RowHash,
			CommTier1:     tier1,
			CommTier2Diff: tier2Diff,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.SalesRep != b.SalesRep {
			return a.SalesRep < b.SalesRep
		}
		if a.RowHash != b.RowHash {
			return a.RowHash < b.RowHash
		}
		return a.RevActual < b.RevActual
	})

	gaps := make([]apperrors.ConfigurationGap, 0, len(gapReps))
	for rep := range gapReps {
		gaps = append(gaps, apperrors.ConfigurationGap{Kind: apperrors.GapCommissionRate, SalesRep: rep, ProductLine: vendor.ProductLine})
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].SalesRep < gaps[j].SalesRep })

	return records, gaps
}

// Amounts computes paid x tier1 and paid x tier2 - paid x tier1, each rounded
// to cents. A missing rate makes the dependent amount NULL. Unparseable paid
// values count as zero.
func Amounts(paid string, rate models.CommissionRate) (tier1 decimal.NullDecimal, tier2Diff decimal.NullDecimal) {
	amount, _ := models.ParseAmount(paid)

	if rate.Tier1Rate.Valid {
		tier1 = decimal.NewNullDecimal(amount.Mul(rate.Tier1Rate.Decimal).Round(amountPlaces))
	}
	if rate.Tier1Rate.Valid && rate.Tier2Rate.Valid {
		diff := amount.Mul(rate.Tier2Rate.Decimal).Sub(amount.Mul(rate.Tier1Rate.Decimal))
		tier2Diff = decimal.NewNullDecimal(diff.Round(amountPlaces))
	}
	return tier1, tier2Diff
}
