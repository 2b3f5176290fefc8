package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/utils"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

// columnIndex matches headers case-insensitively; the reference tables
// disagree on "Sales Rep Name" versus "Sales Rep name".
func columnIndex(t vendors.Table, names ...string) (map[string]int, []string) {
	index := make(map[string]int, len(names))
	var missing []string
	for _, name := range names {
		found := false
		for i, c := range t.Columns {
			if strings.EqualFold(strings.TrimSpace(c), name) {
				index[name] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return index, missing
}

func value(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func optionalRate(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%q is not a number", s)
	}
	return decimal.NewNullDecimal(d), nil
}

// CommissionRates reads a sales_rep_commission_tier sheet.
func CommissionRates(t vendors.Table) ([]models.CommissionRate, []string) {
	index, missing := columnIndex(t, models.ColumnTierSalesRepName, models.ColumnTier1Rate, models.ColumnTier2Rate)
	if len(missing) > 0 {
		return nil, []string{"missing columns: " + strings.Join(missing, ", ")}
	}

	var problems []string
	var rates []models.CommissionRate
	seen := map[string]int{}
	for n, row := range t.Rows {
		if blank(row) {
			continue
		}
		line := n + 2

		t1, err := optionalRate(value(row, index[models.ColumnTier1Rate]))
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %s %v", line, models.ColumnTier1Rate, err))
		}
		t2, err := optionalRate(value(row, index[models.ColumnTier2Rate]))
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %s %v", line, models.ColumnTier2Rate, err))
		}

		rate := models.CommissionRate{SalesRep: value(row, index[models.ColumnTierSalesRepName]), Tier1Rate: t1, Tier2Rate: t2}
		if first, ok := seen[rate.SalesRep]; ok && rate.SalesRep != "" {
			problems = append(problems, fmt.Sprintf("row %d: sales rep %q already listed on row %d", line, rate.SalesRep, first))
		}
		seen[rate.SalesRep] = line
		for _, p := range utils.Problems(rate) {
			problems = append(problems, fmt.Sprintf("row %d: %s", line, p))
		}
		rates = append(rates, rate)
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return rates, nil
}

// Thresholds reads a sales_rep_commission_tier_threshold sheet.
func Thresholds(t vendors.Table) ([]models.Threshold, []string) {
	index, missing := columnIndex(t, models.ColumnThresholdSalesRep, models.ColumnThresholdYear, models.ColumnThresholdProduct, models.ColumnThresholdValue)
	if len(missing) > 0 {
		return nil, []string{"missing columns: " + strings.Join(missing, ", ")}
	}

	var problems []string
	var thresholds []models.Threshold
	seen := map[string]int{}
	for n, row := range t.Rows {
		if blank(row) {
			continue
		}
		line := n + 2
		before := len(problems)

		year, err := decimal.NewFromString(value(row, index[models.ColumnThresholdYear]))
		if err != nil || !year.IsInteger() {
			problems = append(problems, fmt.Sprintf("row %d: %s %q is not a whole number", line, models.ColumnThresholdYear, value(row, index[models.ColumnThresholdYear])))
		}
		amount, err := decimal.NewFromString(value(row, index[models.ColumnThresholdValue]))
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %s %q is not a number", line, models.ColumnThresholdValue, value(row, index[models.ColumnThresholdValue])))
		}
		if len(problems) > before {
			continue
		}

		th := models.Threshold{
			SalesRep:    value(row, index[models.ColumnThresholdSalesRep]),
			Year:        int(year.IntPart()),
			ProductLine: value(row, index[models.ColumnThresholdProduct]),
			Threshold:   amount,
		}
		for _, p := range utils.Problems(th) {
			problems = append(problems, fmt.Sprintf("row %d: %s", line, p))
		}
		key := fmt.Sprintf("%s|%d|%s", th.SalesRep, th.Year, th.ProductLine)
		if first, ok := seen[key]; ok {
			problems = append(problems, fmt.Sprintf("row %d: threshold for %q %d %q already listed on row %d", line, th.SalesRep, th.Year, th.ProductLine, first))
		}
		seen[key] = line
		thresholds = append(thresholds, th)
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return thresholds, nil
}
