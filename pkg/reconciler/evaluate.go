// Package reconciler derives each rep's yearly tier 2 start date from
// cumulative sales and writes it back to the harmonised ledger.
package reconciler

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Group is every ledger row of one sales rep in one year of a product line.
type Group struct {
	Key     models.GroupKey
	Records []models.HarmonisedRecord
}

// Outcome is the evaluation of one group against its threshold.
type Outcome struct {
	Configured  bool
	Reached     bool
	Month       int
	Date        *string
	Total       decimal.Decimal
	Unparseable int
}

// Evaluate sums Sales Actual in month order and finds the first month where
// the running total meets threshold. A nil threshold means no configuration.
// Values that do not parse as decimals count as zero.
func Evaluate(group Group, threshold *decimal.Decimal) Outcome {
	records := append([]models.HarmonisedRecord(nil), group.Records...)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Month < records[j].Month })

	out := Outcome{Configured: threshold != nil, Total: decimal.Zero}
	for _, rec := range records {
		amount, ok := models.ParseAmount(rec.SalesActual)
		if !ok {
			out.Unparseable++
		}
		out.Total = out.Total.Add(amount)

		if threshold != nil && !out.Reached && out.Total.GreaterThanOrEqual(*threshold) {
			out.Reached = true
			out.Month = rec.Month
			date := StartDate(group.Key.Year, rec.Month)
			out.Date = &date
		}
	}
	return out
}

// StartDate formats a tier 2 start date.
func StartDate(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// GroupRecords splits records by (sales rep, year). Groups are ordered by rep then year.
func GroupRecords(records []models.HarmonisedRecord) []Group {
	index := map[models.GroupKey]int{}
	var groups []Group
	for _, rec := range records {
		key := models.GroupKey{SalesRep: rec.SalesRep, Year: rec.Year}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Key.SalesRep != groups[j].Key.SalesRep {
			return groups[i].Key.SalesRep < groups[j].Key.SalesRep
		}
		return groups[i].Key.Year < groups[j].Key.Year
	})
	return groups
}

// storedDate is the tier 2 date currently on the group, nil when none is set.
func storedDate(group Group) *string {
	var earliest *string
	for _, rec := range group.Records {
		if rec.Tier2Date == nil {
			continue
		}
		if earliest == nil || *rec.Tier2Date < *earliest {
			d := *rec.Tier2Date
			earliest = &d
		}
	}
	return earliest
}

func sameDate(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
