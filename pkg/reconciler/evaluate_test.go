package reconciler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func rec(rep string, year, month int, sales string) models.HarmonisedRecord {
	return models.HarmonisedRecord{SalesRep: rep, Year: year, Month: month, SalesActual: sales, ProductLine: "Novo", DataSource: "master_novo_sales"}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestEvaluate(t *testing.T) {
	key := models.GroupKey{SalesRep: "A", Year: 2024}
	tests := []struct {
		name        string
		records     []models.HarmonisedRecord
		threshold   *decimal.Decimal
		wantReached bool
		wantDate    string
		wantMonth   int
		unparseable int
	}{
		{
			name:        "crosses in march",
			records:     []models.HarmonisedRecord{rec("A", 2024, 1, "3000"), rec("A", 2024, 2, "4000"), rec("A", 2024, 3, "5000")},
			threshold:   dec("10000"),
			wantReached: true, wantDate: "2024-03", wantMonth: 3,
		},
		{
			name:        "input order does not matter",
			records:     []models.HarmonisedRecord{rec("A", 2024, 3, "5000"), rec("A", 2024, 1, "3000"), rec("A", 2024, 2, "4000")},
			threshold:   dec("10000"),
			wantReached: true, wantDate: "2024-03", wantMonth: 3,
		},
		{
			name:        "exactly equal counts as reached",
			records:     []models.HarmonisedRecord{rec("A", 2024, 1, "6000"), rec("A", 2024, 2, "4000")},
			threshold:   dec("10000"),
			wantReached: true, wantDate: "2024-02", wantMonth: 2,
		},
		{
			name:      "never reached",
			records:   []models.HarmonisedRecord{rec("A", 2024, 1, "100"), rec("A", 2024, 2, "200")},
			threshold: dec("10000"),
		},
		{
			name:        "unparseable values count as zero",
			records:     []models.HarmonisedRecord{rec("A", 2024, 1, "9000"), rec("A", 2024, 2, "oops"), rec("A", 2024, 3, "1000")},
			threshold:   dec("10000"),
			wantReached: true, wantDate: "2024-03", wantMonth: 3,
			unparseable: 1,
		},
		{
			name:        "zero threshold reached in first month",
			records:     []models.HarmonisedRecord{rec("A", 2024, 4, "0"), rec("A", 2024, 6, "1")},
			threshold:   dec("0"),
			wantReached: true, wantDate: "2024-04", wantMonth: 4,
		},
		{
			name:    "no threshold configured",
			records: []models.HarmonisedRecord{rec("A", 2024, 1, "999999")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(Group{Key: key, Records: tt.records}, tt.threshold)
			assert.Equal(t, tt.threshold != nil, out.Configured)
			assert.Equal(t, tt.wantReached, out.Reached)
			assert.Equal(t, tt.unparseable, out.Unparseable)
			if tt.wantReached {
				require.NotNil(t, out.Date)
				assert.Equal(t, tt.wantDate, *out.Date)
				assert.Equal(t, tt.wantMonth, out.Month)
			} else {
				assert.Nil(t, out.Date)
			}
		})
	}
}

func TestEvaluate_SameMonthRowsShareCrossing(t *testing.T) {
	records := []models.HarmonisedRecord{
		rec("A", 2024, 1, "1000"),
		rec("A", 2024, 2, "500"),
		rec("A", 2024, 2, "9000"),
		rec("A", 2024, 2, "1"),
	}
	out := Evaluate(Group{Key: models.GroupKey{SalesRep: "A", Year: 2024}, Records: records}, dec("10000"))
	require.True(t, out.Reached)
	assert.Equal(t, 2, out.Month)
}

func TestGroupRecords(t *testing.T) {
	groups := GroupRecords([]models.HarmonisedRecord{
		rec("B", 2024, 1, "1"),
		rec("A", 2024, 1, "1"),
		rec("A", 2023, 5, "1"),
		rec("A", 2024, 2, "1"),
	})
	require.Len(t, groups, 3)
	assert.Equal(t, models.GroupKey{SalesRep: "A", Year: 2023}, groups[0].Key)
	assert.Equal(t, models.GroupKey{SalesRep: "A", Year: 2024}, groups[1].Key)
	assert.Len(t, groups[1].Records, 2)
	assert.Equal(t, "B", groups[2].Key.SalesRep)
}

func TestStartDate(t *testing.T) {
	assert.Equal(t, "2024-03", StartDate(2024, 3))
	assert.Equal(t, "2024-12", StartDate(2024, 12))
}
