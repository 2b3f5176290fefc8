package harmonisation

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

func ternio() vendors.Vendor {
	v, _ := vendors.Default().Get("ternio")
	return v
}

func rawRow(month int, num, rep, invoiced, paid string) models.RawSaleRow {
	r := models.RawSaleRow{Year: 2024, Month: month, Num: num, Memo: "m", Invoiced: invoiced, Paid: paid, SalesRep: rep}
	r.RowHash = fingerprint.ForRow(r)
	return r
}

func rates(rep, t1, t2 string) models.CommissionRate {
	return models.CommissionRate{
		SalesRep:  rep,
		Tier1Rate: decimal.NewNullDecimal(decimal.RequireFromString(t1)),
		Tier2Rate: decimal.NewNullDecimal(decimal.RequireFromString(t2)),
	}
}

func TestMap_ProjectsFields(t *testing.T) {
	row := rawRow(3, "INV-1", "Jane", "1500.00", "1000.00")
	records, gaps := Map(ternio(), []models.RawSaleRow{row}, []models.CommissionRate{rates("Jane", "0.05", "0.08")})

	require.Empty(t, gaps)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "2024-03", rec.Date)
	assert.Equal(t, 3, rec.Month)
	assert.Equal(t, 2024, rec.Year)
	assert.Equal(t, "Jane", rec.SalesRep)
	assert.Equal(t, "1500.00", rec.SalesActual)
	assert.Equal(t, "1000.00", rec.RevActual)
	assert.Equal(t, "Miscellaneous", rec.ProductLine)
	assert.Equal(t, "master_ternio_sales", rec.DataSource)
	assert.Equal(t, row.RowHash, rec.RowHash)
	assert.Equal(t, "50", rec.CommTier1.Decimal.String())
	assert.Equal(t, "30", rec.CommTier2Diff.Decimal.String())
	assert.Nil(t, rec.Tier2Date)
}

func TestAmounts_Rounding(t *testing.T) {
	tests := []struct {
		name      string
		paid      string
		t1, t2    string
		wantTier1 string
		wantDiff  string
	}{
		{name: "half up", paid: "10.05", t1: "0.5", t2: "0.5", wantTier1: "5.03", wantDiff: "0"},
		{name: "negative half away from zero", paid: "-10.05", t1: "0.5", t2: "0.5", wantTier1: "-5.03", wantDiff: "0"},
		{name: "diff rounded after subtraction", paid: "333.33", t1: "0.0333", t2: "0.0667", wantTier1: "11.1", wantDiff: "11.13"},
		{name: "unparseable paid is zero", paid: "n/a", t1: "0.05", t2: "0.08", wantTier1: "0", wantDiff: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier1, diff := Amounts(tt.paid, rates("x", tt.t1, tt.t2))
			require.True(t, tier1.Valid)
			require.True(t, diff.Valid)
			assert.True(t, decimal.RequireFromString(tt.wantTier1).Equal(tier1.Decimal), "tier1 %s", tier1.Decimal)
			assert.True(t, decimal.RequireFromString(tt.wantDiff).Equal(diff.Decimal), "diff %s", diff.Decimal)
		})
	}
}

func TestMap_UnmatchedRepKeepsNullAmounts(t *testing.T) {
	rows := []models.RawSaleRow{
		rawRow(1, "A", "Ghost", "100", "100"),
		rawRow(2, "B", "Ghost", "100", "100"),
		rawRow(1, "C", "Jane", "100", "100"),
	}
	records, gaps := Map(ternio(), rows, []models.CommissionRate{rates("Jane", "0.1", "0.2")})

	require.Len(t, records, 3)
	for _, rec := range records {
		if rec.SalesRep == "Ghost" {
			assert.False(t, rec.CommTier1.Valid)
			assert.False(t, rec.CommTier2Diff.Valid)
		} else {
			assert.True(t, rec.CommTier1.Valid)
		}
	}
	require.Len(t, gaps, 1)
	assert.Equal(t, apperrors.ConfigurationGap{Kind: apperrors.GapCommissionRate, SalesRep: "Ghost", ProductLine: "Miscellaneous"}, gaps[0])
}

func TestMap_PartialRates(t *testing.T) {
	rate := models.CommissionRate{SalesRep: "Jane", Tier1Rate: decimal.NewNullDecimal(decimal.RequireFromString("0.1"))}
	records, gaps := Map(ternio(), []models.RawSaleRow{rawRow(1, "A", "Jane", "100", "100")}, []models.CommissionRate{rate})

	assert.True(t, records[0].CommTier1.Valid)
	assert.False(t, records[0].CommTier2Diff.Valid)
	assert.Len(t, gaps, 1)
}

func TestMap_OrderIndependent(t *testing.T) {
	rows := []models.RawSaleRow{
		rawRow(1, "A", "Jane", "100", "100"),
		rawRow(2, "B", "John", "200", "150"),
		rawRow(1, "C", "John", "300", "300"),
		rawRow(3, "D", "Ann", "400", "x"),
		rawRow(2, "E", "Jane", "500", "500"),
	}
	rateTable := []models.CommissionRate{rates("Jane", "0.05", "0.08"), rates("John", "0.04", "0.06")}
	want, wantGaps := Map(ternio(), rows, rateTable)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]models.RawSaleRow{}, rows...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		shuffledRates := []models.CommissionRate{rateTable[1], rateTable[0]}

		got, gotGaps := Map(ternio(), shuffled, shuffledRates)
		assert.Equal(t, want, got)
		assert.Equal(t, wantGaps, gotGaps)
	}
}

func TestMap_OneRecordPerRow(t *testing.T) {
	row := rawRow(1, "A", "Jane", "100", "100")
	records, _ := Map(ternio(), []models.RawSaleRow{row, row}, nil)
	assert.Len(t, records, 2)
}
