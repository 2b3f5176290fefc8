package harmonisation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/commissiontier"
	"github.com/Ramsey-B/clover/internal/repositories/harmonised"
	"github.com/Ramsey-B/clover/internal/repositories/rawsale"
	"github.com/Ramsey-B/clover/internal/testutil"
	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

type failingRates struct{}

func (failingRates) ListAll(context.Context) ([]models.CommissionRate, error) {
	return nil, errors.New("connection refused")
}

func TestService_Harmonise(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	logger := testutil.Logger()
	raw := rawsale.NewRepository(db, logger)
	tiers := commissiontier.NewRepository(db, logger)
	ledger := harmonised.NewRepository(db, logger)
	svc := NewService(raw, tiers, ledger, logger)

	_, err := tiers.Upsert(ctx, []models.CommissionRate{rates("Jane", "0.05", "0.08")})
	require.NoError(t, err)
	_, err = raw.ReplacePeriod(ctx, ternio(), []models.RawSaleRow{
		rawRow(1, "A", "Jane", "100", "100"),
		rawRow(1, "B", "Ghost", "100", "100"),
	})
	require.NoError(t, err)

	// A row of another data source in the same product line must survive.
	other := vendors.Vendor{Name: "other", Table: "other_sales", ProductLine: "Miscellaneous", DataSource: "other_sales"}
	_, err = ledger.ReplaceScope(ctx, other.ProductLine, other.DataSource, []models.HarmonisedRecord{
		{Date: "2024-01", Month: 1, Year: 2024, SalesRep: "Jane", ProductLine: "Miscellaneous", DataSource: "other_sales", RowHash: "x"},
	})
	require.NoError(t, err)

	res, err := svc.Harmonise(ctx, ternio())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
	assert.EqualValues(t, 2, res.Inserted)
	require.Len(t, res.Gaps, 1)
	assert.Equal(t, "Ghost", res.Gaps[0].SalesRep)

	// Running again converges on the same ledger.
	before, err := ledger.ListByProductLine(ctx, "Miscellaneous")
	require.NoError(t, err)
	res, err = svc.Harmonise(ctx, ternio())
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Deleted)
	after, err := ledger.ListByProductLine(ctx, "Miscellaneous")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, after, 3)
}

func TestService_HarmoniseReportsStage(t *testing.T) {
	db := testutil.NewDB(t)
	logger := testutil.Logger()
	svc := NewService(rawsale.NewRepository(db, logger), failingRates{}, harmonised.NewRepository(db, logger), logger)

	_, err := svc.Harmonise(context.Background(), ternio())
	var pe *apperrors.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "harmonise", pe.Stage)
}
