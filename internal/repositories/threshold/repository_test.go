package threshold

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/testutil"
	"github.com/Ramsey-B/clover/pkg/models"
)

func TestUpsertAndListByProductLine(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testutil.NewDB(t), testutil.Logger())

	_, err := repo.Upsert(ctx, []models.Threshold{
		{SalesRep: "Jane", Year: 2024, ProductLine: "Novo", Threshold: decimal.NewFromInt(10000)},
		{SalesRep: "Jane", Year: 2023, ProductLine: "Novo", Threshold: decimal.NewFromInt(8000)},
		{SalesRep: "Jane", Year: 2024, ProductLine: "Miscellaneous", Threshold: decimal.NewFromInt(500)},
	})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, []models.Threshold{
		{SalesRep: "Jane", Year: 2024, ProductLine: "Novo", Threshold: decimal.RequireFromString("12000.50")},
	})
	require.NoError(t, err)

	novo, err := repo.ListByProductLine(ctx, "Novo")
	require.NoError(t, err)
	require.Len(t, novo, 2)
	assert.Equal(t, 2023, novo[0].Year)
	assert.True(t, decimal.RequireFromString("12000.50").Equal(novo[1].Threshold))

	misc, err := repo.ListByProductLine(ctx, "Miscellaneous")
	require.NoError(t, err)
	assert.Len(t, misc, 1)
}
