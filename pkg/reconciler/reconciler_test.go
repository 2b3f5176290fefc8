package reconciler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/harmonised"
	"github.com/Ramsey-B/clover/internal/repositories/threshold"
	"github.com/Ramsey-B/clover/internal/testutil"
	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/models"
)

type recordingPublisher struct {
	published []Notification
}

func (p *recordingPublisher) PublishTier2Reached(_ context.Context, n Notification) error {
	p.published = append(p.published, n)
	return nil
}

type fixture struct {
	ledger     *harmonised.Repository
	thresholds *threshold.Repository
	publisher  *recordingPublisher
	reconciler *Reconciler
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	logger := testutil.Logger()
	f := &fixture{
		ledger:     harmonised.NewRepository(db, logger),
		thresholds: threshold.NewRepository(db, logger),
		publisher:  &recordingPublisher{},
	}
	f.reconciler = NewReconciler(f.thresholds, f.ledger, f.publisher, logger)
	return f
}

func (f *fixture) load(t *testing.T, productLine string, records ...models.HarmonisedRecord) {
	for i := range records {
		records[i].ProductLine = productLine
		records[i].DataSource = "master_novo_sales"
		records[i].Date = StartDate(records[i].Year, records[i].Month)
		records[i].RowHash = fmt.Sprintf("%s-%d-%d-%d", records[i].SalesRep, records[i].Year, records[i].Month, i)
	}
	_, err := f.ledger.ReplaceScope(context.Background(), productLine, "master_novo_sales", records)
	require.NoError(t, err)
}

func (f *fixture) setThreshold(t *testing.T, rep string, year int, productLine, value string) {
	_, err := f.thresholds.Upsert(context.Background(), []models.Threshold{
		{SalesRep: rep, Year: year, ProductLine: productLine, Threshold: decimal.RequireFromString(value)},
	})
	require.NoError(t, err)
}

func (f *fixture) dates(t *testing.T, productLine, rep string) map[int]*string {
	records, err := f.ledger.ListFiltered(context.Background(), harmonised.Filter{ProductLine: productLine, SalesReps: []string{rep}})
	require.NoError(t, err)
	out := map[int]*string{}
	for _, r := range records {
		out[r.Month] = r.Tier2Date
	}
	return out
}

func TestReconcile_ThresholdCrossing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.load(t, "Novo", rec("A", 2024, 1, "3000"), rec("A", 2024, 2, "4000"), rec("A", 2024, 3, "5000"), rec("A", 2024, 4, "10"))
	f.setThreshold(t, "A", 2024, "Novo", "10000")

	res, err := f.reconciler.Reconcile(ctx, "Novo")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Groups)
	assert.EqualValues(t, 2, res.RowsUpdated)
	require.Len(t, res.Notifications, 1)
	assert.True(t, res.Notifications[0].Newly)
	assert.Equal(t, "2024-03", res.Notifications[0].Date)
	assert.Contains(t, res.Notifications[0].String(), "newly reached")

	dates := f.dates(t, "Novo", "A")
	assert.Nil(t, dates[1])
	assert.Nil(t, dates[2])
	require.NotNil(t, dates[3])
	assert.Equal(t, "2024-03", *dates[3])
	assert.Equal(t, "2024-03", *dates[4])

	require.Len(t, f.publisher.published, 1)
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.load(t, "Novo", rec("A", 2024, 1, "3000"), rec("A", 2024, 2, "8000"))
	f.setThreshold(t, "A", 2024, "Novo", "10000")

	_, err := f.reconciler.Reconcile(ctx, "Novo")
	require.NoError(t, err)
	first := f.dates(t, "Novo", "A")

	res, err := f.reconciler.Reconcile(ctx, "Novo")
	require.NoError(t, err)
	assert.Equal(t, first, f.dates(t, "Novo", "A"))

	// Still reported, but no longer new and not republished.
	require.Len(t, res.Notifications, 1)
	assert.False(t, res.Notifications[0].Newly)
	assert.Len(t, f.publisher.published, 1)
}

func TestReconcileSince_ComparesAgainstSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.load(t, "Novo", rec("A", 2024, 1, "3000"), rec("A", 2024, 2, "8000"))
	f.setThreshold(t, "A", 2024, "Novo", "10000")

	_, err := f.reconciler.Reconcile(ctx, "Novo")
	require.NoError(t, err)
	require.Len(t, f.publisher.published, 1)

	before, err := f.reconciler.StoredDates(ctx, "Novo")
	require.NoError(t, err)
	key := models.GroupKey{SalesRep: "A", Year: 2024}
	require.NotNil(t, before[key])
	assert.Equal(t, "2024-02", *before[key])

	// Rewriting the scope clears every stored date.
	f.load(t, "Novo", rec("A", 2024, 1, "3000"), rec("A", 2024, 2, "8000"))

	tests := []struct {
		name     string
		previous Tier2Dates
		newly    bool
	}{
		{name: "snapshot taken before the rewrite", previous: before, newly: false},
		{name: "empty snapshot", previous: Tier2Dates{}, newly: true},
		{name: "different stored date", previous: Tier2Dates{key: ptr("2024-01")}, newly: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			published := len(f.publisher.published)
			res, err := f.reconciler.ReconcileSince(ctx, "Novo", tt.previous)
			require.NoError(t, err)
			require.Len(t, res.Notifications, 1)
			assert.Equal(t, tt.newly, res.Notifications[0].Newly)
			if tt.newly {
				assert.Len(t, f.publisher.published, published+1)
			} else {
				assert.Len(t, f.publisher.published, published)
			}
		})
	}
}

func ptr(s string) *string { return &s }

func TestReconcile_ResetsWhenNoLongerReached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.load(t, "Novo", rec("A", 2024, 1, "6000"), rec("A", 2024, 2, "6000"))
	f.setThreshold(t, "A", 2024, "Novo", "10000")

	_, err := f.reconciler.Reconcile(ctx, "Novo")
	require.NoError(t, err)
	require.NotNil(t, f.dates(t, "Novo", "A")[2])

	f.setThreshold(t, "A", 2024, "Novo", "50000")
	res, err := f.reconciler.Reconcile(ctx, "Novo")
	require.NoError(t, err)
	assert.Empty(t, res.Notifications)
	for _, d := range f.dates(t, "Novo", "A") {
		assert.Nil(t, d)
	}
}

func TestReconcile_MissingThresholdWarnsAndClears(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stale := "2024-01"
	r := rec("B", 2024, 1, "100")
	r.Tier2Date = &stale
	f.load(t, "Novo", r, rec("B", 2023, 1, "100"))
	f.setThreshold(t, "B", 2023, "Novo", "50")

	res, err := f.reconciler.Reconcile(ctx, "Novo")
	require.NoError(t, err)
	require.Len(t, res.Gaps, 1)
	assert.Equal(t, apperrors.ConfigurationGap{Kind: apperrors.GapThreshold, SalesRep: "B", Year: 2024, ProductLine: "Novo"}, res.Gaps[0])
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, 2023, res.Notifications[0].Year)

	records, err := f.ledger.ListFiltered(ctx, harmonised.Filter{ProductLine: "Novo", Year: 2024})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Tier2Date)
}

func TestReconcile_ScopedToProductLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.load(t, "Novo", rec("A", 2024, 1, "100"))
	f.load(t, "Sunoptic", rec("A", 2024, 1, "100"))
	f.setThreshold(t, "A", 2024, "Novo", "50")
	f.setThreshold(t, "A", 2024, "Sunoptic", "50")

	_, err := f.reconciler.Reconcile(ctx, "Novo")
	require.NoError(t, err)

	assert.NotNil(t, f.dates(t, "Novo", "A")[1])
	assert.Nil(t, f.dates(t, "Sunoptic", "A")[1])
}

func TestReconcile_CountsUnparseable(t *testing.T) {
	f := newFixture(t)
	f.load(t, "Novo", rec("A", 2024, 1, "abc"), rec("A", 2024, 2, ""))
	f.setThreshold(t, "A", 2024, "Novo", "1")

	res, err := f.reconciler.Reconcile(context.Background(), "Novo")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Unparseable)
	assert.Empty(t, res.Notifications)
}

type brokenLedger struct{ *harmonised.Repository }

func (brokenLedger) ApplyTier2Date(context.Context, string, string, int, *string, int) (int64, error) {
	return 0, errors.New("deadlock")
}

func TestReconcile_PersistenceFailureNamesStage(t *testing.T) {
	f := newFixture(t)
	f.load(t, "Novo", rec("A", 2024, 1, "100"))

	r := NewReconciler(f.thresholds, brokenLedger{f.ledger}, nil, testutil.Logger())
	_, err := r.Reconcile(context.Background(), "Novo")

	var pe *apperrors.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "reconcile", pe.Stage)
}
