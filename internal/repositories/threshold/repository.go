package threshold

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var columns = []string{
	models.ColumnThresholdSalesRep,
	models.ColumnThresholdYear,
	models.ColumnThresholdProduct,
	models.ColumnThresholdValue,
}

// Repository reads and loads yearly tier 2 thresholds.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new threshold repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListByProductLine returns the thresholds of productLine.
func (r *Repository) ListByProductLine(ctx context.Context, productLine string) ([]models.Threshold, error) {
	ctx, span := tracing.StartSpan(ctx, "threshold.Repository.ListByProductLine")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(database.QuoteAll(columns...)...)
	sb.From(models.ThresholdTable)
	sb.Where(sb.Equal(database.Quote(models.ColumnThresholdProduct), productLine))
	sb.OrderBy(database.QuoteAll(models.ColumnThresholdSalesRep, models.ColumnThresholdYear)...)

	query, args := sb.Build()
	thresholds := []models.Threshold{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &thresholds, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("product_line", productLine).Error("Failed to list thresholds")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list thresholds")
	}
	return thresholds, nil
}

// Upsert inserts or overwrites thresholds keyed by (rep, year, product line).
func (r *Repository) Upsert(ctx context.Context, thresholds []models.Threshold) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "threshold.Repository.Upsert")
	defer span.End()

	if len(thresholds) == 0 {
		return 0, nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(models.ThresholdTable)
	ib.Cols(database.QuoteAll(columns...)...)
	for _, t := range thresholds {
		ib.Values(t.SalesRep, t.Year, t.ProductLine, t.Threshold)
	}
	database.OnConflictUpdate(ib,
		[]string{models.ColumnThresholdSalesRep, models.ColumnThresholdYear, models.ColumnThresholdProduct},
		[]string{models.ColumnThresholdValue},
	)

	query, args := ib.Build()
	var affected int64
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("thresholds", len(thresholds)).Error("Failed to upsert thresholds")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert thresholds")
	}

	r.logger.WithContext(ctx).WithField("thresholds", len(thresholds)).Info("Upserted thresholds")
	return affected, nil
}
