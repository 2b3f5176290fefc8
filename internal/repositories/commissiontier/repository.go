package commissiontier

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
	models.ColumnTierSalesRepName,
	models.ColumnTier1Rate,
	models.ColumnTier2Rate,
}

// Repository reads and loads the sales rep commission rate table.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new commission tier repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListAll returns every configured rep ordered by name.
func (r *Repository) ListAll(ctx context.Context) ([]models.CommissionRate, error) {
	ctx, span := tracing.StartSpan(ctx, "commissiontier.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(database.QuoteAll(columns...)...)
	sb.From(models.CommissionTierTable)
	sb.OrderBy(database.Quote(models.ColumnTierSalesRepName))

	query, args := sb.Build()
	rates := []models.CommissionRate{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &rates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list commission tiers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list commission tiers")
	}
	return rates, nil
}

// Upsert inserts or overwrites the rates of each rep.
func (r *Repository) Upsert(ctx context.Context, rates []models.CommissionRate) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "commissiontier.Repository.Upsert")
	defer span.End()

	if len(rates) == 0 {
		return 0, nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(models.CommissionTierTable)
	ib.Cols(database.QuoteAll(columns...)...)
	for _, rate := range rates {
		ib.Values(rate.SalesRep, rate.Tier1Rate, rate.Tier2Rate)
	}
	database.OnConflictUpdate(ib, []string{models.ColumnTierSalesRepName}, []string{models.ColumnTier1Rate, models.ColumnTier2Rate})

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
		r.logger.WithContext(ctx).WithError(err).WithField("rates", len(rates)).Error("Failed to upsert commission tiers")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert commission tiers")
	}

	r.logger.WithContext(ctx).WithField("rates", len(rates)).Info("Upserted commission tiers")
	return affected, nil
}
