package harmonised

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const insertBatchSize = 500

// Repository owns harmonised_table.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new harmonised ledger repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ScopeResult counts the rows a ReplaceScope call removed and wrote.
type ScopeResult struct {
	Deleted  int64 `json:"deleted"`
	Inserted int64 `json:"inserted"`
}

// ReplaceScope swaps every row tagged (productLine, dataSource) for records in
// one transaction. Rows of other scopes are not touched.
func (r *Repository) ReplaceScope(ctx context.Context, productLine, dataSource string, records []models.HarmonisedRecord) (*ScopeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "harmonised.Repository.ReplaceScope")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":       "ReplaceScope",
		"product_line": productLine,
		"data_source":  dataSource,
		"records":      len(records),
	})

	result := &ScopeResult{}
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		db.DeleteFrom(models.HarmonisedTable)
		db.Where(
			db.Equal(database.Quote(models.ColumnProductLine), productLine),
			db.Equal(database.Quote(models.ColumnDataSource), dataSource),
		)
		query, args := db.Build()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to clear harmonised scope: %v", err)
		}
		result.Deleted, _ = res.RowsAffected()

		for start := 0; start < len(records); start += insertBatchSize {
			end := min(start+insertBatchSize, len(records))
			n, err := insertBatch(ctx, tx, records[start:end])
			if err != nil {
				return err
			}
			result.Inserted += n
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to replace harmonised scope")
		return nil, err
	}

	log.WithFields(map[string]any{"deleted": result.Deleted, "inserted": result.Inserted}).Info("Replaced harmonised scope")
	return result, nil
}

func insertBatch(ctx context.Context, tx database.Tx, records []models.HarmonisedRecord) (int64, error) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(models.HarmonisedTable)
	ib.Cols(database.QuoteAll(models.HarmonisedColumns...)...)
	for _, rec := range records {
		ib.Values(
			rec.Date,
			rec.Month,
			rec.Year,
			rec.SalesRep,
			rec.SalesActual,
			rec.RevActual,
			rec.ProductLine,
			rec.DataSource,
			rec.RowHash,
			rec.CommTier1,
			rec.CommTier2Diff,
			rec.Tier2Date,
		)
	}

	query, args := ib.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert harmonised records: %v", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Filter narrows ListFiltered. Zero values match everything.
type Filter struct {
	ProductLine string   `query:"product_line"`
	DataSource  string   `query:"data_source"`
	SalesReps   []string `query:"sales_rep"`
	Year        int      `query:"year" validate:"omitempty,min=1900,max=9999"`
	Limit       int      `query:"limit" validate:"omitempty,min=1,max=10000"`
	Offset      int      `query:"offset" validate:"omitempty,min=0"`
}

// ListByProductLine returns every record of productLine across all data sources.
func (r *Repository) ListByProductLine(ctx context.Context, productLine string) ([]models.HarmonisedRecord, error) {
	return r.ListFiltered(ctx, Filter{ProductLine: productLine})
}

// ListFiltered returns records ordered by sales rep, year, month and row hash.
func (r *Repository) ListFiltered(ctx context.Context, filter Filter) ([]models.HarmonisedRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "harmonised.Repository.ListFiltered")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(database.QuoteAll(models.HarmonisedColumns...)...)
	sb.From(models.HarmonisedTable)

	var where []string
	if filter.ProductLine != "" {
		where = append(where, sb.Equal(database.Quote(models.ColumnProductLine), filter.ProductLine))
	}
	if filter.DataSource != "" {
		where = append(where, sb.Equal(database.Quote(models.ColumnDataSource), filter.DataSource))
	}
	if len(filter.SalesReps) > 0 {
		reps := ectolinq.Map(filter.SalesReps, func(rep string) any { return rep })
		where = append(where, sb.In(database.Quote(models.ColumnSalesRep), reps...))
	}
	if filter.Year != 0 {
		where = append(where, sb.Equal(database.Quote(models.ColumnDateYYYY), filter.Year))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy(database.QuoteAll(models.ColumnSalesRep, models.ColumnDateYYYY, models.ColumnDateMM, models.ColumnDataSource, models.ColumnRowHash)...)
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	records := []models.HarmonisedRecord{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"product_line": filter.ProductLine,
			"year":         filter.Year,
		}).Error("Failed to list harmonised records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list harmonised records")
	}
	return records, nil
}

// ApplyTier2Date clears the tier 2 date of one (product line, rep, year) group
// and, when date is set, writes it to the group's rows from fromMonth on. Both
// steps share a transaction.
func (r *Repository) ApplyTier2Date(ctx context.Context, productLine, salesRep string, year int, date *string, fromMonth int) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "harmonised.Repository.ApplyTier2Date")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":       "ApplyTier2Date",
		"product_line": productLine,
		"sales_rep":    salesRep,
		"year":         year,
	})

	var updated int64
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		reset := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		reset.Update(models.HarmonisedTable)
		reset.Set(reset.Assign(database.Quote(models.ColumnCommTier2Date), nil))
		reset.Where(groupConditions(reset, productLine, salesRep, year)...)
		query, args := reset.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to reset tier 2 date: %v", err)
		}

		if date == nil {
			return nil
		}

		set := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		set.Update(models.HarmonisedTable)
		set.Set(set.Assign(database.Quote(models.ColumnCommTier2Date), *date))
		set.Where(append(groupConditions(set, productLine, salesRep, year),
			set.GreaterEqualThan(database.Quote(models.ColumnDateMM), fromMonth))...)
		query, args = set.Build()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to set tier 2 date: %v", err)
		}
		updated, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to apply tier 2 date")
		return 0, err
	}

	log.WithField("updated", updated).Debug("Applied tier 2 date")
	return updated, nil
}

type equaler interface {
	Equal(field string, value interface{}) string
}

func groupConditions(cond equaler, productLine, salesRep string, year int) []string {
	return []string{
		cond.Equal(database.Quote(models.ColumnProductLine), productLine),
		cond.Equal(database.Quote(models.ColumnSalesRep), salesRep),
		cond.Equal(database.Quote(models.ColumnDateYYYY), year),
	}
}
