package rawsale

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

// insertBatchSize keeps a batch well under the bind parameter limits of both drivers.
const insertBatchSize = 500

// Repository stores each vendor's raw rows in the vendor's master table.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new raw sales repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ReplaceResult describes one period replacement.
type ReplaceResult struct {
	Periods  []models.Period `json:"periods"`
	Deleted  int64           `json:"deleted"`
	Inserted int64           `json:"inserted"`
}

// ReplacePeriod deletes every stored row of the periods present in rows and
// inserts rows in their place, in one transaction. Periods absent from rows
// are left alone.
func (r *Repository) ReplacePeriod(ctx context.Context, vendor vendors.Vendor, rows []models.RawSaleRow) (*ReplaceResult, error) {
	ctx, span := tracing.StartSpan(ctx, "rawsale.Repository.ReplacePeriod")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "ReplacePeriod",
		"vendor": vendor.Name,
		"table":  vendor.Table,
		"rows":   len(rows),
	})

	if !database.ValidTableName(vendor.Table) {
		return nil, apperrors.NewPersistenceError(string(report.StageReplace), httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid table name %q", vendor.Table))
	}

	result := &ReplaceResult{Periods: Periods(rows)}
	if len(rows) == 0 {
		log.Debug("No rows to replace")
		return result, nil
	}

	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		deleted, err := r.deletePeriods(ctx, tx, vendor.Table, result.Periods)
		if err != nil {
			return err
		}
		result.Deleted = deleted

		for start := 0; start < len(rows); start += insertBatchSize {
			end := min(start+insertBatchSize, len(rows))
			inserted, err := r.insertBatch(ctx, tx, vendor.Table, rows[start:end])
			if err != nil {
				return err
			}
			result.Inserted += inserted
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to replace periods")
		return nil, apperrors.NewPersistenceError(string(report.StageReplace), err)
	}

	log.WithFields(map[string]any{
		"periods":  len(result.Periods),
		"deleted":  result.Deleted,
		"inserted": result.Inserted,
	}).Info("Replaced raw sale periods")
	return result, nil
}

func (r *Repository) deletePeriods(ctx context.Context, tx database.Tx, table string, periods []models.Period) (int64, error) {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	matches := make([]string, len(periods))
	for i, p := range periods {
		matches[i] = db.And(
			db.Equal(database.Quote(models.ColumnCommissionDateMM), p.Month),
			db.Equal(database.Quote(models.ColumnCommissionDateYYYY), p.Year),
		)
	}
	db.Where(db.Or(matches...))

	query, args := db.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete periods from %s: %v", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *Repository) insertBatch(ctx context.Context, tx database.Tx, table string, rows []models.RawSaleRow) (int64, error) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(database.QuoteAll(models.RawColumns...)...)
	for _, row := range rows {
		ib.Values(
			row.CommissionDate,
			row.Year,
			row.Month,
			row.Num,
			row.SalesDate,
			row.Memo,
			row.Invoiced,
			row.Paid,
			row.SalesRep,
			row.RowHash,
		)
	}

	query, args := ib.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert into %s: %v", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListByVendor returns every stored row of the vendor.
func (r *Repository) ListByVendor(ctx context.Context, vendor vendors.Vendor) ([]models.RawSaleRow, error) {
	ctx, span := tracing.StartSpan(ctx, "rawsale.Repository.ListByVendor")
	defer span.End()

	if !database.ValidTableName(vendor.Table) {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid table name %q", vendor.Table)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(database.QuoteAll(models.RawColumns...)...)
	sb.From(vendor.Table)
	sb.OrderBy(database.QuoteAll(models.ColumnCommissionDateYYYY, models.ColumnCommissionDateMM, models.ColumnSalesRepName, models.ColumnRowHash)...)

	query, args := sb.Build()
	rows := []models.RawSaleRow{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("table", vendor.Table).Error("Failed to list raw sale rows")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list rows of %s", vendor.Name)
	}
	return rows, nil
}

// ListPeriods returns the loaded periods of the vendor, oldest first.
func (r *Repository) ListPeriods(ctx context.Context, vendor vendors.Vendor) ([]models.Period, error) {
	ctx, span := tracing.StartSpan(ctx, "rawsale.Repository.ListPeriods")
	defer span.End()

	if !database.ValidTableName(vendor.Table) {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid table name %q", vendor.Table)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		sb.As(database.Quote(models.ColumnCommissionDateYYYY), "year"),
		sb.As(database.Quote(models.ColumnCommissionDateMM), "month"),
	)
	sb.Distinct()
	sb.From(vendor.Table)
	sb.OrderBy("year", "month")

	query, args := sb.Build()
	periods := []models.Period{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &periods, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("table", vendor.Table).Error("Failed to list periods")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list periods of %s", vendor.Name)
	}
	return periods, nil
}

// Periods returns the distinct periods of rows, oldest first.
func Periods(rows []models.RawSaleRow) []models.Period {
	out := ectolinq.Distinct(ectolinq.Map(rows, models.RawSaleRow.Period))
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// String is used in log lines and report messages.
func (r ReplaceResult) String() string {
	return fmt.Sprintf("%d period(s), %d row(s) deleted, %d row(s) inserted", len(r.Periods), r.Deleted, r.Inserted)
}
