package reconciler

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ThresholdReader loads the configured thresholds of a product line.
type ThresholdReader interface {
	ListByProductLine(ctx context.Context, productLine string) ([]models.Threshold, error)
}

// Ledger is the harmonised store the reconciler reads and rewrites.
type Ledger interface {
	ListByProductLine(ctx context.Context, productLine string) ([]models.HarmonisedRecord, error)
	ApplyTier2Date(ctx context.Context, productLine, salesRep string, year int, date *string, fromMonth int) (int64, error)
}

// Publisher is told about groups whose tier 2 date changed to a reached date.
type Publisher interface {
	PublishTier2Reached(ctx context.Context, n Notification) error
}

// Notification reports a group that has reached its threshold.
type Notification struct {
	ProductLine string          `json:"product_line"`
	SalesRep    string          `json:"sales_rep"`
	Year        int             `json:"year"`
	Date        string          `json:"date"`
	Total       decimal.Decimal `json:"total"`
	Threshold   decimal.Decimal `json:"threshold"`
	Newly       bool            `json:"newly"`
}

func (n Notification) String() string {
	verb := "has reached"
	if n.Newly {
		verb = "newly reached"
	}
	return fmt.Sprintf("%s %s the %d tier 2 threshold of %s for %s in %s (cumulative %s)",
		n.SalesRep, verb, n.Year, n.Threshold.StringFixed(2), n.ProductLine, n.Date, n.Total.StringFixed(2))
}

// Tier2Dates holds the tier 2 date stored on each group before a run, nil
// when the group had none.
type Tier2Dates map[models.GroupKey]*string

// Result summarises one reconciliation of a product line.
type Result struct {
	ProductLine   string                       `json:"product_line"`
	Groups        int                          `json:"groups"`
	RowsUpdated   int64                        `json:"rows_updated"`
	Notifications []Notification               `json:"notifications,omitempty"`
	Gaps          []apperrors.ConfigurationGap `json:"gaps,omitempty"`
	Unparseable   int                          `json:"unparseable"`
}

// Reconciler recomputes tier 2 start dates from cumulative sales.
type Reconciler struct {
	thresholds ThresholdReader
	ledger     Ledger
	publisher  Publisher
	logger     ectologger.Logger
}

// NewReconciler creates a new reconciler. publisher may be nil.
func NewReconciler(thresholds ThresholdReader, ledger Ledger, publisher Publisher, logger ectologger.Logger) *Reconciler {
	return &Reconciler{
		thresholds: thresholds,
		ledger:     ledger,
		publisher:  publisher,
		logger:     logger,
	}
}

// StoredDates captures the tier 2 date currently stored on every group of
// productLine. Callers that rewrite the ledger before reconciling take this
// snapshot first and hand it to ReconcileSince.
func (r *Reconciler) StoredDates(ctx context.Context, productLine string) (Tier2Dates, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Reconciler.StoredDates")
	defer span.End()

	records, err := r.ledger.ListByProductLine(ctx, productLine)
	if err != nil {
		return nil, apperrors.NewPersistenceError(string(report.StageReconcile), err)
	}
	dates := Tier2Dates{}
	for _, group := range GroupRecords(records) {
		dates[group.Key] = storedDate(group)
	}
	return dates, nil
}

// Reconcile recomputes the tier 2 start date of every (rep, year) group of
// productLine, comparing against the dates the ledger holds right now.
func (r *Reconciler) Reconcile(ctx context.Context, productLine string) (*Result, error) {
	return r.ReconcileSince(ctx, productLine, nil)
}

// ReconcileSince recomputes every group of productLine. A group is newly
// reached when its date differs from previous; a nil previous means the dates
// currently stored on the ledger. Each group is reset and rewritten in its own
// transaction, so a failure leaves earlier groups committed.
func (r *Reconciler) ReconcileSince(ctx context.Context, productLine string, previous Tier2Dates) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Reconciler.ReconcileSince")
	defer span.End()

	log := r.logger.WithContext(ctx).WithField("product_line", productLine)

	configured, err := r.thresholds.ListByProductLine(ctx, productLine)
	if err != nil {
		return nil, apperrors.NewPersistenceError(string(report.StageReconcile), err)
	}
	lookup := make(map[models.GroupKey]decimal.Decimal, len(configured))
	for _, t := range configured {
		lookup[models.GroupKey{SalesRep: t.SalesRep, Year: t.Year}] = t.Threshold
	}

	records, err := r.ledger.ListByProductLine(ctx, productLine)
	if err != nil {
		return nil, apperrors.NewPersistenceError(string(report.StageReconcile), err)
	}

	result := &Result{ProductLine: productLine}
	for _, group := range GroupRecords(records) {
		if len(group.Records) == 0 {
			continue
		}
		result.Groups++

		var threshold *decimal.Decimal
		if t, ok := lookup[group.Key]; ok {
			threshold = &t
		}
		outcome := Evaluate(group, threshold)
		result.Unparseable += outcome.Unparseable

		updated, err := r.ledger.ApplyTier2Date(ctx, productLine, group.Key.SalesRep, group.Key.Year, outcome.Date, outcome.Month)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{"sales_rep": group.Key.SalesRep, "year": group.Key.Year}).Error("Failed to apply tier 2 date")
			return result, apperrors.NewPersistenceError(string(report.StageReconcile), err)
		}
		result.RowsUpdated += updated

		if !outcome.Configured {
			gap := apperrors.ConfigurationGap{Kind: apperrors.GapThreshold, SalesRep: group.Key.SalesRep, Year: group.Key.Year, ProductLine: productLine}
			result.Gaps = append(result.Gaps, gap)
			log.WithFields(map[string]any{"sales_rep": group.Key.SalesRep, "year": group.Key.Year}).Warn(gap.String())
			continue
		}
		if !outcome.Reached {
			continue
		}

		n := Notification{
			ProductLine: productLine,
			SalesRep:    group.Key.SalesRep,
			Year:        group.Key.Year,
			Date:        *outcome.Date,
			Total:       outcome.Total,
			Threshold:   *threshold,
			Newly:       !sameDate(previousDate(previous, group), outcome.Date),
		}
		result.Notifications = append(result.Notifications, n)
		if n.Newly {
			r.publish(ctx, n)
		}
	}

	log.WithFields(map[string]any{
		"groups":        result.Groups,
		"rows_updated":  result.RowsUpdated,
		"notifications": len(result.Notifications),
		"gaps":          len(result.Gaps),
	}).Info("Reconciled tier 2 thresholds")
	return result, nil
}

func previousDate(previous Tier2Dates, group Group) *string {
	if previous == nil {
		return storedDate(group)
	}
	return previous[group.Key]
}

func (r *Reconciler) publish(ctx context.Context, n Notification) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishTier2Reached(ctx, n); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"sales_rep": n.SalesRep,
			"year":      n.Year,
		}).Warn("Failed to publish tier 2 reached event")
	}
}
