// Package pipeline runs an import end to end: validate, fingerprint, replace
// the period, harmonise, reconcile. Each stage commits on its own; a failed
// stage is named in the report and later stages are skipped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/rawsale"
	"github.com/Ramsey-B/clover/pkg/apperrors"
	appcontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/harmonisation"
	"github.com/Ramsey-B/clover/pkg/locks"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reconciler"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

// PeriodStore replaces whole periods of a vendor's raw table.
type PeriodStore interface {
	ReplacePeriod(ctx context.Context, vendor vendors.Vendor, rows []models.RawSaleRow) (*rawsale.ReplaceResult, error)
}

// Harmoniser rebuilds a vendor's scope of the harmonised ledger.
type Harmoniser interface {
	Harmonise(ctx context.Context, vendor vendors.Vendor) (*harmonisation.Result, error)
}

// ThresholdReconciler recomputes tier 2 dates. StoredDates is read before the
// ledger is rewritten so that ReconcileSince only reports real changes.
type ThresholdReconciler interface {
	StoredDates(ctx context.Context, productLine string) (reconciler.Tier2Dates, error)
	ReconcileSince(ctx context.Context, productLine string, previous reconciler.Tier2Dates) (*reconciler.Result, error)
}

// Orchestrator runs imports, rebuilds and reconciliations as staged runs.
type Orchestrator struct {
	registry   *vendors.Registry
	store      PeriodStore
	harmoniser Harmoniser
	reconciler ThresholdReconciler
	locker     locks.Locker
	emitter    *events.Emitter
	logger     ectologger.Logger
}

// NewOrchestrator wires the stages. emitter may be nil.
func NewOrchestrator(
	registry *vendors.Registry,
	store PeriodStore,
	harmoniser Harmoniser,
	reconciler ThresholdReconciler,
	locker locks.Locker,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		store:      store,
		harmoniser: harmoniser,
		reconciler: reconciler,
		locker:     locker,
		emitter:    emitter,
		logger:     logger,
	}
}

// ImportPeriod loads a normalized vendor table. The returned report is never
// nil; the error is the failing stage's error.
func (o *Orchestrator) ImportPeriod(ctx context.Context, vendorName string, table vendors.Table) (*report.Report, error) {
	r := report.New(vendorName, "")
	ctx = appcontext.SetRunID(ctx, r.RunID)
	ctx, span := tracing.StartSpan(ctx, "pipeline.Orchestrator.ImportPeriod")
	defer span.End()

	log := o.logger.WithContext(ctx).WithFields(map[string]any{"run_id": r.RunID, "vendor": vendorName})
	log.Info("Starting import")

	err := o.importPeriod(ctx, r, vendorName, table)
	o.finish(ctx, r, err)
	if err != nil {
		log.WithError(err).WithField("failed_stage", r.FailedStage).Warn("Import failed")
	} else {
		log.Info("Import completed")
	}
	return r, err
}

func (o *Orchestrator) importPeriod(ctx context.Context, r *report.Report, vendorName string, table vendors.Table) error {
	var (
		vendor vendors.Vendor
		rows   []models.RawSaleRow
	)

	err := o.stage(ctx, r, report.StageValidate, func(ctx context.Context) error {
		var err error
		vendor, rows, err = o.validate(r, vendorName, table)
		return err
	})
	if err != nil {
		r.Skip(report.StageFingerprint, report.StageReplace, report.StageHarmonise, report.StageReconcile)
		return err
	}

	err = o.stage(ctx, r, report.StageFingerprint, func(ctx context.Context) error {
		fingerprint.Apply(rows)
		r.Info(report.StageFingerprint, "fingerprinted %d row(s)", len(rows))
		if dup := duplicateFingerprints(rows); dup > 0 {
			r.Info(report.StageFingerprint, "%d row(s) share a fingerprint with an earlier row", dup)
		}
		return nil
	})
	if err != nil {
		r.Skip(report.StageReplace, report.StageHarmonise, report.StageReconcile)
		return err
	}

	return o.withProductLineLock(ctx, r, vendor.ProductLine, report.StageReplace, func(ctx context.Context) error {
		err := o.stage(ctx, r, report.StageReplace, func(ctx context.Context) error {
			res, err := o.store.ReplacePeriod(ctx, vendor, rows)
			if err != nil {
				return err
			}
			metrics.RowsReplaced.WithLabelValues(vendor.Name).Add(float64(res.Inserted))
			r.Info(report.StageReplace, "replaced %s in %s: %s", periodList(res.Periods), vendor.Table, res)
			return nil
		})
		if err != nil {
			r.Skip(report.StageHarmonise, report.StageReconcile)
			return err
		}
		return o.harmoniseAndReconcile(ctx, r, vendor)
	})
}

// Rebuild recomputes the vendor's ledger scope from its stored raw rows and
// reconciles its product line.
func (o *Orchestrator) Rebuild(ctx context.Context, vendorName string) (*report.Report, error) {
	r := report.New(vendorName, "")
	ctx = appcontext.SetRunID(ctx, r.RunID)
	ctx, span := tracing.StartSpan(ctx, "pipeline.Orchestrator.Rebuild")
	defer span.End()

	var vendor vendors.Vendor
	err := o.stage(ctx, r, report.StageValidate, func(ctx context.Context) error {
		v, err := o.registry.Get(vendorName)
		if err != nil {
			return &apperrors.ValidationError{Vendor: vendorName, Problems: []string{err.Error()}}
		}
		vendor = v
		return nil
	})
	if err != nil {
		r.Skip(report.StageHarmonise, report.StageReconcile)
		o.finish(ctx, r, err)
		return r, err
	}
	r.Vendor = vendor.Name
	r.ProductLine = vendor.ProductLine

	err = o.withProductLineLock(ctx, r, vendor.ProductLine, report.StageHarmonise, func(ctx context.Context) error {
		return o.harmoniseAndReconcile(ctx, r, vendor)
	})
	o.finish(ctx, r, err)
	return r, err
}

// Reconcile re-runs threshold reconciliation for one product line.
func (o *Orchestrator) Reconcile(ctx context.Context, productLine string) (*report.Report, error) {
	r := report.New("", productLine)
	ctx = appcontext.SetRunID(ctx, r.RunID)
	ctx, span := tracing.StartSpan(ctx, "pipeline.Orchestrator.Reconcile")
	defer span.End()

	if !ectolinq.Contains(o.registry.ProductLines(), productLine) {
		err := httperror.NewHTTPErrorf(http.StatusNotFound, "unknown product line %q", productLine)
		r.Error(report.StageReconcile, "%v", err)
		r.Record(report.StageReconcile, report.StatusFailed, 0)
		r.Finish()
		return r, err
	}

	err := o.withProductLineLock(ctx, r, productLine, report.StageReconcile, func(ctx context.Context) error {
		return o.reconcile(ctx, r, productLine, nil)
	})
	r.Finish()
	return r, err
}

func (o *Orchestrator) harmoniseAndReconcile(ctx context.Context, r *report.Report, vendor vendors.Vendor) error {
	var previous reconciler.Tier2Dates
	err := o.stage(ctx, r, report.StageHarmonise, func(ctx context.Context) error {
		// Harmonising rewrites the scope without tier 2 dates.
		var err error
		previous, err = o.reconciler.StoredDates(ctx, vendor.ProductLine)
		if err != nil {
			return err
		}

		res, err := o.harmoniser.Harmonise(ctx, vendor)
		if err != nil {
			return err
		}
		r.Info(report.StageHarmonise, "harmonised %d record(s) for %s / %s (%d replaced)", res.Records, vendor.ProductLine, vendor.DataSource, res.Deleted)
		for _, gap := range res.Gaps {
			metrics.ConfigurationGaps.WithLabelValues(gap.Kind).Inc()
			r.Warn(report.StageHarmonise, "%s", gap)
		}
		return nil
	})
	if err != nil {
		r.Skip(report.StageReconcile)
		return err
	}

	// Reconcile runs even when harmonisation changed nothing: thresholds may have.
	return o.reconcile(ctx, r, vendor.ProductLine, previous)
}

func (o *Orchestrator) reconcile(ctx context.Context, r *report.Report, productLine string, previous reconciler.Tier2Dates) error {
	return o.stage(ctx, r, report.StageReconcile, func(ctx context.Context) error {
		res, err := o.reconciler.ReconcileSince(ctx, productLine, previous)
		if err != nil {
			return err
		}
		r.Info(report.StageReconcile, "reconciled %d group(s) in %s", res.Groups, productLine)
		for _, n := range res.Notifications {
			if n.Newly {
				metrics.Tier2Reached.WithLabelValues(productLine).Inc()
			}
			r.Info(report.StageReconcile, "%s", n)
		}
		for _, gap := range res.Gaps {
			metrics.ConfigurationGaps.WithLabelValues(gap.Kind).Inc()
			r.Warn(report.StageReconcile, "%s", gap)
		}
		if res.Unparseable > 0 {
			r.Warn(report.StageReconcile, "%d Sales Actual value(s) could not be parsed and were counted as zero", res.Unparseable)
		}
		return nil
	})
}

func (o *Orchestrator) validate(r *report.Report, vendorName string, table vendors.Table) (vendors.Vendor, []models.RawSaleRow, error) {
	vendor, err := o.registry.Get(vendorName)
	if err != nil {
		return vendor, nil, &apperrors.ValidationError{Vendor: vendorName, Problems: []string{err.Error()}}
	}
	r.Vendor = vendor.Name
	r.ProductLine = vendor.ProductLine

	if ok, missing := o.registry.Validate(table, vendor.Name); !ok {
		return vendor, nil, &apperrors.ValidationError{Vendor: vendor.Name, Missing: missing}
	}

	rows, problems := table.SaleRows()
	if len(problems) > 0 {
		return vendor, nil, &apperrors.ValidationError{Vendor: vendor.Name, Problems: problems}
	}
	if len(rows) == 0 {
		return vendor, nil, &apperrors.ValidationError{Vendor: vendor.Name, Problems: []string{"table has no data rows"}}
	}

	r.Info(report.StageValidate, "accepted %d row(s) across %s", len(rows), periodList(rawsale.Periods(rows)))
	return vendor, rows, nil
}

// stage runs fn as one named stage and records its outcome.
func (o *Orchestrator) stage(ctx context.Context, r *report.Report, stage report.Stage, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.stage."+string(stage))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	status := report.StatusSucceeded
	if err != nil {
		status = report.StatusFailed
		err = stageError(stage, err)
		r.Error(stage, "%v", err)
		o.logger.WithContext(ctx).WithError(err).WithField("stage", stage).Error("Pipeline stage failed")
	}
	r.Record(stage, status, elapsed)
	metrics.ObserveStage(string(stage), string(status), elapsed)
	return err
}

func (o *Orchestrator) withProductLineLock(ctx context.Context, r *report.Report, productLine string, first report.Stage, fn func(ctx context.Context) error) error {
	start := time.Now()
	lock, err := o.locker.Acquire(ctx, productLine)
	metrics.LockWaitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		err = fmt.Errorf("could not lock product line %q: %w", productLine, err)
		r.Error(first, "%v", err)
		r.Record(first, report.StatusFailed, time.Since(start))
		r.Skip(stagesAfter(first)...)
		return httperror.WrapError(http.StatusConflict, err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			o.logger.WithContext(ctx).WithError(err).WithField("product_line", productLine).Warn("Failed to release product line lock")
		}
	}()

	return fn(ctx)
}

func (o *Orchestrator) finish(ctx context.Context, r *report.Report, err error) {
	r.Finish()

	status := string(report.StatusSucceeded)
	if err != nil {
		status = string(report.StatusFailed)
	}
	metrics.ImportsTotal.WithLabelValues(r.Vendor, status).Inc()

	if err := o.emitter.EmitImportFinished(ctx, r); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to emit import event")
	}
}

// stageError keeps typed errors and names the stage on everything else.
func stageError(stage report.Stage, err error) error {
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		return err
	}
	var persistenceErr *apperrors.PersistenceError
	if errors.As(err, &persistenceErr) {
		return err
	}
	return apperrors.NewPersistenceError(string(stage), err)
}

func stagesAfter(stage report.Stage) []report.Stage {
	for i, s := range report.ImportStages {
		if s == stage {
			return report.ImportStages[i+1:]
		}
	}
	return nil
}

func duplicateFingerprints(rows []models.RawSaleRow) int {
	unique := ectolinq.DistinctBy(rows, func(row models.RawSaleRow) string { return row.RowHash })
	return len(rows) - len(unique)
}

func periodList(periods []models.Period) string {
	if len(periods) == 1 {
		return "period " + periods[0].String()
	}
	out := fmt.Sprintf("%d periods", len(periods))
	if len(periods) > 0 {
		out += fmt.Sprintf(" (%s to %s)", periods[0], periods[len(periods)-1])
	}
	return out
}
