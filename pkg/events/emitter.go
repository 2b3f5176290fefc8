// Package events turns pipeline outcomes into Kafka events.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/reconciler"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const (
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
	EventTier2Reached    = "tier2.reached"
)

type Publisher interface {
	Publish(ctx context.Context, event *kafka.Event) error
}

// Emitter publishes clover events. A nil Emitter, or one without a
// publisher, drops everything.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

func (e *Emitter) enabled() bool {
	return e != nil && e.publisher != nil
}

// PublishTier2Reached emits a tier2.reached event for a group whose start date changed.
func (e *Emitter) PublishTier2Reached(ctx context.Context, n reconciler.Notification) error {
	if !e.enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.PublishTier2Reached")
	defer span.End()

	data, err := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"sales_rep":      n.SalesRep,
		"year":           n.Year,
		"date":           n.Date,
		"total":          n.Total.StringFixed(2),
		"threshold":      n.Threshold.StringFixed(2),
	})
	if err != nil {
		return err
	}

	event := &kafka.Event{
		EventType:   EventTier2Reached,
		ProductLine: n.ProductLine,
		Data:        data,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit tier2.reached event")
		return err
	}
	return nil
}

// EmitImportFinished emits import.completed or import.failed with the run's report.
func (e *Emitter) EmitImportFinished(ctx context.Context, r *report.Report) error {
	if !e.enabled() || r == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitImportFinished")
	defer span.End()

	eventType := EventImportCompleted
	if !r.Succeeded() {
		eventType = EventImportFailed
	}

	data, err := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"failed_stage":   r.FailedStage,
		"stages":         r.Stages,
		"warnings":       len(r.Filter(report.LevelWarning)),
	})
	if err != nil {
		return err
	}

	event := &kafka.Event{
		EventType:   eventType,
		ProductLine: r.ProductLine,
		Vendor:      r.Vendor,
		RunID:       r.RunID,
		Data:        data,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("event_type", eventType).Error("Failed to emit import event")
		return err
	}
	return nil
}
