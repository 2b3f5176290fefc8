// Package report collects the ordered, stage-tagged messages of one run.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageValidate    Stage = "validate"
	StageFingerprint Stage = "fingerprint"
	StageReplace     Stage = "replace"
	StageHarmonise   Stage = "harmonise"
	StageReconcile   Stage = "reconcile"
)

// ImportStages is the fixed order of an import run.
var ImportStages = []Stage{StageValidate, StageFingerprint, StageReplace, StageHarmonise, StageReconcile}

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

type Message struct {
	Level Level  `json:"level"`
	Stage Stage  `json:"stage"`
	Text  string `json:"text"`
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s: %s", m.Level, m.Stage, m.Text)
}

type StageOutcome struct {
	Stage    Stage         `json:"stage"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is returned for every run, including failed ones.
type Report struct {
	RunID       string         `json:"run_id"`
	Vendor      string         `json:"vendor"`
	ProductLine string         `json:"product_line"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Messages    []Message      `json:"messages"`
	Stages      []StageOutcome `json:"stages"`
	FailedStage Stage          `json:"failed_stage,omitempty"`
}

func New(vendor, productLine string) *Report {
	return &Report{
		RunID:       uuid.New().String(),
		Vendor:      vendor,
		ProductLine: productLine,
		StartedAt:   time.Now().UTC(),
		Messages:    []Message{},
		Stages:      []StageOutcome{},
	}
}

func (r *Report) add(level Level, stage Stage, format string, args ...any) {
	r.Messages = append(r.Messages, Message{Level: level, Stage: stage, Text: fmt.Sprintf(format, args...)})
}

func (r *Report) Info(stage Stage, format string, args ...any) {
	r.add(LevelInfo, stage, format, args...)
}

func (r *Report) Warn(stage Stage, format string, args ...any) {
	r.add(LevelWarning, stage, format, args...)
}

func (r *Report) Error(stage Stage, format string, args ...any) {
	r.add(LevelError, stage, format, args...)
}

// Record stores the outcome of a stage. A failure also records the stage name.
func (r *Report) Record(stage Stage, status Status, d time.Duration) {
	r.Stages = append(r.Stages, StageOutcome{Stage: stage, Status: status, Duration: d})
	if status == StatusFailed && r.FailedStage == "" {
		r.FailedStage = stage
	}
}

// Skip marks every given stage as not run.
func (r *Report) Skip(stages ...Stage) {
	for _, s := range stages {
		r.Record(s, StatusSkipped, 0)
	}
}

func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
}

func (r *Report) Succeeded() bool {
	return r.FailedStage == ""
}

// Filter returns the messages at level, in order.
func (r *Report) Filter(level Level) []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Level == level {
			out = append(out, m)
		}
	}
	return out
}

// Outcome returns the recorded outcome of stage, if any.
func (r *Report) Outcome(stage Stage) (StageOutcome, bool) {
	for _, o := range r.Stages {
		if o.Stage == stage {
			return o, true
		}
	}
	return StageOutcome{}, false
}
