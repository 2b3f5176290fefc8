package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/report"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The run failed (validation or a pipeline stage)
	ExitCommandError = 2 // Command error (bad arguments, unreadable file, database unreachable)
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	if s, ok := data.(fmt.Stringer); ok {
		_, err := fmt.Fprintln(f.Writer, s.String())
		return err
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Report prints a run report and turns a failed run into an ExitError.
func (f *OutputFormatter) Report(r *report.Report, runErr error) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: r}
		if runErr != nil {
			resp.Status = "error"
			resp.Error = runErr.Error()
		}
		if err := json.NewEncoder(f.Writer).Encode(resp); err != nil {
			return err
		}
	} else {
		writeReport(f.Writer, r)
	}

	if runErr == nil {
		return nil
	}
	var validationErr *apperrors.ValidationError
	if errors.As(runErr, &validationErr) || r.FailedStage != "" {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return WrapExitError(ExitCommandError, "run failed", runErr)
}

func writeReport(w io.Writer, r *report.Report) {
	fmt.Fprintf(w, "run %s", r.RunID)
	if r.Vendor != "" {
		fmt.Fprintf(w, " vendor=%s", r.Vendor)
	}
	if r.ProductLine != "" {
		fmt.Fprintf(w, " product_line=%q", r.ProductLine)
	}
	fmt.Fprintln(w)

	for _, s := range r.Stages {
		fmt.Fprintf(w, "  %-12s %-9s %s\n", s.Stage, s.Status, s.Duration.Round(time.Microsecond))
	}
	for _, m := range r.Messages {
		fmt.Fprintf(w, "  %s\n", m)
	}
	if r.FailedStage != "" {
		fmt.Fprintf(w, "FAILED in stage %s\n", r.FailedStage)
	} else {
		fmt.Fprintln(w, "OK")
	}
}
