// Package apperrors holds the typed failures an import can end with.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// ValidationError rejects a table before anything is written.
type ValidationError struct {
	Vendor   string   `json:"vendor"`
	Missing  []string `json:"missing_columns,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Problems) > 0 {
		parts = append(parts, strings.Join(e.Problems, "; "))
	}
	if len(parts) == 0 {
		parts = append(parts, "invalid table")
	}
	return fmt.Sprintf("validation failed for vendor %s: %s", e.Vendor, strings.Join(parts, "; "))
}

// PersistenceError is a storage failure in a named pipeline stage. The stage's
// own transaction has already been rolled back when this is returned.
type PersistenceError struct {
	Stage string
	Err   error
}

func NewPersistenceError(stage string, err error) *PersistenceError {
	return &PersistenceError{Stage: stage, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Gap kinds.
const (
	GapCommissionRate = "commission_rate"
	GapThreshold      = "threshold"
)

// ConfigurationGap is a warning about missing reference data. It never fails
// an import.
type ConfigurationGap struct {
	Kind        string `json:"kind"`
	SalesRep    string `json:"sales_rep"`
	Year        int    `json:"year,omitempty"`
	ProductLine string `json:"product_line,omitempty"`
}

func (g ConfigurationGap) String() string {
	switch g.Kind {
	case GapCommissionRate:
		return fmt.Sprintf("no commission tier rates configured for sales rep %q; commission amounts left empty", g.SalesRep)
	case GapThreshold:
		return fmt.Sprintf("no tier 2 threshold configured for sales rep %q, year %d, product line %q", g.SalesRep, g.Year, g.ProductLine)
	default:
		return fmt.Sprintf("configuration gap for sales rep %q", g.SalesRep)
	}
}

// StatusCode maps err to the HTTP status the API answers with.
func StatusCode(err error) int {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}

	var persistenceErr *PersistenceError
	if errors.As(err, &persistenceErr) {
		if httperror.IsHTTPError(persistenceErr.Err) {
			return httperror.GetStatusCode(persistenceErr.Err)
		}
		return http.StatusInternalServerError
	}

	if httperror.IsHTTPError(err) {
		return httperror.GetStatusCode(err)
	}
	return http.StatusInternalServerError
}
