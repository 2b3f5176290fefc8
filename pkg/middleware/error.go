package middleware

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type ErrorResponse struct {
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

// NewErrorResponse renders err the way the API reports failures.
func NewErrorResponse(c echo.Context, err error) (int, ErrorResponse) {
	ctx := c.Request().Context()

	code := apperrors.StatusCode(err)
	message := http.StatusText(code)
	meta := map[string]any{}

	var he *echo.HTTPError
	var validationErr *apperrors.ValidationError
	var persistenceErr *apperrors.PersistenceError
	switch {
	case errors.As(err, &he):
		code = he.Code
		message = http.StatusText(code)
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	case errors.As(err, &validationErr):
		message = validationErr.Error()
		if len(validationErr.Missing) > 0 {
			meta["missing_columns"] = validationErr.Missing
		}
		if len(validationErr.Problems) > 0 {
			meta["problems"] = validationErr.Problems
		}
	case errors.As(err, &persistenceErr):
		message = persistenceErr.Error()
		meta["stage"] = persistenceErr.Stage
	case httperror.IsHTTPError(err):
		httperr := httperror.ToHTTPError(err)
		message = httperr.Error()
		if httperr.Meta != nil {
			meta = httperr.Meta
		}
	}

	return code, ErrorResponse{
		Message:   message,
		RequestID: context.GetRequestID(ctx),
		TraceID:   tracing.GetTraceID(ctx),
		Meta:      meta,
	}
}

func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		logger.WithContext(ctx).WithError(err).Error("api is returning an error")
		if c.Response().Committed {
			return
		}

		code, body := NewErrorResponse(c, err)
		_ = c.JSON(code, body)
	}
}
