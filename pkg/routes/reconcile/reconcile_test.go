package reconcile_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/testutil"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/routes/reconcile"
)

type stubReconciler struct{ productLine string }

func (s *stubReconciler) Reconcile(_ context.Context, productLine string) (*report.Report, error) {
	s.productLine = productLine
	r := report.New("", productLine)
	if productLine == "Unknown" {
		return r, httperror.NewHTTPErrorf(http.StatusNotFound, "no vendor sells product line %q", productLine)
	}
	return r, nil
}

func TestReconcile(t *testing.T) {
	stub := &stubReconciler{}
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testutil.Logger())
	reconcile.NewHandler(stub).Register(e.Group("/api/v1/reconcile"))

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantLine string
	}{
		{name: "escaped product line", path: "/api/v1/reconcile/Summit%20Medical", wantCode: http.StatusOK, wantLine: "Summit Medical"},
		{name: "unknown product line", path: "/api/v1/reconcile/Unknown", wantCode: http.StatusNotFound, wantLine: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLine, stub.productLine)

			var body routes.RunResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotNil(t, body.Report)
			assert.Equal(t, tt.wantLine, body.Report.ProductLine)
		})
	}
}
