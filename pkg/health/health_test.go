package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/testutil"
	"github.com/Ramsey-B/clover/pkg/health"
)

func ok(context.Context) error     { return nil }
func broken(context.Context) error { return errors.New("connection refused") }

func get(t *testing.T, checker *health.Checker, path string) (int, health.Response) {
	t.Helper()
	e := echo.New()
	checker.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.CheckFunc
		critical   bool
		wantCode   int
		wantStatus health.Status
	}{
		{name: "no checks", wantCode: http.StatusOK, wantStatus: health.StatusHealthy},
		{name: "all healthy", checks: map[string]health.CheckFunc{"database": ok}, critical: true, wantCode: http.StatusOK, wantStatus: health.StatusHealthy},
		{name: "critical failure", checks: map[string]health.CheckFunc{"database": broken}, critical: true, wantCode: http.StatusServiceUnavailable, wantStatus: health.StatusUnhealthy},
		{name: "optional failure", checks: map[string]health.CheckFunc{"redis": broken}, wantCode: http.StatusOK, wantStatus: health.StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := health.NewChecker("test")
			for name, fn := range tt.checks {
				checker.AddCheck(name, fn, tt.critical)
			}

			code, body := get(t, checker, "/api/v1/health")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestReadiness(t *testing.T) {
	checker := health.NewChecker("test")
	checker.AddCheck("database", health.Database(testutil.NewDB(t)), true)

	code, body := get(t, checker, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "startup")

	checker.SetReady(true)
	code, body = get(t, checker, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusHealthy, body.Checks["database"].Status)
}

func TestLiveness(t *testing.T) {
	code, body := get(t, health.NewChecker("v1"), "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "v1", body.Version)
}
