package referencedata_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/commissiontier"
	"github.com/Ramsey-B/clover/internal/repositories/threshold"
	"github.com/Ramsey-B/clover/internal/testutil"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes/referencedata"
)

func setup(t *testing.T) (*echo.Echo, *commissiontier.Repository, *threshold.Repository) {
	t.Helper()
	db := testutil.NewDB(t)
	tiers := commissiontier.NewRepository(db, testutil.Logger())
	thresholds := threshold.NewRepository(db, testutil.Logger())

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testutil.Logger())
	referencedata.NewHandler(tiers, thresholds, 1<<20).Register(e.Group("/api/v1/reference"))
	return e, tiers, thresholds
}

func put(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCommissionTiers(t *testing.T) {
	e, tiers, _ := setup(t)

	body := `{"columns":["Sales Rep Name","Commission tier 1 rate","Commission tier 2 rate"],
		"rows":[["Alice","0.05","0.08"],["Bob","0.04",""]]}`
	rec := put(e, "/api/v1/reference/commission-tiers", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp referencedata.UpsertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Received)

	rates, err := tiers.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.False(t, rates[1].Tier2Rate.Valid)
}

func TestCommissionTiers_Invalid(t *testing.T) {
	e, tiers, _ := setup(t)

	body := `{"columns":["Sales Rep Name","Commission tier 1 rate","Commission tier 2 rate"],"rows":[["Alice","lots",""]]}`
	rec := put(e, "/api/v1/reference/commission-tiers", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rates, err := tiers.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func TestThresholds(t *testing.T) {
	e, _, thresholds := setup(t)

	body := `{"columns":["Sales Rep name","Year","Product line","Commission tier threshold"],
		"rows":[["Alice","2024","Miscellaneous","10000"],["Alice","2024","Chemence","500"]]}`
	rec := put(e, "/api/v1/reference/thresholds", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := thresholds.ListByProductLine(context.Background(), "Miscellaneous")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "10000", stored[0].Threshold.String())
}
