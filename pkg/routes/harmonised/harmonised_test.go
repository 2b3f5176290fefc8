package harmonised_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/harmonised"
	"github.com/Ramsey-B/clover/internal/testutil"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	routeharmonised "github.com/Ramsey-B/clover/pkg/routes/harmonised"
)

func record(rep string, year, month int, hash string) models.HarmonisedRecord {
	return models.HarmonisedRecord{
		Date:        "x",
		Month:       month,
		Year:        year,
		SalesRep:    rep,
		SalesActual: "100",
		RevActual:   "100",
		ProductLine: "Miscellaneous",
		DataSource:  "master_ternio_sales",
		RowHash:     hash,
	}
}

func setup(t *testing.T) *echo.Echo {
	t.Helper()
	ledger := harmonised.NewRepository(testutil.NewDB(t), testutil.Logger())
	_, err := ledger.ReplaceScope(context.Background(), "Miscellaneous", "master_ternio_sales", []models.HarmonisedRecord{
		record("Alice", 2024, 1, "h1"),
		record("Bob", 2024, 1, "h2"),
		record("Carol", 2024, 2, "h3"),
		record("Alice", 2023, 12, "h4"),
	})
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testutil.Logger())
	routeharmonised.NewHandler(ledger).Register(e.Group("/api/v1/harmonised"))
	return e
}

func TestList(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{name: "everything", query: "", wantCode: http.StatusOK, wantCount: 4},
		{name: "sales reps", query: "?sales_rep=Alice&sales_rep=Bob", wantCode: http.StatusOK, wantCount: 3},
		{name: "year", query: "?year=2024&product_line=Miscellaneous", wantCode: http.StatusOK, wantCount: 3},
		{name: "other product line", query: "?product_line=Novo", wantCode: http.StatusOK, wantCount: 0},
		{name: "paged", query: "?limit=1&offset=1", wantCode: http.StatusOK, wantCount: 1},
		{name: "bad year", query: "?year=12", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/harmonised"+tt.query, nil))

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var body routeharmonised.ListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCount, body.Count)
			assert.Len(t, body.Items, tt.wantCount)
		})
	}
}
