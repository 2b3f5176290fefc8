package imports_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/testutil"
	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/routes/imports"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

type stubImporter struct {
	vendor string
	table  vendors.Table
	err    error
}

func (s *stubImporter) ImportPeriod(_ context.Context, vendorName string, table vendors.Table) (*report.Report, error) {
	s.vendor = vendorName
	s.table = table
	r := report.New(vendorName, "Miscellaneous")
	if s.err != nil {
		r.Record(report.StageValidate, report.StatusFailed, 0)
	}
	return r, s.err
}

func newServer(importer imports.Importer, maxBytes int64) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testutil.Logger())
	e.Use(middleware.Context())
	imports.NewHandler(importer, maxBytes, testutil.Logger()).Register(e.Group("/api/v1/imports"))
	return e
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) routes.RunResponse {
	t.Helper()
	var body routes.RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestImport_JSON(t *testing.T) {
	importer := &stubImporter{}
	e := newServer(importer, 0)

	body := `{"columns":["Sales Rep Name","Paid"],"rows":[["Alice","100"]]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/ternio", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ternio", importer.vendor)
	assert.Equal(t, [][]string{{"Alice", "100"}}, importer.table.Rows)

	resp := decode(t, rec)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "ternio", resp.Report.Vendor)
	assert.Nil(t, resp.Error)
}

func TestImport_JSONWithoutColumns(t *testing.T) {
	importer := &stubImporter{}
	e := newServer(importer, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/ternio", strings.NewReader(`{"rows":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, importer.vendor)
}

func TestImport_Upload(t *testing.T) {
	importer := &stubImporter{}
	e := newServer(importer, 1<<20)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(routes.FileField, "january.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Sales Rep Name,Paid\nAlice,100\nBob,50\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/chemence", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "chemence", importer.vendor)
	assert.Equal(t, []string{"Sales Rep Name", "Paid"}, importer.table.Columns)
	assert.Len(t, importer.table.Rows, 2)
}

func TestImport_UploadWrongField(t *testing.T) {
	e := newServer(&stubImporter{}, 1<<20)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("attachment", "january.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("a\n1\n"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/ternio", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImport_FailureStillReturnsReport(t *testing.T) {
	importer := &stubImporter{err: &apperrors.ValidationError{Vendor: "ternio", Missing: []string{"Paid"}}}
	e := newServer(importer, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/ternio", strings.NewReader(`{"columns":["Sales Rep Name"],"rows":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Report)
	require.NotNil(t, resp.Error)
	assert.Equal(t, report.StageValidate, resp.Report.FailedStage)
	assert.Contains(t, resp.Error.Meta, "missing_columns")
}
