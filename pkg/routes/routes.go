// Package routes holds helpers shared by the HTTP handlers.
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/spreadsheet"
	"github.com/Ramsey-B/clover/pkg/utils"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

// FileField is the multipart field uploads are read from.
const FileField = "file"

// RunResponse carries the report of a pipeline run and, when it failed, the error.
type RunResponse struct {
	Report *report.Report            `json:"report"`
	Error  *middleware.ErrorResponse `json:"error,omitempty"`
}

// WriteRun answers with the report even when the run failed.
func WriteRun(c echo.Context, r *report.Report, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, RunResponse{Report: r})
	}
	code, body := middleware.NewErrorResponse(c, err)
	return c.JSON(code, RunResponse{Report: r, Error: &body})
}

// ReadTable reads the request body as a multipart upload (xlsx or csv) or as
// a JSON table.
func ReadTable(c echo.Context, maxBytes int64) (vendors.Table, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return readUpload(c, maxBytes)
	}
	return utils.BindRequest[vendors.Table](c)
}

func readUpload(c echo.Context, maxBytes int64) (vendors.Table, error) {
	if maxBytes > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxBytes)
	}

	header, err := c.FormFile(FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return vendors.Table{}, httperror.NewHTTPErrorf(http.StatusRequestEntityTooLarge, "upload exceeds %d bytes", maxBytes)
		}
		return vendors.Table{}, httperror.NewHTTPErrorf(http.StatusBadRequest, "multipart field %q is required", FileField)
	}

	file, err := header.Open()
	if err != nil {
		return vendors.Table{}, httperror.WrapError(http.StatusBadRequest, err)
	}
	defer file.Close()

	table, err := spreadsheet.ReadTable(file, header.Filename)
	if err != nil {
		return vendors.Table{}, httperror.WrapError(http.StatusBadRequest, fmt.Errorf("failed to read %s: %w", header.Filename, err))
	}
	return table, nil
}

// ProblemsError rejects reference data that failed to parse.
func ProblemsError(kind string, problems []string) error {
	return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: %s", kind, strings.Join(problems, "; "))
}
