package imports

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

type Importer interface {
	ImportPeriod(ctx context.Context, vendorName string, table vendors.Table) (*report.Report, error)
}

type Handler struct {
	importer Importer
	maxBytes int64
	logger   ectologger.Logger
}

func NewHandler(importer Importer, maxBytes int64, logger ectologger.Logger) *Handler {
	return &Handler{importer: importer, maxBytes: maxBytes, logger: logger}
}

// Register registers import routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/:vendor", h.Import)
}

// Import handles POST /imports/:vendor. The body is a JSON table or a
// multipart xlsx/csv upload in the "file" field.
func (h *Handler) Import(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "imports_handler.Import")
	defer span.End()

	table, err := routes.ReadTable(c, h.maxBytes)
	if err != nil {
		return err
	}

	r, err := h.importer.ImportPeriod(ctx, c.Param("vendor"), table)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"run_id":       r.RunID,
			"failed_stage": r.FailedStage,
		}).Warn("Import request failed")
	}
	return routes.WriteRun(c, r, err)
}
