package reconcile

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type Reconciler interface {
	Reconcile(ctx context.Context, productLine string) (*report.Report, error)
}

type Handler struct {
	reconciler Reconciler
}

func NewHandler(reconciler Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// Register registers reconcile routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/:productLine", h.Reconcile)
}

// Reconcile recomputes the tier 2 dates of one product line
func (h *Handler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "reconcile_handler.Reconcile")
	defer span.End()

	r, err := h.reconciler.Reconcile(ctx, c.Param("productLine"))
	return routes.WriteRun(c, r, err)
}
