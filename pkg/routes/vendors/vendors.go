package vendors

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

type PeriodLister interface {
	ListPeriods(ctx context.Context, vendor vendors.Vendor) ([]models.Period, error)
}

type Rebuilder interface {
	Rebuild(ctx context.Context, vendorName string) (*report.Report, error)
}

type Handler struct {
	registry  *vendors.Registry
	periods   PeriodLister
	rebuilder Rebuilder
}

func NewHandler(registry *vendors.Registry, periods PeriodLister, rebuilder Rebuilder) *Handler {
	return &Handler{registry: registry, periods: periods, rebuilder: rebuilder}
}

type VendorListResponse struct {
	Items []vendors.Vendor `json:"items"`
}

type PeriodListResponse struct {
	Vendor  string          `json:"vendor"`
	Periods []models.Period `json:"periods"`
}

// Register registers vendor routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:vendor/periods", h.Periods)
	g.POST("/:vendor/rebuild", h.Rebuild)
}

// List returns the registered vendors
func (h *Handler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, VendorListResponse{Items: h.registry.List()})
}

// Periods returns the months a vendor has loaded
func (h *Handler) Periods(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "vendors_handler.Periods")
	defer span.End()

	vendor, err := h.registry.Get(c.Param("vendor"))
	if err != nil {
		return err
	}

	periods, err := h.periods.ListPeriods(ctx, vendor)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PeriodListResponse{Vendor: vendor.Name, Periods: periods})
}

// Rebuild re-harmonises a vendor's stored rows and reconciles its product line
func (h *Handler) Rebuild(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "vendors_handler.Rebuild")
	defer span.End()

	r, err := h.rebuilder.Rebuild(ctx, c.Param("vendor"))
	return routes.WriteRun(c, r, err)
}
