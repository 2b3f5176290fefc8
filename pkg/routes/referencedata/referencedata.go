package referencedata

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/spreadsheet"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type RateWriter interface {
	Upsert(ctx context.Context, rates []models.CommissionRate) (int64, error)
}

type ThresholdWriter interface {
	Upsert(ctx context.Context, thresholds []models.Threshold) (int64, error)
}

type Handler struct {
	rates      RateWriter
	thresholds ThresholdWriter
	maxBytes   int64
}

func NewHandler(rates RateWriter, thresholds ThresholdWriter, maxBytes int64) *Handler {
	return &Handler{rates: rates, thresholds: thresholds, maxBytes: maxBytes}
}

type UpsertResponse struct {
	Received int   `json:"received"`
	Upserted int64 `json:"upserted"`
}

// Register registers reference data routes
func (h *Handler) Register(g *echo.Group) {
	g.PUT("/commission-tiers", h.CommissionTiers)
	g.PUT("/thresholds", h.Thresholds)
}

// CommissionTiers loads the per rep tier rates. Changed rates take effect on
// the next import or rebuild of each vendor.
func (h *Handler) CommissionTiers(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "referencedata_handler.CommissionTiers")
	defer span.End()

	table, err := routes.ReadTable(c, h.maxBytes)
	if err != nil {
		return err
	}

	rates, problems := spreadsheet.CommissionRates(table)
	if len(problems) > 0 {
		return routes.ProblemsError("commission tiers", problems)
	}

	n, err := h.rates.Upsert(ctx, rates)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UpsertResponse{Received: len(rates), Upserted: n})
}

// Thresholds loads the tier 2 thresholds. Changed thresholds take effect on
// the next reconcile of each product line.
func (h *Handler) Thresholds(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "referencedata_handler.Thresholds")
	defer span.End()

	table, err := routes.ReadTable(c, h.maxBytes)
	if err != nil {
		return err
	}

	thresholds, problems := spreadsheet.Thresholds(table)
	if len(problems) > 0 {
		return routes.ProblemsError("thresholds", problems)
	}

	n, err := h.thresholds.Upsert(ctx, thresholds)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UpsertResponse{Received: len(thresholds), Upserted: n})
}
