package harmonised

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/harmonised"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

const defaultLimit = 500

type Lister interface {
	ListFiltered(ctx context.Context, filter harmonised.Filter) ([]models.HarmonisedRecord, error)
}

type Handler struct {
	lister Lister
}

func NewHandler(lister Lister) *Handler {
	return &Handler{lister: lister}
}

type ListResponse struct {
	Items  []models.HarmonisedRecord `json:"items"`
	Count  int                       `json:"count"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

// Register registers harmonised ledger routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
}

// List returns ledger rows filtered by product_line, data_source, sales_rep
// (repeatable) and year.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "harmonised_handler.List")
	defer span.End()

	filter, err := utils.BindRequest[harmonised.Filter](c)
	if err != nil {
		return err
	}
	if filter.Limit == 0 {
		filter.Limit = defaultLimit
	}

	items, err := h.lister.ListFiltered(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ListResponse{
		Items:  items,
		Count:  len(items),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}
