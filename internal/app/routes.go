package app

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/routes/harmonised"
	"github.com/Ramsey-B/clover/pkg/routes/imports"
	"github.com/Ramsey-B/clover/pkg/routes/reconcile"
	"github.com/Ramsey-B/clover/pkg/routes/referencedata"
	"github.com/Ramsey-B/clover/pkg/routes/vendors"
)

func (a *App) registerRoutes(api *echo.Group) {
	maxBytes := a.Config.MaxUploadBytes

	imports.NewHandler(a.Orchestrator, maxBytes, a.Logger).Register(api.Group("/imports"))
	vendors.NewHandler(a.Registry, a.RawSales, a.Orchestrator).Register(api.Group("/vendors"))
	reconcile.NewHandler(a.Orchestrator).Register(api.Group("/reconcile"))
	harmonised.NewHandler(a.Ledger).Register(api.Group("/harmonised"))
	referencedata.NewHandler(a.Tiers, a.Thresholds, maxBytes).Register(api.Group("/reference"))
}
