package harmonisation

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/harmonised"
	"github.com/Ramsey-B/clover/pkg/apperrors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/report"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

// RawReader lists a vendor's stored raw rows.
type RawReader interface {
	ListByVendor(ctx context.Context, vendor vendors.Vendor) ([]models.RawSaleRow, error)
}

// RateReader lists the commission tier table.
type RateReader interface {
	ListAll(ctx context.Context) ([]models.CommissionRate, error)
}

// ScopeWriter replaces one (product line, data source) scope of the ledger.
type ScopeWriter interface {
	ReplaceScope(ctx context.Context, productLine, dataSource string, records []models.HarmonisedRecord) (*harmonised.ScopeResult, error)
}

// Service rebuilds one vendor's slice of the harmonised ledger from its raw table.
type Service struct {
	raw    RawReader
	rates  RateReader
	ledger ScopeWriter
	logger ectologger.Logger
}

// NewService creates a new harmonisation service.
func NewService(raw RawReader, rates RateReader, ledger ScopeWriter, logger ectologger.Logger) *Service {
	return &Service{
		raw:    raw,
		rates:  rates,
		ledger: ledger,
		logger: logger,
	}
}

type Result struct {
	Records  int                          `json:"records"`
	Deleted  int64                        `json:"deleted"`
	Inserted int64                        `json:"inserted"`
	Gaps     []apperrors.ConfigurationGap `json:"gaps,omitempty"`
}

// Harmonise recomputes and replaces the vendor's (product line, data source) scope.
func (s *Service) Harmonise(ctx context.Context, vendor vendors.Vendor) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "harmonisation.Service.Harmonise")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"vendor":       vendor.Name,
		"product_line": vendor.ProductLine,
		"data_source":  vendor.DataSource,
	})

	rows, err := s.raw.ListByVendor(ctx, vendor)
	if err != nil {
		return nil, apperrors.NewPersistenceError(string(report.StageHarmonise), err)
	}
	rates, err := s.rates.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError(string(report.StageHarmonise), err)
	}

	records, gaps := Map(vendor, rows, rates)
	for _, gap := range gaps {
		log.WithField("sales_rep", gap.SalesRep).Warn(gap.String())
	}

	scope, err := s.ledger.ReplaceScope(ctx, vendor.ProductLine, vendor.DataSource, records)
	if err != nil {
		return nil, apperrors.NewPersistenceError(string(report.StageHarmonise), err)
	}

	log.WithFields(map[string]any{"records": len(records), "gaps": len(gaps)}).Info("Harmonised vendor")
	return &Result{
		Records:  len(records),
		Deleted:  scope.Deleted,
		Inserted: scope.Inserted,
		Gaps:     gaps,
	}, nil
}
