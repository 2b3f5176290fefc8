package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Period is one commission month.
type Period struct {
	Year  int `json:"year" db:"year"`
	Month int `json:"month" db:"month"`
}

// String renders the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// RawSaleRow is one normalized vendor transaction line as stored in the
// vendor's master table. Rows are replaced per period, never updated.
type RawSaleRow struct {
	CommissionDate string `json:"commission_date" db:"Commission Date"`
	Year           int    `json:"year" db:"Commission Date YYYY" validate:"min=1900,max=9999"`
	Month          int    `json:"month" db:"Commission Date MM" validate:"min=1,max=12"`
	Num            string `json:"num" db:"Num"`
	SalesDate      string `json:"sales_date" db:"Sales Date"`
	Memo           string `json:"memo" db:"Memo/Description"`
	Invoiced       string `json:"invoiced" db:"Invoiced"`
	Paid           string `json:"paid" db:"Paid"`
	SalesRep       string `json:"sales_rep" db:"Sales Rep Name"`
	RowHash        string `json:"row_hash" db:"row_hash"`
}

func (r RawSaleRow) Period() Period {
	return Period{Year: r.Year, Month: r.Month}
}

// HarmonisedRecord is the canonical cross-vendor ledger row.
type HarmonisedRecord struct {
	Date          string              `json:"date" db:"Date"`
	Month         int                 `json:"month" db:"Date MM"`
	Year          int                 `json:"year" db:"Date YYYY"`
	SalesRep      string              `json:"sales_rep" db:"Sales Rep"`
	SalesActual   string              `json:"sales_actual" db:"Sales Actual"`
	RevActual     string              `json:"rev_actual" db:"Rev Actual"`
	ProductLine   string              `json:"product_line" db:"Product Line"`
	DataSource    string              `json:"data_source" db:"Data Source"`
	RowHash       string              `json:"row_hash" db:"row_hash"`
	CommTier1     decimal.NullDecimal `json:"comm_amount_tier_1" db:"Comm Amount tier 1"`
	CommTier2Diff decimal.NullDecimal `json:"comm_tier_2_diff_amount" db:"Comm tier 2 diff amount"`
	Tier2Date     *string             `json:"commission_tier_2_date" db:"Commission tier 2 date"`
}

// CommissionRate holds a sales rep's two commission rates.
type CommissionRate struct {
	SalesRep  string              `json:"sales_rep" db:"Sales Rep Name" validate:"required"`
	Tier1Rate decimal.NullDecimal `json:"tier_1_rate" db:"Commission tier 1 rate"`
	Tier2Rate decimal.NullDecimal `json:"tier_2_rate" db:"Commission tier 2 rate"`
}

// Threshold is the cumulative sales a rep must reach in a year before the
// tier 2 rate applies for a product line.
type Threshold struct {
	SalesRep    string          `json:"sales_rep" db:"Sales Rep name" validate:"required"`
	Year        int             `json:"year" db:"Year" validate:"min=1900,max=9999"`
	ProductLine string          `json:"product_line" db:"Product line" validate:"required"`
	Threshold   decimal.Decimal `json:"threshold" db:"Commission tier threshold"`
}

// GroupKey identifies one (sales rep, year) reconciliation group.
type GroupKey struct {
	SalesRep string
	Year     int
}
