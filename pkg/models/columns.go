package models

// Raw vendor table columns. Normalized vendor files use the same headers.
const (
	ColumnCommissionDate     = "Commission Date"
	ColumnCommissionDateYYYY = "Commission Date YYYY"
	ColumnCommissionDateMM   = "Commission Date MM"
	ColumnNum                = "Num"
	ColumnSalesDate          = "Sales Date"
	ColumnMemo               = "Memo/Description"
	ColumnInvoiced           = "Invoiced"
	ColumnPaid               = "Paid"
	ColumnSalesRepName       = "Sales Rep Name"
	ColumnRowHash            = "row_hash"
)

// RawColumns is the full raw table column list in storage order.
var RawColumns = []string{
	ColumnCommissionDate,
	ColumnCommissionDateYYYY,
	ColumnCommissionDateMM,
	ColumnNum,
	ColumnSalesDate,
	ColumnMemo,
	ColumnInvoiced,
	ColumnPaid,
	ColumnSalesRepName,
	ColumnRowHash,
}

// harmonised_table columns.
const (
	HarmonisedTable           = "harmonised_table"
	ColumnDate                = "Date"
	ColumnDateMM              = "Date MM"
	ColumnDateYYYY            = "Date YYYY"
	ColumnSalesRep            = "Sales Rep"
	ColumnSalesActual         = "Sales Actual"
	ColumnRevActual           = "Rev Actual"
	ColumnProductLine         = "Product Line"
	ColumnDataSource          = "Data Source"
	ColumnCommTier1Amount     = "Comm Amount tier 1"
	ColumnCommTier2DiffAmount = "Comm tier 2 diff amount"
	ColumnCommTier2Date       = "Commission tier 2 date"
)

var HarmonisedColumns = []string{
	ColumnDate,
	ColumnDateMM,
	ColumnDateYYYY,
	ColumnSalesRep,
	ColumnSalesActual,
	ColumnRevActual,
	ColumnProductLine,
	ColumnDataSource,
	ColumnRowHash,
	ColumnCommTier1Amount,
	ColumnCommTier2DiffAmount,
	ColumnCommTier2Date,
}

// Reference data tables.
const (
	CommissionTierTable      = "sales_rep_commission_tier"
	ColumnTierSalesRepName   = "Sales Rep Name"
	ColumnTier1Rate          = "Commission tier 1 rate"
	ColumnTier2Rate          = "Commission tier 2 rate"
	ThresholdTable           = "sales_rep_commission_tier_threshold"
	ColumnThresholdSalesRep  = "Sales Rep name"
	ColumnThresholdYear      = "Year"
	ColumnThresholdProduct   = "Product line"
	ColumnThresholdValue     = "Commission tier threshold"
)
