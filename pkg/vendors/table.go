package vendors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// RequiredColumns are the normalized headers every vendor table must carry.
var RequiredColumns = []string{
	models.ColumnCommissionDate,
	models.ColumnCommissionDateYYYY,
	models.ColumnCommissionDateMM,
	models.ColumnNum,
	models.ColumnSalesDate,
	models.ColumnMemo,
	models.ColumnInvoiced,
	models.ColumnPaid,
	models.ColumnSalesRepName,
}

// Table is a normalized vendor file: a header row and data rows aligned to it.
type Table struct {
	Columns []string   `json:"columns" validate:"required,min=1"`
	Rows    [][]string `json:"rows"`
}

// MissingColumns lists the entries of required that the header lacks.
// Header matching ignores surrounding whitespace.
func (t Table) MissingColumns(required []string) []string {
	have := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		have[strings.TrimSpace(c)] = struct{}{}
	}
	var missing []string
	for _, c := range required {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// SaleRows converts the table into raw sale rows. Every row problem is
// collected; rows are only returned when there are none.
func (t Table) SaleRows() ([]models.RawSaleRow, []string) {
	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		index[strings.TrimSpace(c)] = i
	}
	cell := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var problems []string
	rows := make([]models.RawSaleRow, 0, len(t.Rows))
	for n, raw := range t.Rows {
		if isBlank(raw) {
			continue
		}
		line := n + 2 // header is line 1
		before := len(problems)

		year, err := wholeNumber(cell(raw, models.ColumnCommissionDateYYYY))
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %s %v", line, models.ColumnCommissionDateYYYY, err))
		}
		month, err := wholeNumber(cell(raw, models.ColumnCommissionDateMM))
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %s %v", line, models.ColumnCommissionDateMM, err))
		}

		row := models.RawSaleRow{
			CommissionDate: cell(raw, models.ColumnCommissionDate),
			Year:           year,
			Month:          month,
			Num:            cell(raw, models.ColumnNum),
			SalesDate:      cell(raw, models.ColumnSalesDate),
			Memo:           cell(raw, models.ColumnMemo),
			Invoiced:       cell(raw, models.ColumnInvoiced),
			Paid:           cell(raw, models.ColumnPaid),
			SalesRep:       cell(raw, models.ColumnSalesRepName),
		}
		if len(problems) == before {
			for _, p := range utils.Problems(row) {
				problems = append(problems, fmt.Sprintf("row %d: %s", line, p))
			}
		}
		rows = append(rows, row)
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return rows, nil
}

// wholeNumber accepts "3", "03" and spreadsheet floats such as "3.0".
func wholeNumber(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(d.IntPart()), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
