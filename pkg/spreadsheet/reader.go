// Package spreadsheet reads normalized vendor files and reference sheets.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Ramsey-B/clover/pkg/vendors"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")

// displayedNumber matches number-formatted cell text such as "1,200.50",
// "$3,000" or "(12.00)". Dates and free text never match.
var displayedNumber = regexp.MustCompile(`^\s*[-+(]?\s*[$€£]?\s*[\d,]*\.?\d+\s*[%)]?\s*$`)

// ReadTable picks the reader from the file extension.
func ReadTable(r io.Reader, filename string) (vendors.Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, "")
	case ".csv":
		return ReadCSV(r)
	default:
		return vendors.Table{}, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
}

// ReadXLSX reads sheet, or the first sheet when sheet is empty. The first
// row is the header.
func ReadXLSX(r io.Reader, sheet string) (vendors.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return vendors.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return vendors.Table{}, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return vendors.Table{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return vendors.Table{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	for i := range rows {
		for j := range rows[i] {
			if i < len(raw) && j < len(raw[i]) {
				rows[i][j] = cellValue(rows[i][j], raw[i][j])
			}
		}
	}
	return fromRows(rows)
}

// cellValue prefers the stored value of numeric cells over their display
// text, so number formats do not leak separators into amounts. Other cells,
// dates included, keep the text the workbook shows.
func cellValue(formatted, raw string) string {
	if formatted == raw || !displayedNumber.MatchString(formatted) {
		return formatted
	}
	if _, err := decimal.NewFromString(raw); err != nil {
		return formatted
	}
	return raw
}

// ReadCSV reads a comma separated file whose first record is the header.
func ReadCSV(r io.Reader) (vendors.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return vendors.Table{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (vendors.Table, error) {
	if len(rows) == 0 {
		return vendors.Table{}, errors.New("file is empty")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return vendors.Table{Columns: header, Rows: rows[1:]}, nil
}
