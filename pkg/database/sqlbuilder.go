package database

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Quote renders a column name as a quoted SQL identifier. The ledger schema
// uses spreadsheet style headers ("Sales Rep", "Memo/Description"), so every
// column goes through here.
func Quote(column string) string {
	return `"` + strings.ReplaceAll(column, `"`, `""`) + `"`
}

// QuoteAll quotes each column.
func QuoteAll(columns ...string) []string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = Quote(c)
	}
	return quoted
}

// ValidTableName reports whether name is a plain lower-case identifier that is
// safe to place in a statement without binding.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

func Excluded(column string) string {
	return fmt.Sprintf("EXCLUDED.%s", Quote(column))
}

// OnConflictUpdate appends an upsert clause that overwrites updateColumns with
// the incoming values when conflictColumns collide.
func OnConflictUpdate(ib *sqlbuilder.InsertBuilder, conflictColumns []string, updateColumns []string) {
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		sets[i] = fmt.Sprintf("%s = %s", Quote(c), Excluded(c))
	}
	ib.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(QuoteAll(conflictColumns...), ", "), strings.Join(sets, ", ")))
}
