package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/spreadsheet"
	"github.com/Ramsey-B/clover/pkg/vendors"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "import <vendor> <file>",
		Short: "Import a normalized vendor file",
		Long: `Import a normalized .xlsx or .csv vendor file.

The file's periods replace what the vendor had stored for them, the vendor's
share of the harmonised ledger is rebuilt and the product line is reconciled.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTable(args[1], sheet)
			if err != nil {
				return err
			}

			a, stop, err := startApp(cmd.Context(), rootOpts, app.Options{})
			if err != nil {
				return err
			}
			defer stop()

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			r, err := a.Orchestrator.ImportPeriod(cmd.Context(), args[0], table)
			return formatter.Report(r, err)
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "workbook sheet to read (default: first sheet)")
	return cmd
}

func readTable(path, sheet string) (vendors.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return vendors.Table{}, WrapExitError(ExitCommandError, "failed to open file", err)
	}
	defer f.Close()

	var table vendors.Table
	if sheet != "" && strings.EqualFold(filepath.Ext(path), ".xlsx") {
		table, err = spreadsheet.ReadXLSX(f, sheet)
	} else {
		table, err = spreadsheet.ReadTable(f, path)
	}
	if err != nil {
		return vendors.Table{}, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
	}
	return table, nil
}
