package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/spreadsheet"
)

// SeedResult reports how many reference rows were loaded.
type SeedResult struct {
	CommissionTiers int64 `json:"commission_tiers"`
	Thresholds      int64 `json:"thresholds"`
}

func (r SeedResult) String() string {
	return fmt.Sprintf("loaded %d commission tier row(s) and %d threshold row(s)", r.CommissionTiers, r.Thresholds)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var tiersPath, thresholdsPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load commission tier rates and tier 2 thresholds",
		Long: `Load reference data from .xlsx or .csv sheets. Existing rows with the same
key are overwritten. Rebuild or reconcile afterwards for changes to reach
the ledger.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tiersPath == "" && thresholdsPath == "" {
				return NewExitError(ExitCommandError, "nothing to seed: pass --tiers and/or --thresholds")
			}

			var result SeedResult
			ctx := cmd.Context()

			a, stop, err := startApp(ctx, rootOpts, app.Options{})
			if err != nil {
				return err
			}
			defer stop()

			if tiersPath != "" {
				table, err := readTable(tiersPath, "")
				if err != nil {
					return err
				}
				rates, problems := spreadsheet.CommissionRates(table)
				if len(problems) > 0 {
					return NewExitError(ExitFailure, "invalid commission tiers: "+strings.Join(problems, "; "))
				}
				if result.CommissionTiers, err = a.Tiers.Upsert(ctx, rates); err != nil {
					return WrapExitError(ExitCommandError, "failed to load commission tiers", err)
				}
			}

			if thresholdsPath != "" {
				table, err := readTable(thresholdsPath, "")
				if err != nil {
					return err
				}
				thresholds, problems := spreadsheet.Thresholds(table)
				if len(problems) > 0 {
					return NewExitError(ExitFailure, "invalid thresholds: "+strings.Join(problems, "; "))
				}
				if result.Thresholds, err = a.Thresholds.Upsert(ctx, thresholds); err != nil {
					return WrapExitError(ExitCommandError, "failed to load thresholds", err)
				}
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(result)
		},
	}

	cmd.Flags().StringVar(&tiersPath, "tiers", "", "commission tier sheet (Sales Rep Name, Commission tier 1 rate, Commission tier 2 rate)")
	cmd.Flags().StringVar(&thresholdsPath, "thresholds", "", "threshold sheet (Sales Rep name, Year, Product line, Commission tier threshold)")
	return cmd
}
