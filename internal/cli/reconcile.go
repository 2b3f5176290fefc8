package cli

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
)

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <product-line>",
		Short: "Recompute the tier 2 start dates of a product line",
		Long: `Recompute every sales rep's tier 2 start date in a product line. Use it
after thresholds change.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context(), rootOpts, app.Options{})
			if err != nil {
				return err
			}
			defer stop()

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			r, err := a.Orchestrator.Reconcile(cmd.Context(), args[0])
			return formatter.Report(r, err)
		},
	}
}
