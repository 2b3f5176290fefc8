package cli

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
)

// NewRebuildCommand creates the rebuild command.
func NewRebuildCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <vendor>",
		Short: "Re-harmonise a vendor's stored rows and reconcile its product line",
		Long: `Rebuild the vendor's share of the harmonised ledger from its stored raw
rows. Use it after commission tier rates change.`,
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
			r, err := a.Orchestrator.Rebuild(cmd.Context(), args[0])
			return formatter.Report(r, err)
		},
	}
}
