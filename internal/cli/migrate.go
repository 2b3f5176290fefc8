package cli

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the bundled database schema",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stop, err := startApp(cmd.Context(), rootOpts, app.Options{Migrate: true, SkipPipeline: true})
			if err != nil {
				return err
			}
			defer stop()

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success("migrations applied")
		},
	}
}
