package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/models"
)

// PeriodList is the months a vendor has loaded.
type PeriodList struct {
	Vendor  string          `json:"vendor"`
	Periods []models.Period `json:"periods"`
}

func (p PeriodList) String() string {
	if len(p.Periods) == 0 {
		return fmt.Sprintf("%s: no periods loaded", p.Vendor)
	}
	names := make([]string, len(p.Periods))
	for i, period := range p.Periods {
		names[i] = period.String()
	}
	return fmt.Sprintf("%s: %s", p.Vendor, strings.Join(names, ", "))
}

// NewPeriodsCommand creates the periods command.
func NewPeriodsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "periods <vendor>",
		Short:         "List the months a vendor has loaded",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context(), rootOpts, app.Options{})
			if err != nil {
				return err
			}
			defer stop()

			vendor, err := a.Registry.Get(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "unknown vendor", err)
			}
			periods, err := a.RawSales.ListPeriods(cmd.Context(), vendor)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list periods", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(PeriodList{Vendor: vendor.Name, Periods: periods})
		},
	}
}
