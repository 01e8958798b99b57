package cli

import (
	"github.com/spf13/cobra"

	"github.com/obcms/workledger/internal/service"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Tree         service.TreeService
	Ledger       service.LedgerService
	Distribution service.DistributionService
	Rollup       service.RollupService
	Tracking     service.TrackingService

	Actor  string
	Tenant string
}

// NewRootCmd creates the top-level "workledger" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "workledger",
		Short: "Hierarchical work breakdown and budget integrity ledger",
	}

	root.PersistentFlags().StringVar(&app.Actor, "actor", "cli", "Acting user recorded on mutations")
	root.PersistentFlags().StringVar(&app.Tenant, "tenant", "", "Tenant tag recorded on new entities")

	root.AddCommand(
		newEnvelopeCmd(app),
		newTreeCmd(app),
		newLedgerCmd(app),
		newDistributeCmd(app),
		newTrackingCmd(app),
	)

	return root
}
