package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/obcms/workledger/internal/cli"
	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Determine DB path: env var or default ~/.workledger/workledger.db
	dbPath := os.Getenv("WORKLEDGER_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".workledger", "workledger.db")
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	uow := db.NewSQLiteUnitOfWork(database)

	// Use-case telemetry goes to stderr only when it is not a terminal,
	// keeping interactive output clean while piped runs stay auditable.
	var observer service.UseCaseObserver = service.NoopUseCaseObserver{}
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		observer = service.NewLogUseCaseObserver(os.Stderr)
	}

	app := &cli.App{
		Tree:         service.NewTreeService(database, uow, observer),
		Ledger:       service.NewLedgerService(database, uow, observer),
		Distribution: service.NewDistributionService(database, uow, observer),
		Rollup:       service.NewRollupService(uow, observer),
		Tracking:     service.NewTrackingService(database, uow, observer),
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}
