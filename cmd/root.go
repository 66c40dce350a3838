// Package cmd implements the sta137 CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/app"
	"github.com/random-logic/sta137-final/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Format      string
	Out         string
	DB          string
	Timeout     string
	Concurrency int
	Rate        float64
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `sta137` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "sta137",
	Short: "sta137 — ARIMA modeling of annual import series",
	Long: `sta137 models a single annual time series end to end: load or fetch the
data, stabilize the variance with a Box-Cox transform, difference to
stationarity, search an ARIMA grid, check the residuals, and forecast.

Series come from a local CSV file or from the World Bank API v2
(https://api.worldbank.org/), which needs no key. The default series is
UK imports of goods and services (GBR / NE.IMP.GNFS.CD).

Quick start:
  sta137 fetch --store                # pull the default series and keep it
  sta137 report                       # full pipeline in one pass
  sta137 load data.csv | sta137 fit   # grid search on a local file`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.DB != "" {
		cfg.DBPath = globalFlags.DB
	}
	if globalFlags.Timeout != "" {
		if d, err2 := time.ParseDuration(globalFlags.Timeout); err2 == nil {
			cfg.Timeout = d
		}
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}

	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.DB, "db", "",
		"path to the local bbolt database (overrides env STA137_DB and config.json)")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"worker count for the parallel grid search (default: 4)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 5.0)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses")
}
