package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/search"
)

var (
	fitMaxP     int
	fitMaxQ     int
	fitD        int
	fitParallel bool
	fitNoBoxCox bool
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Grid-search ARIMA orders and select the best model",
	Long: `Fit estimates ARIMA(p,d,q) for every p in 0..max-p and q in 0..max-q by
conditional sum of squares, then selects the winner by AIC with BIC and
smaller orders breaking ties. A candidate that fails to converge is recorded
in place and never aborts the rest of the grid.

The series is Box-Cox transformed first (exponent estimated by profile
likelihood) unless --no-boxcox is given; differencing happens inside each
candidate fit.`,
	Example: `  sta137 fit
  sta137 fit --max-p 3 --max-q 3 --csv data.csv
  sta137 fit --parallel --format csv --out grid.csv
  sta137 load data.csv | sta137 fit --no-boxcox`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		maxP, maxQ := deps.Config.MaxP, deps.Config.MaxQ
		if fitMaxP >= 0 {
			maxP = fitMaxP
		}
		if fitMaxQ >= 0 {
			maxQ = fitMaxQ
		}
		if fitD < 1 {
			return fmt.Errorf("--d must be >= 1, got %d", fitD)
		}
		workers := 1
		if fitParallel {
			workers = deps.Config.Concurrency
		}

		start := time.Now()

		data, err := readSeriesInput(cmd.Context(), deps)
		if err != nil {
			return err
		}

		boxcox := deps.Config.BoxCox && !fitNoBoxCox
		working, _, warnings, err := prepareModelInput(data, boxcox)
		if err != nil {
			return err
		}

		grid, err := search.Grid(cmd.Context(), working, search.Options{
			MaxP:    maxP,
			MaxQ:    maxQ,
			D:       fitD,
			Workers: workers,
		})
		if err != nil {
			return err
		}

		best, err := search.SelectBest(grid)
		if err != nil {
			return err
		}

		result := &model.Result{
			Kind:        model.KindFitGrid,
			GeneratedAt: time.Now(),
			Command:     fmt.Sprintf("fit %s", data.SeriesID),
			Data:        &search.GridResult{Results: grid, Best: best},
			Warnings:    warnings,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      len(grid),
			},
		}
		format := resolveFormat(deps.Config.Format)
		if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
			return err
		}
		render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fitCmd)

	fitCmd.Flags().IntVar(&fitMaxP, "max-p", -1,
		"highest AR order tried, inclusive (default: 4)")
	fitCmd.Flags().IntVar(&fitMaxQ, "max-q", -1,
		"highest MA order tried, inclusive (default: 4)")
	fitCmd.Flags().IntVar(&fitD, "d", 1,
		"differencing order shared by every candidate")
	fitCmd.Flags().BoolVar(&fitParallel, "parallel", false,
		"fit candidates on a worker pool sized by --concurrency")
	fitCmd.Flags().BoolVar(&fitNoBoxCox, "no-boxcox", false,
		"model the raw scale without the variance-stabilizing transform")

	registerInputFlags(fitCmd)
}
