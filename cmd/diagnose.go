package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/arima"
	"github.com/random-logic/sta137-final/internal/diagnose"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/search"
)

var (
	diagnoseP        int
	diagnoseQ        int
	diagnoseD        int
	diagnoseParallel bool
	diagnoseNoBoxCox bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run residual diagnostics on the selected model",
	Long: `Diagnose fits a model and runs the residual battery: Ljung-Box for
leftover autocorrelation, Shapiro-Wilk for normality, and an ARCH test for
conditional heteroskedasticity, each at alpha 0.05. A lag-by-lag Ljung-Box
sweep and Q-Q data ride along for charting.

By default the model comes from the same grid search as fit; pass --p and
--q together to diagnose one fixed order instead.`,
	Example: `  sta137 diagnose
  sta137 diagnose --p 0 --q 1 --csv data.csv
  sta137 load data.csv | sta137 diagnose --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		if (diagnoseP >= 0) != (diagnoseQ >= 0) {
			return fmt.Errorf("--p and --q must be given together")
		}
		if diagnoseD < 1 {
			return fmt.Errorf("--d must be >= 1, got %d", diagnoseD)
		}

		start := time.Now()

		data, err := readSeriesInput(cmd.Context(), deps)
		if err != nil {
			return err
		}

		boxcox := deps.Config.BoxCox && !diagnoseNoBoxCox
		working, _, warnings, err := prepareModelInput(data, boxcox)
		if err != nil {
			return err
		}

		var (
			residuals []float64
			fitdf     int
			modelName string
		)
		if diagnoseP >= 0 {
			c := arima.Candidate{P: diagnoseP, D: diagnoseD, Q: diagnoseQ}
			m, err := arima.Fit(working, c)
			if err != nil {
				return err
			}
			if !m.Converged {
				warnings = append(warnings, fmt.Sprintf("%s did not converge after %d iterations; residuals may be unreliable", c, m.Iterations))
			}
			residuals = m.Residuals()
			fitdf = c.P + c.Q
			modelName = c.String()
		} else {
			workers := 1
			if diagnoseParallel {
				workers = deps.Config.Concurrency
			}
			grid, err := search.Grid(cmd.Context(), working, search.Options{
				MaxP:    deps.Config.MaxP,
				MaxQ:    deps.Config.MaxQ,
				D:       diagnoseD,
				Workers: workers,
			})
			if err != nil {
				return err
			}
			best, err := search.SelectBest(grid)
			if err != nil {
				return err
			}
			residuals = best.Residuals
			fitdf = best.Candidate.P + best.Candidate.Q
			modelName = best.Candidate.String()
		}

		diag, err := diagnose.Run(residuals, fitdf)
		if err != nil {
			return err
		}

		result := &model.Result{
			Kind:        model.KindDiagnostic,
			GeneratedAt: time.Now(),
			Command:     fmt.Sprintf("diagnose %s %s", data.SeriesID, modelName),
			Data:        diag,
			Warnings:    warnings,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      diag.N,
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
	rootCmd.AddCommand(diagnoseCmd)

	diagnoseCmd.Flags().IntVar(&diagnoseP, "p", -1,
		"fixed AR order; skips the grid search (use with --q)")
	diagnoseCmd.Flags().IntVar(&diagnoseQ, "q", -1,
		"fixed MA order; skips the grid search (use with --p)")
	diagnoseCmd.Flags().IntVar(&diagnoseD, "d", 1,
		"differencing order")
	diagnoseCmd.Flags().BoolVar(&diagnoseParallel, "parallel", false,
		"fit grid candidates on a worker pool sized by --concurrency")
	diagnoseCmd.Flags().BoolVar(&diagnoseNoBoxCox, "no-boxcox", false,
		"model the raw scale without the variance-stabilizing transform")

	registerInputFlags(diagnoseCmd)
}
