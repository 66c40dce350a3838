package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/forecast"
	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/search"
)

var (
	forecastHorizon  int
	forecastLevel    float64
	forecastOriginal bool
	forecastStrict   bool
	forecastD        int
	forecastParallel bool
	forecastNoBoxCox bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast future years with prediction intervals",
	Long: `Forecast selects the best ARIMA model by grid search and projects the
series h steps ahead with a prediction interval at the given level. When
the Box-Cox transform was applied, the mean and bounds are mapped back to
the original measurement scale; an interval bound outside the invertible
domain is clamped to the domain edge with a warning, or rejected outright
under --strict.

Pass --original=false to see the model's own transformed-scale output.`,
	Example: `  sta137 forecast
  sta137 forecast --horizon 10 --level 0.9 --csv data.csv
  sta137 load data.csv | sta137 forecast --format csv --out forecast.csv
  sta137 forecast --original=false --strict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		horizon := deps.Config.Horizon
		if forecastHorizon > 0 {
			horizon = forecastHorizon
		}
		level := deps.Config.Level
		if forecastLevel > 0 {
			level = forecastLevel
		}
		if level <= 0 || level >= 1 {
			return fmt.Errorf("--level must be in (0, 1), got %g", level)
		}
		if forecastD < 1 {
			return fmt.Errorf("--d must be >= 1, got %d", forecastD)
		}
		workers := 1
		if forecastParallel {
			workers = deps.Config.Concurrency
		}

		start := time.Now()

		data, err := readSeriesInput(cmd.Context(), deps)
		if err != nil {
			return err
		}

		boxcox := deps.Config.BoxCox && !forecastNoBoxCox
		working, params, warnings, err := prepareModelInput(data, boxcox)
		if err != nil {
			return err
		}
		anchor, err := lastYear(data)
		if err != nil {
			return err
		}

		grid, err := search.Grid(cmd.Context(), working, search.Options{
			MaxP:    deps.Config.MaxP,
			MaxQ:    deps.Config.MaxQ,
			D:       forecastD,
			Workers: workers,
		})
		if err != nil {
			return err
		}
		best, err := search.SelectBest(grid)
		if err != nil {
			return err
		}

		fc, err := best.Model.Forecast(horizon, level)
		if err != nil {
			return err
		}
		out, err := forecast.Apply(fc, params, forecast.Options{
			LastYear: anchor,
			Strict:   forecastStrict,
		})
		if err != nil {
			return err
		}
		warnings = append(warnings, out.Warnings...)

		display := out
		if !forecastOriginal {
			display = transformedScaleCopy(out)
		}

		result := &model.Result{
			Kind:        model.KindForecast,
			GeneratedAt: time.Now(),
			Command:     fmt.Sprintf("forecast %s %s", data.SeriesID, best.Candidate),
			Data:        display,
			Warnings:    warnings,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      out.Horizon,
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

// transformedScaleCopy swaps the model's own transformed-scale path into the
// display slots, for --original=false. Clamping only happens during
// inversion, so the copy carries no clamp flags.
func transformedScaleCopy(out *forecast.Result) *forecast.Result {
	cp := *out
	cp.Mean = out.MeanTransformed
	cp.Lower = out.LowerTransformed
	cp.Upper = out.UpperTransformed
	cp.Clamped = make([]bool, out.Horizon)
	return &cp
}

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().IntVar(&forecastHorizon, "horizon", 0,
		"forecast steps (default: 5)")
	forecastCmd.Flags().Float64Var(&forecastLevel, "level", 0,
		"prediction interval coverage in (0, 1) (default: 0.95)")
	forecastCmd.Flags().BoolVar(&forecastOriginal, "original", true,
		"report on the original measurement scale")
	forecastCmd.Flags().BoolVar(&forecastStrict, "strict", false,
		"error on out-of-domain interval bounds instead of clamping")
	forecastCmd.Flags().IntVar(&forecastD, "d", 1,
		"differencing order")
	forecastCmd.Flags().BoolVar(&forecastParallel, "parallel", false,
		"fit grid candidates on a worker pool sized by --concurrency")
	forecastCmd.Flags().BoolVar(&forecastNoBoxCox, "no-boxcox", false,
		"model the raw scale without the variance-stabilizing transform")

	registerInputFlags(forecastCmd)
}
