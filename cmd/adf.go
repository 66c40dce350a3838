package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/render"
	"github.com/random-logic/sta137-final/internal/stats"
	"github.com/random-logic/sta137-final/internal/transform"
)

var (
	adfDiff   int
	adfMaxLag int
)

var adfCmd = &cobra.Command{
	Use:   "adf",
	Short: "Augmented Dickey-Fuller stationarity test",
	Long: `ADF runs the Augmented Dickey-Fuller unit-root test on the input series.
The null hypothesis is a unit root; p < 0.05 rejects it and the series is
reported stationary.

The test is applied to the series exactly as given. Use --diff to difference
first, or pipe through transform:

  sta137 load data.csv | sta137 transform --op boxcox | sta137 adf --diff 1`,
	Example: `  sta137 adf
  sta137 adf --diff 1 --csv data.csv
  sta137 load data.csv | sta137 adf --diff 1 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()
		if adfDiff < 0 {
			return fmt.Errorf("--diff must be >= 0, got %d", adfDiff)
		}

		start := time.Now()

		data, err := readSeriesInput(cmd.Context(), deps)
		if err != nil {
			return err
		}

		var warnings []string
		ordWarnings, err := model.ValidateAnnual(data.Obs)
		if err != nil {
			return err
		}
		warnings = append(warnings, ordWarnings...)

		obs, trimWarnings, err := model.CompleteValues(data.Obs)
		if err != nil {
			return err
		}
		warnings = append(warnings, trimWarnings...)

		values := model.Values(obs)
		if adfDiff > 0 {
			values, err = transform.Difference(values, adfDiff)
			if err != nil {
				return err
			}
		}

		adf, err := stats.ADF(values, adfMaxLag)
		if err != nil {
			return err
		}

		result := &model.Result{
			Kind:        model.KindADF,
			GeneratedAt: time.Now(),
			Command:     fmt.Sprintf("adf %s", data.SeriesID),
			Data:        adf,
			Warnings:    warnings,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      adf.NObs,
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
	rootCmd.AddCommand(adfCmd)

	adfCmd.Flags().IntVar(&adfDiff, "diff", 0,
		"difference the series n times before testing")
	adfCmd.Flags().IntVar(&adfMaxLag, "max-lag", -1,
		"highest augmentation lag tried (-1 = Schwert bound)")

	registerInputFlags(adfCmd)
}
