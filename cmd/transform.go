package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/transform"
)

var (
	transformOp     string
	transformLambda string
	transformOrder  int
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Apply a series transform: boxcox, log, diff, or none",
	Long: `Transform applies one operator to the input series and writes the result,
as JSONL when piped and as a table on a terminal. Chain operators by piping:

  sta137 load data.csv | sta137 transform --op boxcox | sta137 transform --op diff

Operators:
  boxcox   Box-Cox power transform; --lambda auto estimates the exponent by
           profile likelihood (printed to stderr), or pass a fixed value
  log      natural log; non-positive values become missing with a warning
  diff     successive differences of --order (default 1)
  none     pass-through, useful to convert CSV input to JSONL`,
	Example: `  sta137 load data.csv | sta137 transform --op boxcox
  sta137 transform --op boxcox --lambda 0.5 --csv data.csv
  sta137 fetch GBR | sta137 transform --op log | sta137 transform --op diff
  sta137 transform --op diff --order 2 --csv data.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()

		data, err := readSeriesInput(cmd.Context(), deps)
		if err != nil {
			return err
		}

		var (
			out      []model.Observation
			warnings []string
		)
		switch transformOp {
		case "boxcox":
			lambda, estimated, err := resolveLambda(data.Obs)
			if err != nil {
				return err
			}
			if estimated && !deps.Config.Quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "box-cox lambda %.4g (estimated)\n", lambda)
			}
			out, err = transform.BoxCoxObs(data.Obs, lambda)
			if err != nil {
				return err
			}
		case "log":
			out, warnings = transform.Log(data.Obs)
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %s\n", w)
			}
		case "diff":
			out, err = transform.Diff(data.Obs, transformOrder)
			if err != nil {
				return err
			}
		case "none":
			out = data.Obs
		default:
			return fmt.Errorf("unknown --op %q: expected boxcox|log|diff|none", transformOp)
		}

		result := &model.SeriesData{SeriesID: data.SeriesID, Obs: out}
		return writeSeriesOutput(fmt.Sprintf("transform --op %s", transformOp), result, warnings, start)
	},
}

// resolveLambda parses --lambda, estimating the exponent from the finite
// observations when set to auto. The second return reports whether the value
// was estimated rather than given.
func resolveLambda(obs []model.Observation) (float64, bool, error) {
	if transformLambda != "auto" {
		v, err := strconv.ParseFloat(transformLambda, 64)
		if err != nil {
			return 0, false, fmt.Errorf("--lambda: expected auto or a number, got %q", transformLambda)
		}
		return v, false, nil
	}

	var vals []float64
	for _, o := range obs {
		if !o.IsMissing() {
			vals = append(vals, o.Value)
		}
	}
	lambda, err := transform.EstimateLambda(vals)
	if err != nil {
		return 0, false, err
	}
	return lambda, true, nil
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().StringVar(&transformOp, "op", "",
		"operator: boxcox|log|diff|none (required)")
	transformCmd.Flags().StringVar(&transformLambda, "lambda", "auto",
		"Box-Cox exponent: auto (profile-likelihood estimate) or a number")
	transformCmd.Flags().IntVar(&transformOrder, "order", 1,
		"difference order for --op diff")
	transformCmd.MarkFlagRequired("op")

	registerInputFlags(transformCmd)
}
