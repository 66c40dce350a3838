package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/model"
	"github.com/random-logic/sta137-final/internal/pipeline"
)

var (
	loadYearCol  string
	loadValueCol string
	loadSeriesID string
	loadSep      string
	loadStore    bool
)

var loadCmd = &cobra.Command{
	Use:   "load <file.csv>",
	Short: "Load an annual series from a CSV file",
	Long: `Load reads an annual series from a CSV file with a year column and a value
column. Years must be strictly increasing; empty or "." value cells become
missing observations. Year gaps are accepted here and reported as warnings.

On a terminal the series prints as a table; in a pipeline it is emitted as
JSONL for the downstream command.`,
	Example: `  sta137 load data.csv
  sta137 load data.csv --value-col Exports --series-id UK-EXPORTS
  sta137 load data.csv --store
  sta137 load data.csv | sta137 fit`,
	Args: cobra.ExactArgs(1),
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

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		opts := pipeline.CSVOptions{
			YearCol:  loadYearCol,
			ValueCol: loadValueCol,
			SeriesID: loadSeriesID,
		}
		if loadSep != "" {
			opts.Comma = rune(loadSep[0])
		}

		seriesID, obs, err := pipeline.ReadCSV(f, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		warnings, err := model.ValidateAnnual(obs)
		if err != nil {
			return err
		}

		data := &model.SeriesData{SeriesID: seriesID, Obs: obs}

		if loadStore {
			key, err := persistSeries(deps, data, 0, 0)
			if err != nil {
				return err
			}
			if !deps.Config.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Stored %s  (%d observations) as %s\n",
					seriesID, len(obs), key)
				for _, w := range warnings {
					fmt.Fprintf(cmd.OutOrStdout(), "  ⚠  %s\n", w)
				}
			}
			return nil
		}

		return writeSeriesOutput(fmt.Sprintf("load %s", args[0]), data, warnings, start)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVar(&loadYearCol, "year-col", "",
		"year column header (default: Year)")
	loadCmd.Flags().StringVar(&loadValueCol, "value-col", "",
		"value column header (default: Imports)")
	loadCmd.Flags().StringVar(&loadSeriesID, "series-id", "",
		"series id stamped on the rows (default: the value column header)")
	loadCmd.Flags().StringVar(&loadSep, "sep", "",
		"field separator (default: comma)")
	loadCmd.Flags().BoolVar(&loadStore, "store", false,
		"persist the series to the local database instead of printing it")
}
