package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Save and replay exact command lines",
	Long: `Saved runs record a sta137 command line so the same analysis can be
replayed later against the same stored data.

  sta137 run save --name "uk-imports" --cmd "report --csv data.csv --horizon 10"
  sta137 run list
  sta137 run replay <ID>`,
}

// ─── run save ─────────────────────────────────────────────────────────────────

var (
	runSaveName string
	runSaveCmd  string
)

var runSaveCommand = &cobra.Command{
	Use:   "save",
	Short: "Save a command line as a named run",
	Example: `  sta137 run save --name "uk-imports" --cmd "report --csv data.csv"
  sta137 run save --name "us-forecast" --cmd "forecast --country USA --horizon 10"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runSaveName == "" {
			return fmt.Errorf("--name is required")
		}
		if runSaveCmd == "" {
			return fmt.Errorf("--cmd is required")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		id := newRunID()
		r := store.Run{
			ID:          id,
			Name:        runSaveName,
			CommandLine: runSaveCmd,
			CreatedAt:   time.Now().UTC(),
		}
		if err := st.PutRun(r); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved run %s  (%s)\n", id, runSaveName)
		return nil
	},
}

// ─── run list ─────────────────────────────────────────────────────────────────

var runListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all saved runs",
	Example: `  sta137 run list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		runs, err := st.ListRuns()
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs saved.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: sta137 run save --name <name> --cmd \"<command>\"")
			return nil
		}

		printSimpleTable(cmd.OutOrStdout(), []string{"ID", "NAME", "COMMAND", "CREATED"}, func(add func(...string)) {
			for _, r := range runs {
				cmdPreview := r.CommandLine
				if len(cmdPreview) > 50 {
					cmdPreview = cmdPreview[:47] + "..."
				}
				add(r.ID, r.Name, cmdPreview, r.CreatedAt.Format("2006-01-02 15:04"))
			}
		})
		return nil
	},
}

// ─── run show ─────────────────────────────────────────────────────────────────

var runShowCmd = &cobra.Command{
	Use:     "show <ID>",
	Short:   "Show full details of a saved run",
	Example: `  sta137 run show 202608251142...`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		r, ok, err := st.GetRun(args[0])
		if err != nil {
			return fmt.Errorf("reading run: %w", err)
		}
		if !ok {
			return fmt.Errorf("run %q not found", args[0])
		}

		printSimpleTable(cmd.OutOrStdout(), []string{"FIELD", "VALUE"}, func(add func(...string)) {
			add("ID", r.ID)
			add("Name", r.Name)
			add("Command", r.CommandLine)
			add("Created", r.CreatedAt.Format(time.RFC3339))
		})
		return nil
	},
}

// ─── run replay ───────────────────────────────────────────────────────────────

var runReplayCmd = &cobra.Command{
	Use:     "replay <ID>",
	Short:   "Re-execute a saved run",
	Example: `  sta137 run replay 202608251142...`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}

		// Read the run BEFORE closing the store
		r, ok, err := st.GetRun(args[0])
		deps.Close() // Close now — child process will open its own handle
		if err != nil {
			return fmt.Errorf("reading run: %w", err)
		}
		if !ok {
			return fmt.Errorf("run %q not found", args[0])
		}

		// Re-execute using the current binary with the stored command line.
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("finding executable: %w", err)
		}

		parts := strings.Fields(r.CommandLine)
		c := exec.CommandContext(cmd.Context(), self, parts...)
		c.Stdout = cmd.OutOrStdout()
		c.Stderr = cmd.ErrOrStderr()

		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "▶ %s %s\n\n", self, r.CommandLine)
		}
		return c.Run()
	},
}

// ─── run delete ───────────────────────────────────────────────────────────────

var runDeleteCmd = &cobra.Command{
	Use:     "delete <ID>",
	Short:   "Delete a saved run",
	Example: `  sta137 run delete 202608251142...`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}
		defer deps.Close()

		r, ok, err := st.GetRun(args[0])
		if err != nil {
			return fmt.Errorf("reading run: %w", err)
		}
		if !ok {
			return fmt.Errorf("run %q not found", args[0])
		}

		if err := st.DeleteRun(args[0]); err != nil {
			return fmt.Errorf("deleting run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted run %s  (%s)\n", r.ID, r.Name)
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runSaveCommand)
	runCmd.AddCommand(runListCmd)
	runCmd.AddCommand(runShowCmd)
	runCmd.AddCommand(runReplayCmd)
	runCmd.AddCommand(runDeleteCmd)

	runSaveCommand.Flags().StringVar(&runSaveName, "name", "", "human-readable name for the run (required)")
	runSaveCommand.Flags().StringVar(&runSaveCmd, "cmd", "", "command line to save, without the binary name (required)")
	runSaveCommand.MarkFlagRequired("name")
	runSaveCommand.MarkFlagRequired("cmd")
}

// ─── ID generation ────────────────────────────────────────────────────────────

// newRunID generates a time-sortable run ID.
// Format: YYYYMMDDHHmmss + 4 random hex chars — no external dependency needed.
func newRunID() string {
	now := time.Now().UTC()
	base := now.Format("20060102150405")
	// Add pseudo-random suffix from nanoseconds
	nano := now.UnixNano() & 0xFFFF
	return fmt.Sprintf("%s%04x", base, nano)
}
