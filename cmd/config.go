package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/random-logic/sta137-final/internal/config"
	"github.com/random-logic/sta137-final/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sta137 configuration",
	Long: `Read and write sta137 configuration stored in config.json.

The file lives at os.UserConfigDir()/sta137/config.json unless STA137_CONFIG
points elsewhere. Environment variables override the file; CLI flags override
both.`,
}

// ─── config init ──────────────────────────────────────────────────────────────

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Defaults model UK imports (GBR / NE.IMP.GNFS.CD); edit to taste.")
		return nil
	},
}

// ─── config show ──────────────────────────────────────────────────────────────

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		switch resolveFormat(cfg.Format) {
		case render.FormatJSON, render.FormatJSONL:
			type configOut struct {
				Country     string  `json:"country"`
				Indicator   string  `json:"indicator"`
				Horizon     int     `json:"horizon"`
				Level       float64 `json:"level"`
				MaxP        int     `json:"max_p"`
				MaxQ        int     `json:"max_q"`
				BoxCox      bool    `json:"boxcox"`
				Format      string  `json:"default_format"`
				Timeout     string  `json:"timeout"`
				Concurrency int     `json:"concurrency"`
				Rate        float64 `json:"rate"`
				BaseURL     string  `json:"base_url"`
				DBPath      string  `json:"db_path"`
				ConfigFile  string  `json:"config_file"`
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				Country:     cfg.Country,
				Indicator:   cfg.Indicator,
				Horizon:     cfg.Horizon,
				Level:       cfg.Level,
				MaxP:        cfg.MaxP,
				MaxQ:        cfg.MaxQ,
				BoxCox:      cfg.BoxCox,
				Format:      cfg.Format,
				Timeout:     cfg.Timeout.String(),
				Concurrency: cfg.Concurrency,
				Rate:        cfg.Rate,
				BaseURL:     cfg.BaseURL,
				DBPath:      cfg.DBPath,
				ConfigFile:  src,
			})
		default:
			printKVTable(cmd.OutOrStdout(), [][]string{
				{"country", cfg.Country},
				{"indicator", cfg.Indicator},
				{"horizon", strconv.Itoa(cfg.Horizon)},
				{"level", fmt.Sprintf("%g", cfg.Level)},
				{"max_p", strconv.Itoa(cfg.MaxP)},
				{"max_q", strconv.Itoa(cfg.MaxQ)},
				{"boxcox", strconv.FormatBool(cfg.BoxCox)},
				{"default_format", cfg.Format},
				{"timeout", cfg.Timeout.String()},
				{"concurrency", strconv.Itoa(cfg.Concurrency)},
				{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
				{"base_url", cfg.BaseURL},
				{"db_path", cfg.DBPath},
				{"config_file", src},
			})
			return nil
		}
	},
}

// ─── config set ───────────────────────────────────────────────────────────────

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  sta137 config set country USA
  sta137 config set horizon 10
  sta137 config set boxcox false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		// Load the existing file or start from the template
		f, path, err := loadConfigFile()
		if err != nil {
			if path, err = config.Path(); err != nil {
				return err
			}
			f = config.Template()
		}

		switch key {
		case "country":
			f.Country = strings.ToUpper(val)
		case "indicator":
			f.Indicator = strings.ToUpper(val)
		case "horizon":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("horizon must be an integer")
			}
			f.Horizon = n
		case "level":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("level must be a number")
			}
			f.Level = v
		case "max_p":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("max_p must be an integer")
			}
			f.MaxP = &n
		case "max_q":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("max_q must be an integer")
			}
			f.MaxQ = &n
		case "boxcox":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("boxcox must be true or false")
			}
			f.BoxCox = &b
		case "default_format", "format":
			f.DefaultFormat = val
		case "timeout":
			f.Timeout = val
		case "concurrency":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("concurrency must be an integer")
			}
			f.Concurrency = n
		case "rate":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("rate must be a number")
			}
			f.Rate = v
		case "base_url":
			f.BaseURL = val
		case "db_path":
			f.DBPath = val
		default:
			return fmt.Errorf("unknown config key: %q\n\nValid keys: country, indicator, horizon, level, max_p, max_q, boxcox, default_format, timeout, concurrency, rate, base_url, db_path", key)
		}

		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

// ─── config path ──────────────────────────────────────────────────────────────

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "  (not created yet — run 'sta137 config init')")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

// loadConfigFile reads the on-disk config.json; used by configSetCmd.
func loadConfigFile() (config.File, string, error) {
	path, err := config.Path()
	if err != nil {
		return config.File{}, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config.File{}, path, err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return config.File{}, path, err
	}
	return f, path, nil
}
