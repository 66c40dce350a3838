// Package config handles loading and resolving sta137 configuration.
// Resolution order (later layers win):
//  1. config.json at os.UserConfigDir()/sta137/config.json
//  2. STA137_* environment variables
//  3. CLI flags, applied by the command layer after Load()
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultFormat      = "table"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultRate        = 5.0
	DefaultCountry     = "GBR"
	DefaultIndicator   = "NE.IMP.GNFS.CD" // imports of goods and services, current US$
	DefaultHorizon     = 5
	DefaultLevel       = 0.95
	DefaultMaxP        = 4
	DefaultMaxQ        = 4
	DefaultBaseURL     = "https://api.worldbank.org/v2/"

	EnvConfig    = "STA137_CONFIG" // overrides the config.json location
	EnvDB        = "STA137_DB"
	EnvFormat    = "STA137_FORMAT"
	EnvCountry   = "STA137_COUNTRY"
	EnvIndicator = "STA137_INDICATOR"
	EnvRate      = "STA137_RATE"
	EnvTimeout   = "STA137_TIMEOUT"
)

// File is the on-disk representation of config.json. Pointer fields
// distinguish "absent" from meaningful zero values (max_p: 0 is a legal
// grid bound, boxcox: false a legal toggle).
type File struct {
	Country       string  `json:"country"`
	Indicator     string  `json:"indicator"`
	Horizon       int     `json:"horizon"`
	Level         float64 `json:"level"`
	MaxP          *int    `json:"max_p"`
	MaxQ          *int    `json:"max_q"`
	BoxCox        *bool   `json:"boxcox"`
	DefaultFormat string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Concurrency   int     `json:"concurrency"`
	Rate          float64 `json:"rate"`
	BaseURL       string  `json:"base_url"`
	DBPath        string  `json:"db_path"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Country     string
	Indicator   string
	Horizon     int
	Level       float64
	MaxP        int
	MaxQ        int
	BoxCox      bool
	Format      string
	Timeout     time.Duration
	Concurrency int
	Rate        float64
	BaseURL     string
	DBPath      string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
	Strict  bool
}

// Load resolves configuration from the config file and environment.
// Flag overrides are layered on top by the command layer.
func Load() (*Config, error) {
	cfg := &Config{
		Country:     DefaultCountry,
		Indicator:   DefaultIndicator,
		Horizon:     DefaultHorizon,
		Level:       DefaultLevel,
		MaxP:        DefaultMaxP,
		MaxQ:        DefaultMaxQ,
		BoxCox:      true,
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Rate:        DefaultRate,
		BaseURL:     DefaultBaseURL,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: environment variables
	applyEnv(cfg)

	// Default DB path if still unset
	if cfg.DBPath == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cfg.DBPath = filepath.Join(dir, "sta137", "sta137.db")
		} else {
			cfg.DBPath = "sta137.db"
		}
	}

	return cfg, nil
}

// Validate checks the numeric ranges every run depends on.
func (c *Config) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("horizon must be >= 1, got %d", c.Horizon)
	}
	if c.MaxP < 0 || c.MaxP > 10 {
		return fmt.Errorf("max-p must be in 0..10, got %d", c.MaxP)
	}
	if c.MaxQ < 0 || c.MaxQ > 10 {
		return fmt.Errorf("max-q must be in 0..10, got %d", c.MaxQ)
	}
	if c.Level <= 0 || c.Level >= 1 {
		return fmt.Errorf("confidence level must be in (0, 1), got %g", c.Level)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %g", c.Rate)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	return nil
}

// DefaultPath returns the canonical config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "sta137", "config.json"), nil
}

// Path returns the config file location honoring the STA137_CONFIG override.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	return DefaultPath()
}

// loadFile attempts to read the config file.
func loadFile() (*File, string, error) {
	path, err := Path()
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s", path)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/absent.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.Country != "" {
		cfg.Country = f.Country
	}
	if f.Indicator != "" {
		cfg.Indicator = f.Indicator
	}
	if f.Horizon > 0 {
		cfg.Horizon = f.Horizon
	}
	if f.Level > 0 {
		cfg.Level = f.Level
	}
	if f.MaxP != nil {
		cfg.MaxP = *f.MaxP
	}
	if f.MaxQ != nil {
		cfg.MaxQ = *f.MaxQ
	}
	if f.BoxCox != nil {
		cfg.BoxCox = *f.BoxCox
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
}

// applyEnv layers STA137_* variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDB); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv(EnvCountry); v != "" {
		cfg.Country = v
	}
	if v := os.Getenv(EnvIndicator); v != "" {
		cfg.Indicator = v
	}
	if v := os.Getenv(EnvRate); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Rate = r
		}
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
}

// Template returns a File populated with the defaults, suitable for writing
// an initial config.json via `sta137 config init`.
func Template() File {
	maxP, maxQ, boxcox := DefaultMaxP, DefaultMaxQ, true
	return File{
		Country:       DefaultCountry,
		Indicator:     DefaultIndicator,
		Horizon:       DefaultHorizon,
		Level:         DefaultLevel,
		MaxP:          &maxP,
		MaxQ:          &maxQ,
		BoxCox:        &boxcox,
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Concurrency:   DefaultConcurrency,
		Rate:          DefaultRate,
		BaseURL:       DefaultBaseURL,
	}
}

// WriteFile serialises a File to the given path, creating parent directories.
func WriteFile(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
