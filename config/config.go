// Package config loads the workbench configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/strategylab/backtest"
)

// Config represents the complete workbench configuration
type Config struct {
	Backtest    BacktestSettings `json:"backtest_settings" yaml:"backtest_settings"`
	Strategies  []StrategyConfig `json:"strategies" yaml:"strategies"`
	Assets      []string         `json:"assets_to_run,omitempty" yaml:"assets_to_run,omitempty"`
	Optimizer   OptimizerConfig  `json:"optimizer" yaml:"optimizer"`
	ParamsStore ParamsStore      `json:"params_store" yaml:"params_store"`
	Journal     JournalConfig    `json:"journal" yaml:"journal"`
	Logging     LoggingConfig    `json:"logging" yaml:"logging"`
	Server      ServerConfig     `json:"server" yaml:"server"`
	Alpaca      AlpacaConfig     `json:"alpaca" yaml:"alpaca"`
}

// BacktestSettings contains the account and data parameters shared by
// every run
type BacktestSettings struct {
	DataSource    string  `json:"data_source" yaml:"data_source"`
	InitialCash   float64 `json:"initial_cash" yaml:"initial_cash"`
	CommissionPct float64 `json:"commission_pct" yaml:"commission_pct"` // fraction, 0.002 = 0.2%
	ResultsDir    string  `json:"results_dir" yaml:"results_dir"`

	// OptimizeSplit is the fraction of each series used for optimization.
	OptimizeSplit float64 `json:"optimize_split" yaml:"optimize_split"`
}

// StrategyConfig selects a registered strategy and how to run it
type StrategyConfig struct {
	Name        string                `json:"name" yaml:"name"`
	Params      backtest.ParamSet     `json:"params,omitempty" yaml:"params,omitempty"`
	Optimize    bool                  `json:"optimize,omitempty" yaml:"optimize,omitempty"`
	ParamRanges map[string]ParamRange `json:"param_ranges,omitempty" yaml:"param_ranges,omitempty"`
}

// ParamRange is either an explicit list of values or an inclusive
// min/max/step range. A YAML or JSON sequence decodes as a value list.
type ParamRange struct {
	Values []float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Min    float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64   `json:"max,omitempty" yaml:"max,omitempty"`
	Step   float64   `json:"step,omitempty" yaml:"step,omitempty"`
}

// UnmarshalYAML accepts a sequence as shorthand for Values.
func (r *ParamRange) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&r.Values)
	}
	type plain ParamRange
	return node.Decode((*plain)(r))
}

// UnmarshalJSON accepts an array as shorthand for Values.
func (r *ParamRange) UnmarshalJSON(data []byte) error {
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &r.Values)
	}
	type plain ParamRange
	return json.Unmarshal(data, (*plain)(r))
}

// Expand returns the candidate values for a parameter of the given kind.
func (r ParamRange) Expand(kind backtest.Kind) []float64 {
	if len(r.Values) > 0 {
		return append([]float64(nil), r.Values...)
	}
	return backtest.Bounds{Min: r.Min, Max: r.Max, Step: r.Step}.Values(kind)
}

// OptimizerConfig contains search parameters
type OptimizerConfig struct {
	Metric          string `json:"metric" yaml:"metric"`
	MaxTries        int64  `json:"max_tries" yaml:"max_tries"`
	ExhaustiveLimit int64  `json:"exhaustive_limit" yaml:"exhaustive_limit"`
	Seed            int64  `json:"seed" yaml:"seed"`
	Workers         int    `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// ParamsStore selects the optimized-parameter cache
type ParamsStore struct {
	Type string `json:"type" yaml:"type"` // "json", "sqlite", "postgres" or "memory"
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN  string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"` // empty disables the run journal
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
}

type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

type AlpacaConfig struct {
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APISecret string `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	DataURL   string `json:"data_url,omitempty" yaml:"data_url,omitempty"`
	Feed      string `json:"feed,omitempty" yaml:"feed,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON), fills
// defaults, applies environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = &Config{}
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load reads path when set, otherwise starts from Default. Environment
// overrides apply either way.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON
// otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// applyDefaults fills zero values that have a sensible default.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Backtest.ResultsDir == "" {
		c.Backtest.ResultsDir = d.Backtest.ResultsDir
	}
	if c.Backtest.OptimizeSplit == 0 {
		c.Backtest.OptimizeSplit = d.Backtest.OptimizeSplit
	}
	if c.Optimizer.Metric == "" {
		c.Optimizer.Metric = d.Optimizer.Metric
	}
	if c.Optimizer.MaxTries == 0 {
		c.Optimizer.MaxTries = d.Optimizer.MaxTries
	}
	if c.Optimizer.ExhaustiveLimit == 0 {
		c.Optimizer.ExhaustiveLimit = d.Optimizer.ExhaustiveLimit
	}
	if c.ParamsStore.Type == "" {
		c.ParamsStore.Type = d.ParamsStore.Type
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRATEGYLAB_DATA_SOURCE"); v != "" {
		cfg.Backtest.DataSource = v
	}
	if v := os.Getenv("STRATEGYLAB_RESULTS_DIR"); v != "" {
		cfg.Backtest.ResultsDir = v
	}
	if v := os.Getenv("STRATEGYLAB_JOURNAL_DB"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("STRATEGYLAB_PARAMS_DSN"); v != "" {
		cfg.ParamsStore.DSN = v
	}
	if v := os.Getenv("STRATEGYLAB_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Optimizer.Seed = n
		}
	}
	if v := os.Getenv("STRATEGYLAB_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	// Standard Alpaca env vars win over the names above.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backtest.DataSource == "" {
		return fmt.Errorf("backtest_settings.data_source is required")
	}
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("backtest_settings.initial_cash must be positive")
	}
	if c.Backtest.CommissionPct < 0 || c.Backtest.CommissionPct >= 1 {
		return fmt.Errorf("backtest_settings.commission_pct must be in [0, 1)")
	}
	if c.Backtest.OptimizeSplit <= 0 || c.Backtest.OptimizeSplit > 1 {
		return fmt.Errorf("backtest_settings.optimize_split must be in (0, 1]")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	for i, s := range c.Strategies {
		if s.Name == "" {
			return fmt.Errorf("strategies[%d].name is required", i)
		}
		for name, r := range s.ParamRanges {
			if len(r.Values) == 0 && r.Max < r.Min {
				return fmt.Errorf("strategies[%d].param_ranges.%s: max < min", i, name)
			}
		}
	}
	if c.Optimizer.MaxTries < 0 || c.Optimizer.ExhaustiveLimit < 0 {
		return fmt.Errorf("optimizer limits must not be negative")
	}
	switch c.ParamsStore.Type {
	case "json", "sqlite", "memory":
	case "postgres":
		if c.ParamsStore.DSN == "" {
			return fmt.Errorf("params_store.dsn required for postgres type")
		}
	default:
		return fmt.Errorf("params_store.type must be 'json', 'sqlite', 'postgres' or 'memory'")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}

// Settings returns the per-run settings for asset.
func (c *Config) Settings(asset string) backtest.Settings {
	return backtest.Settings{
		Asset:      asset,
		Cash:       c.Backtest.InitialCash,
		Commission: c.Backtest.CommissionPct,
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Backtest: BacktestSettings{
			DataSource:    "./data",
			InitialCash:   10000,
			CommissionPct: 0.002,
			ResultsDir:    "./results",
			OptimizeSplit: 0.5,
		},
		Strategies: []StrategyConfig{
			{
				Name:     "SmaCross",
				Optimize: true,
				ParamRanges: map[string]ParamRange{
					"n1": {Min: 5, Max: 30, Step: 5},
					"n2": {Min: 20, Max: 60, Step: 10},
				},
			},
			{Name: "RsiMomentum"},
			{Name: "BuyAndHold"},
		},
		Optimizer: OptimizerConfig{
			Metric:          "sharpe",
			MaxTries:        1000,
			ExhaustiveLimit: 1000,
			Seed:            42,
		},
		ParamsStore: ParamsStore{Type: "json"},
		Journal:     JournalConfig{DBPath: "./results/journal.db"},
		Logging:     LoggingConfig{Level: "info", Format: "console"},
		Server:      ServerConfig{Addr: ":8080"},
	}
}
