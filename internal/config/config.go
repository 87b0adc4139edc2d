// Package config loads and validates the evaluation configuration from
// YAML. Every tunable has a default matching the stock XAUUSD setup, so
// an empty file (or no file at all) yields a working configuration; the
// only field without a usable default is the price data path.
package config

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-evaluation/internal/backtest"
	"github.com/rxtech-lab/argo-evaluation/internal/selector"
	"github.com/rxtech-lab/argo-evaluation/internal/session"
	"github.com/rxtech-lab/argo-evaluation/internal/simulator"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// Config is the full evaluation configuration.
type Config struct {
	// DataPath points at the CSV or Parquet price file to evaluate.
	DataPath string `yaml:"data_path" json:"data_path" jsonschema:"title=Data Path,description=CSV or Parquet price file with hourly bars" validate:"required"`

	// DatabasePath is the DuckDB result database. Empty means in-memory,
	// which discards results when the process exits.
	DatabasePath string `yaml:"database_path" json:"database_path" jsonschema:"title=Database Path,description=DuckDB file holding evaluation results"`

	// StartTime and EndTime bound the bars loaded for evaluation.
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional lower bound on bar timestamps"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional upper bound on bar timestamps"`

	// WindowDays are the rolling backtest horizons, one evaluation record
	// per strategy per horizon.
	WindowDays []int `yaml:"window_days" json:"window_days" jsonschema:"title=Window Days,description=Rolling backtest window sizes in days" validate:"min=1,dive,gt=0"`

	// StepDays is the rolling window advance.
	StepDays int `yaml:"step_days" json:"step_days" jsonschema:"title=Step Days,description=Days the rolling window advances per step,minimum=1" validate:"gt=0"`

	// MaxBarsForward caps how long a simulated trade stays open.
	MaxBarsForward int `yaml:"max_bars_forward" json:"max_bars_forward" jsonschema:"title=Max Bars Forward,description=Bars a simulated trade may stay open before expiring,minimum=1" validate:"gt=0"`

	// WalkForward toggles walk-forward validation on top of the rolling
	// backtests.
	WalkForward bool `yaml:"walk_forward" json:"walk_forward" jsonschema:"title=Walk Forward,description=Run walk-forward validation per strategy"`

	// Spreads override the per-session spread table. Zero entries keep
	// the defaults.
	Spreads session.SpreadConfig `yaml:"spreads" json:"spreads" jsonschema:"title=Spreads,description=Per-session spread overrides in price units"`

	// Selector holds the strategy selection tunables.
	Selector selector.Config `yaml:"selector" json:"selector" jsonschema:"title=Selector,description=Strategy selection tunables"`

	// ShowProgress renders a progress bar during rolling backtests.
	ShowProgress bool `yaml:"show_progress" json:"show_progress" jsonschema:"title=Show Progress,description=Render a progress bar during backtests"`

	// LogLevel is the minimum log level: debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,description=Minimum log level,enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns the stock configuration. DataPath is left empty
// and must be supplied before Validate passes.
func DefaultConfig() Config {
	return Config{
		DatabasePath:   "evaluation.duckdb",
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
		WindowDays:     append([]int(nil), backtest.DefaultWindowDays...),
		StepDays:       1,
		MaxBarsForward: simulator.DefaultMaxBarsForward,
		WalkForward:    true,
		Selector:       selector.DefaultConfig(),
		LogLevel:       "info",
	}
}

// UnmarshalYAML implements custom unmarshaling so optional timestamps
// round-trip through plain *time.Time fields.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		DataPath       string               `yaml:"data_path"`
		DatabasePath   string               `yaml:"database_path"`
		StartTime      *time.Time           `yaml:"start_time"`
		EndTime        *time.Time           `yaml:"end_time"`
		WindowDays     []int                `yaml:"window_days"`
		StepDays       int                  `yaml:"step_days"`
		MaxBarsForward int                  `yaml:"max_bars_forward"`
		WalkForward    *bool                `yaml:"walk_forward"`
		Spreads        session.SpreadConfig `yaml:"spreads"`
		Selector       *selector.Config     `yaml:"selector"`
		ShowProgress   bool                 `yaml:"show_progress"`
		LogLevel       string               `yaml:"log_level"`
	}

	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}

	defaults := DefaultConfig()

	c.DataPath = p.DataPath
	c.DatabasePath = p.DatabasePath
	if p.DatabasePath == "" {
		c.DatabasePath = defaults.DatabasePath
	}
	c.StartTime = optional.FromNillable(p.StartTime)
	c.EndTime = optional.FromNillable(p.EndTime)
	c.WindowDays = p.WindowDays
	if len(p.WindowDays) == 0 {
		c.WindowDays = defaults.WindowDays
	}
	c.StepDays = p.StepDays
	if p.StepDays == 0 {
		c.StepDays = defaults.StepDays
	}
	c.MaxBarsForward = p.MaxBarsForward
	if p.MaxBarsForward == 0 {
		c.MaxBarsForward = defaults.MaxBarsForward
	}
	c.WalkForward = defaults.WalkForward
	if p.WalkForward != nil {
		c.WalkForward = *p.WalkForward
	}
	c.Spreads = p.Spreads
	c.Selector = defaults.Selector
	if p.Selector != nil {
		c.Selector = *p.Selector
	}
	c.ShowProgress = p.ShowProgress
	c.LogLevel = p.LogLevel
	if p.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	return nil
}

// Load reads and validates a YAML configuration file. An empty path
// returns the defaults without touching the filesystem.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config file %s", path)
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}

// GenerateSchema builds the JSON schema for the configuration.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "argo-evaluation-config"
	schema.Description = "Configuration schema for the strategy evaluation pipeline"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON renders the configuration schema as indented JSON.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
