package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestDefaultConfig() {
	cfg := DefaultConfig()

	suite.Equal("evaluation.duckdb", cfg.DatabasePath)
	suite.True(cfg.StartTime.IsNone())
	suite.True(cfg.EndTime.IsNone())
	suite.Equal([]int{30, 60}, cfg.WindowDays)
	suite.Equal(1, cfg.StepDays)
	suite.Equal(72, cfg.MaxBarsForward)
	suite.True(cfg.WalkForward)
	suite.Equal(50, cfg.Selector.MinTrades)
	suite.Equal(0.30, cfg.Selector.Weights.WinRate)
	suite.Equal("info", cfg.LogLevel)
}

func (suite *ConfigTestSuite) TestUnmarshalAppliesDefaults() {
	var cfg Config
	suite.Require().NoError(yaml.Unmarshal([]byte("data_path: bars.csv\n"), &cfg))

	suite.Equal("bars.csv", cfg.DataPath)
	suite.Equal("evaluation.duckdb", cfg.DatabasePath)
	suite.Equal([]int{30, 60}, cfg.WindowDays)
	suite.Equal(1, cfg.StepDays)
	suite.Equal(72, cfg.MaxBarsForward)
	suite.True(cfg.WalkForward)
	suite.Equal("info", cfg.LogLevel)
	suite.True(cfg.StartTime.IsNone())
}

func (suite *ConfigTestSuite) TestUnmarshalOverrides() {
	content := `
data_path: /data/xauusd_h1.parquet
database_path: results.duckdb
start_time: 2024-01-01T00:00:00Z
end_time: 2024-06-30T00:00:00Z
window_days: [14, 30]
step_days: 2
max_bars_forward: 48
walk_forward: false
log_level: debug
spreads:
  london: 0.25
selector:
  min_trades: 30
  weights:
    win_rate: 0.40
    profit_factor: 0.30
    sharpe_ratio: 0.10
    expectancy: 0.10
    max_drawdown: 0.10
  atr_period: 14
  regime_bars: 720
  low_percentile: 25
  high_percentile: 75
`
	var cfg Config
	suite.Require().NoError(yaml.Unmarshal([]byte(content), &cfg))

	suite.Equal("/data/xauusd_h1.parquet", cfg.DataPath)
	suite.Equal("results.duckdb", cfg.DatabasePath)
	suite.Require().True(cfg.StartTime.IsSome())
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime.Unwrap())
	suite.Require().True(cfg.EndTime.IsSome())
	suite.Equal([]int{14, 30}, cfg.WindowDays)
	suite.Equal(2, cfg.StepDays)
	suite.Equal(48, cfg.MaxBarsForward)
	suite.False(cfg.WalkForward)
	suite.Equal("debug", cfg.LogLevel)
	suite.Equal(0.25, cfg.Spreads.London)
	suite.Equal(30, cfg.Selector.MinTrades)
	suite.Equal(0.40, cfg.Selector.Weights.WinRate)
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load("/nonexistent/config.yaml")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoadEmptyPathReturnsDefaults() {
	cfg, err := Load("")
	suite.Require().NoError(err)
	suite.Equal(DefaultConfig(), cfg)
}

func (suite *ConfigTestSuite) TestLoadFromFile() {
	path := filepath.Join(suite.T().TempDir(), "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("data_path: bars.csv\nstep_days: 3\n"), 0o644))

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Equal("bars.csv", cfg.DataPath)
	suite.Equal(3, cfg.StepDays)
	suite.Equal([]int{30, 60}, cfg.WindowDays)
}

func (suite *ConfigTestSuite) TestValidate() {
	cfg := DefaultConfig()
	cfg.DataPath = "bars.csv"
	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsMissingDataPath() {
	cfg := DefaultConfig()
	err := cfg.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestValidateRejectsBadValues() {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero step days", mutate: func(c *Config) { c.StepDays = 0 }},
		{name: "negative window", mutate: func(c *Config) { c.WindowDays = []int{-1} }},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "verbose" }},
		{name: "zero max bars forward", mutate: func(c *Config) { c.MaxBarsForward = 0 }},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			cfg := DefaultConfig()
			cfg.DataPath = "bars.csv"
			tc.mutate(&cfg)
			suite.Error(cfg.Validate())
		})
	}
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	cfg := DefaultConfig()
	schemaJSON, err := cfg.GenerateSchemaJSON()
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &schema))
	suite.Equal("argo-evaluation-config", schema["title"])

	properties, ok := schema["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "data_path")
	suite.Contains(properties, "selector")
	suite.Contains(properties, "window_days")
}
