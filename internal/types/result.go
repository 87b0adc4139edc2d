package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// EvaluationRecord is the aggregated, persisted output of one backtest
// (or one walk-forward half) for a single strategy and window horizon.
// Records are append-only: a newer evaluation supersedes an older one by
// CreatedAt, nothing is ever edited in place.
type EvaluationRecord struct {
	// CycleID groups every record written by one evaluation cycle.
	CycleID      string          `yaml:"cycle_id"`
	StrategyName string          `yaml:"strategy_name"`
	WindowDays   int             `yaml:"window_days"`
	WindowStart  time.Time       `yaml:"window_start"`
	WindowEnd    time.Time       `yaml:"window_end"`
	Metrics      BacktestMetrics `yaml:"metrics"`

	// IsWalkForward marks records produced by the out-of-sample half of a
	// walk-forward validation. The selector only reads non-walk-forward
	// records for scoring.
	IsWalkForward bool `yaml:"is_walk_forward"`
	// IsOverfitted is set on walk-forward records when any efficiency
	// ratio fell below the degradation threshold.
	IsOverfitted optional.Option[bool] `yaml:"is_overfitted"`
	// WalkForwardEfficiency is the worst out-of-sample / in-sample ratio
	// across the tracked metrics, when walk-forward validation ran.
	WalkForwardEfficiency optional.Option[float64] `yaml:"walk_forward_efficiency"`

	// SpreadModel names the transaction-cost model used for the run.
	SpreadModel string    `yaml:"spread_model"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// WalkForwardResult pairs in-sample and out-of-sample metrics for one
// strategy over the same data split. Computed once per validation run.
type WalkForwardResult struct {
	StrategyName string          `yaml:"strategy_name"`
	InSample     BacktestMetrics `yaml:"in_sample"`
	OutOfSample  BacktestMetrics `yaml:"out_of_sample"`
	// Overfitted is true when any efficiency ratio fell below the
	// degradation threshold. Never true when InsufficientOOSTrades is set.
	Overfitted bool `yaml:"overfitted"`
	// WinRateEfficiency is out-of-sample win rate / in-sample win rate.
	// None when the in-sample value was zero or the sample was too small.
	WinRateEfficiency optional.Option[float64] `yaml:"win_rate_efficiency"`
	// ProfitFactorEfficiency is the same ratio for profit factor.
	ProfitFactorEfficiency optional.Option[float64] `yaml:"profit_factor_efficiency"`
	// InsufficientOOSTrades means the out-of-sample half produced too few
	// trades for a reliable comparison, so overfitting detection was
	// skipped entirely.
	InsufficientOOSTrades bool `yaml:"insufficient_oos_trades"`
}

// VolatilityRegime is a coarse classification of current market
// volatility derived from recent price range dispersion.
type VolatilityRegime string

const (
	RegimeLow    VolatilityRegime = "low"
	RegimeMedium VolatilityRegime = "medium"
	RegimeHigh   VolatilityRegime = "high"
)

// StrategyScore is the per-strategy result of one selection cycle.
// Ephemeral output: recomputed on demand from the stored records and
// current price history, never persisted across cycles.
type StrategyScore struct {
	StrategyName   string           `yaml:"strategy_name"`
	CompositeScore float64          `yaml:"composite_score"`
	WinRate        float64          `yaml:"win_rate"`
	ProfitFactor   float64          `yaml:"profit_factor"`
	SharpeRatio    float64          `yaml:"sharpe_ratio"`
	Expectancy     float64          `yaml:"expectancy"`
	MaxDrawdown    float64          `yaml:"max_drawdown"`
	TotalTrades    int              `yaml:"total_trades"`
	Regime         VolatilityRegime `yaml:"regime"`
	Degraded       bool             `yaml:"degraded"`
	// DegradedReason explains the degradation flag when set.
	DegradedReason string `yaml:"degraded_reason,omitempty"`
}
