package backtest

import (
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-evaluation/internal/logger"
	"github.com/rxtech-lab/argo-evaluation/internal/strategy"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

const (
	// DegradationThreshold is the minimum acceptable out-of-sample to
	// in-sample efficiency ratio before a strategy is flagged overfitted.
	DegradationThreshold = 0.5

	// MinOOSTrades is the minimum out-of-sample trade count for a
	// meaningful comparison. Below this the overfitting check is skipped.
	MinOOSTrades = 5

	// inSampleFraction is the chronological share of bars used for the
	// in-sample period.
	inSampleFraction = 0.8
)

// WalkForwardValidator detects overfitting by splitting bars 80/20
// chronologically, backtesting each period independently, and comparing
// out-of-sample performance against in-sample.
type WalkForwardValidator struct {
	runner *Runner
	logger *logger.Logger
}

// NewWalkForwardValidator creates a validator backed by runner. A nil runner
// gets the default.
func NewWalkForwardValidator(runner *Runner, log *logger.Logger) *WalkForwardValidator {
	if runner == nil {
		runner = NewRunner()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &WalkForwardValidator{runner: runner, logger: log}
}

// runPeriod backtests one side of the split. A period too short to fit a
// single window yields zero metrics instead of an error, so a thin
// out-of-sample slice surfaces as insufficient trades rather than a failed
// validation.
func (v *WalkForwardValidator) runPeriod(s strategy.Strategy, bars []types.Bar, windowDays, stepDays int) (types.BacktestMetrics, error) {
	m, _, err := v.runner.RunFull(s, bars, windowDays, stepDays)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeBacktestNoBars) {
			return types.BacktestMetrics{}, nil
		}

		return types.BacktestMetrics{}, err
	}

	return m, nil
}

// Validate splits bars chronologically, runs independent rolling backtests
// on the in-sample and out-of-sample periods, and flags the strategy as
// overfitted when either the win-rate or profit-factor efficiency (OOS/IS)
// falls below DegradationThreshold.
//
// When the out-of-sample period produces fewer than MinOOSTrades trades the
// comparison is skipped: Overfitted stays false, the efficiencies stay
// unset, and InsufficientOOSTrades is set so callers can tell "validated
// clean" apart from "could not validate".
func (v *WalkForwardValidator) Validate(s strategy.Strategy, bars []types.Bar, windowDays, stepDays int) (types.WalkForwardResult, error) {
	splitIdx := int(float64(len(bars)) * inSampleFraction)
	inSample := bars[:splitIdx]
	outOfSample := bars[splitIdx:]

	v.logger.Info("walk-forward split",
		zap.String("strategy", s.Name()),
		zap.Int("in_sample_bars", len(inSample)),
		zap.Int("out_of_sample_bars", len(outOfSample)),
		zap.Int("window_days", windowDays))

	isMetrics, err := v.runPeriod(s, inSample, windowDays, stepDays)
	if err != nil {
		return types.WalkForwardResult{}, err
	}
	oosMetrics, err := v.runPeriod(s, outOfSample, windowDays, stepDays)
	if err != nil {
		return types.WalkForwardResult{}, err
	}

	result := types.WalkForwardResult{
		StrategyName: s.Name(),
		InSample:     isMetrics,
		OutOfSample:  oosMetrics,
	}

	if oosMetrics.TotalTrades < MinOOSTrades {
		v.logger.Warn("insufficient out-of-sample trades, skipping overfitting check",
			zap.String("strategy", s.Name()),
			zap.Int("oos_trades", oosMetrics.TotalTrades),
			zap.Int("required", MinOOSTrades))
		result.InsufficientOOSTrades = true

		return result, nil
	}

	if isMetrics.WinRate > 0 {
		wfe := oosMetrics.WinRate / isMetrics.WinRate
		result.WinRateEfficiency = optional.Some(wfe)
		if wfe < DegradationThreshold {
			result.Overfitted = true
		}
	}
	if isMetrics.ProfitFactor > 0 {
		wfe := oosMetrics.ProfitFactor / isMetrics.ProfitFactor
		result.ProfitFactorEfficiency = optional.Some(wfe)
		if wfe < DegradationThreshold {
			result.Overfitted = true
		}
	}

	if result.Overfitted {
		v.logger.Warn("strategy flagged as overfitted",
			zap.String("strategy", s.Name()),
			zap.Float64("wfe_win_rate", result.WinRateEfficiency.TakeOr(0)),
			zap.Float64("wfe_profit_factor", result.ProfitFactorEfficiency.TakeOr(0)))
	}

	return result, nil
}
