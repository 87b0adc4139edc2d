// Package backtest runs strategies over rolling windows of historical bars
// and validates them against out-of-sample data. The runner drives the exact
// same Strategy.Analyze code path used for live signal generation.
package backtest

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-evaluation/internal/logger"
	"github.com/rxtech-lab/argo-evaluation/internal/metrics"
	"github.com/rxtech-lab/argo-evaluation/internal/simulator"
	"github.com/rxtech-lab/argo-evaluation/internal/strategy"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// barsPerDay is the H1 bar count per calendar day.
const barsPerDay = 24

// DefaultWindowDays are the rolling window sizes evaluated when none are
// configured.
var DefaultWindowDays = []int{30, 60}

// Runner slides an analysis window across H1 bars, collects the simulated
// trades behind every emitted candidate, and aggregates them into metrics.
//
// Candidates from a window are simulated against bars AFTER the window to
// prevent look-ahead: the entry bar is always the window's final bar.
type Runner struct {
	simulator    *simulator.Simulator
	calculator   *metrics.Calculator
	logger       *logger.Logger
	showProgress bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSimulator overrides the trade simulator.
func WithSimulator(s *simulator.Simulator) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.simulator = s
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithProgress renders a progress bar while windows are evaluated.
func WithProgress() RunnerOption {
	return func(r *Runner) {
		r.showProgress = true
	}
}

// NewRunner creates a backtest runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		simulator:  simulator.NewSimulator(),
		calculator: metrics.NewCalculator(),
		logger:     logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RunRolling slides a window of windowDays across bars, advancing stepDays
// at a time, and returns every simulated trade. Windows whose forward
// simulation room would extend past the end of the series are not evaluated.
//
// Returns ErrCodeBacktestNoBars when the series is too short for even one
// window plus the simulator's forward allowance.
func (r *Runner) RunRolling(s strategy.Strategy, bars []types.Bar, windowDays, stepDays int) ([]types.SimulatedTrade, error) {
	if windowDays <= 0 || stepDays <= 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestWindowSize,
			"window and step must be positive, got window=%d step=%d", windowDays, stepDays)
	}

	windowBars := windowDays * barsPerDay
	stepBars := stepDays * barsPerDay

	minRequired := windowBars + r.simulator.MaxBarsForward()
	if len(bars) < minRequired {
		return nil, errors.Newf(errors.ErrCodeBacktestNoBars,
			"insufficient bars for rolling backtest: have %d, need %d (window=%dd plus %d bars forward)",
			len(bars), minRequired, windowDays, r.simulator.MaxBarsForward())
	}

	windowCount := (len(bars) - windowBars - r.simulator.MaxBarsForward() + stepBars - 1) / stepBars
	var bar *progressbar.ProgressBar
	if r.showProgress {
		bar = progressbar.Default(int64(windowCount), fmt.Sprintf("Backtesting %s %dd", s.Name(), windowDays))
	}

	var trades []types.SimulatedTrade

	for start := 0; start < len(bars)-windowBars-r.simulator.MaxBarsForward(); start += stepBars {
		if bar != nil {
			_ = bar.Add(1)
		}

		end := start + windowBars
		window := bars[start:end]

		candidates, err := s.Analyze(window)
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				r.logger.Debug("skipping window, insufficient data",
					zap.String("strategy", s.Name()),
					zap.Int("window_start", start))

				continue
			}
			r.logger.Error("strategy analysis failed",
				zap.String("strategy", s.Name()),
				zap.Int("window_start", start),
				zap.Error(err))

			continue
		}

		for _, candidate := range candidates {
			trade, err := r.simulator.Simulate(candidate, bars, end-1)
			if err != nil {
				r.logger.Error("trade simulation failed",
					zap.String("strategy", s.Name()),
					zap.Time("signal_time", candidate.Timestamp),
					zap.Error(err))

				continue
			}
			trades = append(trades, trade)
		}
	}

	return trades, nil
}

// RunFull runs a rolling backtest and aggregates the trades into metrics.
func (r *Runner) RunFull(s strategy.Strategy, bars []types.Bar, windowDays, stepDays int) (types.BacktestMetrics, []types.SimulatedTrade, error) {
	trades, err := r.RunRolling(s, bars, windowDays, stepDays)
	if err != nil {
		return types.BacktestMetrics{}, nil, err
	}

	m := r.calculator.Compute(trades)

	r.logger.Info("backtest complete",
		zap.String("strategy", s.Name()),
		zap.Int("window_days", windowDays),
		zap.Int("total_trades", m.TotalTrades),
		zap.Float64("win_rate", m.WinRate),
		zap.Float64("profit_factor", m.ProfitFactor))

	return m, trades, nil
}
