// Package evaluation orchestrates one full evaluation cycle: rolling
// backtests per strategy per window horizon, optional walk-forward
// validation, atomic persistence of the cycle's records, and final
// strategy selection over the stored history.
package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-evaluation/internal/backtest"
	"github.com/rxtech-lab/argo-evaluation/internal/config"
	"github.com/rxtech-lab/argo-evaluation/internal/datasource"
	"github.com/rxtech-lab/argo-evaluation/internal/logger"
	"github.com/rxtech-lab/argo-evaluation/internal/selector"
	"github.com/rxtech-lab/argo-evaluation/internal/session"
	"github.com/rxtech-lab/argo-evaluation/internal/simulator"
	"github.com/rxtech-lab/argo-evaluation/internal/strategy"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// ResultStore is the persistence surface the evaluation runner writes to
// and the selector reads from.
type ResultStore interface {
	selector.ResultStore
	SaveCycle(records []types.EvaluationRecord) error
}

// CycleResult is the outcome of one evaluation cycle.
type CycleResult struct {
	CycleID string
	Records []types.EvaluationRecord
	// Scores are the ranked strategy scores, best first. Empty when no
	// strategy survived the trade-count filter.
	Scores []types.StrategyScore
	// Best is the selected strategy, None when Scores is empty.
	Best optional.Option[types.StrategyScore]
}

// Runner wires the evaluation pipeline together from a configuration.
type Runner struct {
	config     config.Config
	registry   strategy.Registry
	store      ResultStore
	backtester *backtest.Runner
	validator  *backtest.WalkForwardValidator
	selector   *selector.Selector
	logger     *logger.Logger
}

// NewRunner builds a runner from the configuration. The store is passed
// in so callers control its lifetime.
func NewRunner(cfg config.Config, resultStore ResultStore, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNopLogger()
	}

	sim := simulator.NewSimulator(
		simulator.WithMaxBarsForward(cfg.MaxBarsForward),
		simulator.WithSpreadModel(session.NewSpreadModel(cfg.Spreads)),
	)

	runnerOpts := []backtest.RunnerOption{
		backtest.WithSimulator(sim),
		backtest.WithLogger(log),
	}
	if cfg.ShowProgress {
		runnerOpts = append(runnerOpts, backtest.WithProgress())
	}
	backtester := backtest.NewRunner(runnerOpts...)

	return &Runner{
		config:     cfg,
		registry:   strategy.NewDefaultRegistry(),
		store:      resultStore,
		backtester: backtester,
		validator:  backtest.NewWalkForwardValidator(backtester, log),
		selector:   selector.NewSelector(resultStore, cfg.Selector, log),
		logger:     log,
	}
}

// LoadBars reads the configured price file into an ordered bar series.
func (r *Runner) LoadBars() ([]types.Bar, error) {
	source, err := datasource.NewDataSource(r.logger)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	if err := source.Initialize(r.config.DataPath); err != nil {
		return nil, err
	}

	return source.ReadAll(r.config.StartTime, r.config.EndTime)
}

// RunCycle evaluates every registered strategy over every configured
// window horizon, persists the records under a fresh cycle ID, and
// returns the resulting strategy ranking. Cancellation is honored
// between strategies; a cancelled cycle persists nothing.
func (r *Runner) RunCycle(ctx context.Context, bars []types.Bar) (CycleResult, error) {
	if len(bars) == 0 {
		return CycleResult{}, errors.New(errors.ErrCodeBacktestNoBars, "no bars to evaluate")
	}

	cycleID := uuid.New().String()
	now := time.Now().UTC()
	spreadModel := "session"

	r.logger.Info("starting evaluation cycle",
		zap.String("cycle_id", cycleID),
		zap.Int("bars", len(bars)),
		zap.Ints("window_days", r.config.WindowDays))

	var records []types.EvaluationRecord

	for _, s := range r.registry.All() {
		if err := ctx.Err(); err != nil {
			return CycleResult{}, err
		}

		for _, windowDays := range r.config.WindowDays {
			metrics, _, err := r.backtester.RunFull(s, bars, windowDays, r.config.StepDays)
			if err != nil {
				if errors.HasCode(err, errors.ErrCodeBacktestNoBars) {
					r.logger.Warn("skipping window, not enough bars",
						zap.String("strategy", s.Name()),
						zap.Int("window_days", windowDays))
					continue
				}
				return CycleResult{}, err
			}

			records = append(records, types.EvaluationRecord{
				CycleID:      cycleID,
				StrategyName: s.Name(),
				WindowDays:   windowDays,
				WindowStart:  bars[0].Time,
				WindowEnd:    bars[len(bars)-1].Time,
				Metrics:      metrics,
				SpreadModel:  spreadModel,
				CreatedAt:    now,
			})
		}

		if r.config.WalkForward {
			record, ok, err := r.walkForwardRecord(s, bars, cycleID, now, spreadModel)
			if err != nil {
				return CycleResult{}, err
			}
			if ok {
				records = append(records, record)
			}
		}
	}

	if err := r.store.SaveCycle(records); err != nil {
		return CycleResult{}, err
	}

	scores, err := r.selector.RankAll(r.registry.List(), bars)
	if err != nil {
		return CycleResult{}, err
	}

	result := CycleResult{
		CycleID: cycleID,
		Records: records,
		Scores:  scores,
		Best:    optional.None[types.StrategyScore](),
	}
	if len(scores) > 0 {
		result.Best = optional.Some(scores[0])
		r.logger.Info("evaluation cycle complete",
			zap.String("cycle_id", cycleID),
			zap.String("best_strategy", scores[0].StrategyName),
			zap.Float64("composite_score", scores[0].CompositeScore))
	} else {
		r.logger.Warn("evaluation cycle produced no eligible strategies",
			zap.String("cycle_id", cycleID))
	}

	return result, nil
}

// SelectBest ranks the registered strategies over the stored history
// without running new backtests.
func (r *Runner) SelectBest(recentBars []types.Bar) (optional.Option[types.StrategyScore], error) {
	return r.selector.SelectBest(r.registry.List(), recentBars)
}

// RankAll is SelectBest returning the full ranking.
func (r *Runner) RankAll(recentBars []types.Bar) ([]types.StrategyScore, error) {
	return r.selector.RankAll(r.registry.List(), recentBars)
}

// walkForwardRecord runs walk-forward validation for one strategy over
// the smallest configured window and converts the result into a
// persisted record. The out-of-sample metrics are stored; the efficiency
// column carries the worst of the available ratios.
func (r *Runner) walkForwardRecord(s strategy.Strategy, bars []types.Bar, cycleID string, now time.Time, spreadModel string) (types.EvaluationRecord, bool, error) {
	windowDays := smallestWindow(r.config.WindowDays)

	wf, err := r.validator.Validate(s, bars, windowDays, r.config.StepDays)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeBacktestNoBars) {
			r.logger.Warn("skipping walk-forward, not enough bars",
				zap.String("strategy", s.Name()))
			return types.EvaluationRecord{}, false, nil
		}
		return types.EvaluationRecord{}, false, err
	}

	record := types.EvaluationRecord{
		CycleID:       cycleID,
		StrategyName:  s.Name(),
		WindowDays:    windowDays,
		WindowStart:   bars[0].Time,
		WindowEnd:     bars[len(bars)-1].Time,
		Metrics:       wf.OutOfSample,
		IsWalkForward: true,
		SpreadModel:   spreadModel,
		CreatedAt:     now,
	}

	if !wf.InsufficientOOSTrades {
		record.IsOverfitted = optional.Some(wf.Overfitted)
		record.WalkForwardEfficiency = worstEfficiency(wf)
	}

	return record, true, nil
}

func smallestWindow(windows []int) int {
	smallest := windows[0]
	for _, w := range windows[1:] {
		if w < smallest {
			smallest = w
		}
	}
	return smallest
}

func worstEfficiency(wf types.WalkForwardResult) optional.Option[float64] {
	worst := optional.None[float64]()
	for _, e := range []optional.Option[float64]{wf.WinRateEfficiency, wf.ProfitFactorEfficiency} {
		if e.IsNone() {
			continue
		}
		if worst.IsNone() || e.Unwrap() < worst.Unwrap() {
			worst = e
		}
	}
	return worst
}
