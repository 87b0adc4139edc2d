// Package selector ranks strategies by a regime-aware composite score over
// their stored backtest results and picks the one that should generate live
// signals. Each selection cycle is a pure function of the persisted results
// plus current price history: the selector keeps no state between calls.
package selector

import (
	"fmt"
	"math"
	"sort"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-evaluation/internal/indicator"
	"github.com/rxtech-lab/argo-evaluation/internal/logger"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// ResultStore is the slice of the persisted result store the selector reads.
type ResultStore interface {
	// LatestResult returns the most recent non-walk-forward record for the
	// strategy and window size, or None when no such record exists.
	LatestResult(strategyName string, windowDays int) (optional.Option[types.EvaluationRecord], error)

	// LatestResultAnyWindow is LatestResult without the window constraint.
	LatestResultAnyWindow(strategyName string) (optional.Option[types.EvaluationRecord], error)

	// OldestBaseline returns the oldest non-walk-forward record for the
	// strategy, used as the degradation baseline.
	OldestBaseline(strategyName string) (optional.Option[types.EvaluationRecord], error)
}

// Weights are the composite-score metric weights. They should sum to 1.0;
// max drawdown is inverted before weighting (lower is better).
type Weights struct {
	WinRate      float64 `yaml:"win_rate" validate:"gte=0"`
	ProfitFactor float64 `yaml:"profit_factor" validate:"gte=0"`
	SharpeRatio  float64 `yaml:"sharpe_ratio" validate:"gte=0"`
	Expectancy   float64 `yaml:"expectancy" validate:"gte=0"`
	MaxDrawdown  float64 `yaml:"max_drawdown" validate:"gte=0"`
}

// DefaultWeights favor consistency over raw profitability.
func DefaultWeights() Weights {
	return Weights{
		WinRate:      0.30,
		ProfitFactor: 0.25,
		SharpeRatio:  0.15,
		Expectancy:   0.15,
		MaxDrawdown:  0.15,
	}
}

// RegimePenalty is one row of the regime-suitability table: in the given
// volatility regime the named strategy's score is multiplied by Multiplier.
type RegimePenalty struct {
	Regime       types.VolatilityRegime `yaml:"regime"`
	StrategyName string                 `yaml:"strategy"`
	Multiplier   float64                `yaml:"multiplier"`
}

// DefaultRegimePenalties encode the known regime sensitivities of the
// built-in strategies: breakouts suffer in already-expanded volatility,
// trend continuation starves in quiet markets.
func DefaultRegimePenalties() []RegimePenalty {
	return []RegimePenalty{
		{Regime: types.RegimeHigh, StrategyName: "breakout_expansion", Multiplier: 0.90},
		{Regime: types.RegimeLow, StrategyName: "trend_continuation", Multiplier: 0.90},
	}
}

// Config holds the selector tunables.
type Config struct {
	// MinTrades excludes strategies whose latest result carries fewer
	// trades, regardless of how good the metrics look.
	MinTrades int `yaml:"min_trades" validate:"gte=0"`

	// Weights are the composite-score metric weights.
	Weights Weights `yaml:"weights"`

	// RegimePenalties is the regime-suitability table.
	RegimePenalties []RegimePenalty `yaml:"regime_penalties" validate:"dive"`

	// WindowPreference is the window-size fallback order when fetching the
	// latest result per strategy. A zero entry means "any window".
	WindowPreference []int `yaml:"window_preference"`

	// ConfluenceBonus is added to the top strategy's score when the H4
	// trend agrees with its implied direction. Zero disables the check.
	ConfluenceBonus float64 `yaml:"confluence_bonus" validate:"gte=0"`

	// WinRateDropLimit is the absolute win-rate drop versus the oldest
	// baseline beyond which a strategy is marked degraded.
	WinRateDropLimit float64 `yaml:"win_rate_drop_limit" validate:"gte=0,lte=1"`

	// ATRPeriod and RegimeBars control volatility regime detection.
	ATRPeriod  int `yaml:"atr_period" validate:"gt=0"`
	RegimeBars int `yaml:"regime_bars" validate:"gt=0"`

	// LowPercentile and HighPercentile are the regime classification
	// thresholds.
	LowPercentile  float64 `yaml:"low_percentile" validate:"gte=0,lte=100"`
	HighPercentile float64 `yaml:"high_percentile" validate:"gte=0,lte=100"`
}

// DefaultConfig returns the stock selector configuration.
func DefaultConfig() Config {
	return Config{
		MinTrades:        50,
		Weights:          DefaultWeights(),
		RegimePenalties:  DefaultRegimePenalties(),
		WindowPreference: []int{14, 30, 60, 7, 0},
		ConfluenceBonus:  0.05,
		WinRateDropLimit: 0.15,
		ATRPeriod:        14,
		RegimeBars:       720,
		LowPercentile:    25.0,
		HighPercentile:   75.0,
	}
}

// Selector ranks strategies from their stored results.
type Selector struct {
	store  ResultStore
	config Config
	logger *logger.Logger
}

// NewSelector creates a selector over store.
func NewSelector(store ResultStore, config Config, log *logger.Logger) *Selector {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Selector{store: store, config: config, logger: log}
}

// SelectBest ranks the named strategies and returns the winner, or None when
// no strategy qualifies. recentBars supply the volatility-regime and H4
// confluence context, oldest first.
func (s *Selector) SelectBest(strategyNames []string, recentBars []types.Bar) (optional.Option[types.StrategyScore], error) {
	ranked, err := s.RankAll(strategyNames, recentBars)
	if err != nil {
		return optional.None[types.StrategyScore](), err
	}
	if len(ranked) == 0 {
		return optional.None[types.StrategyScore](), nil
	}

	return optional.Some(ranked[0]), nil
}

// RankAll returns every qualifying strategy scored and sorted: non-degraded
// strategies first, then degraded ones, each group by composite score
// descending. An empty slice means nothing qualified.
func (s *Selector) RankAll(strategyNames []string, recentBars []types.Bar) ([]types.StrategyScore, error) {
	records, err := s.fetchLatestRecords(strategyNames)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		s.logger.Warn("no stored results found for any strategy")

		return nil, nil
	}

	qualified := make([]types.EvaluationRecord, 0, len(records))
	for _, record := range records {
		if record.Metrics.TotalTrades < s.config.MinTrades {
			s.logger.Warn("strategy excluded, insufficient trades",
				zap.String("strategy", record.StrategyName),
				zap.Int("trades", record.Metrics.TotalTrades),
				zap.Int("required", s.config.MinTrades))

			continue
		}
		qualified = append(qualified, record)
	}
	if len(qualified) == 0 {
		s.logger.Warn("all strategies excluded due to insufficient trades")

		return nil, nil
	}

	regime := s.DetectRegime(recentBars)
	s.logger.Info("volatility regime detected", zap.String("regime", string(regime)))

	scores := s.computeScores(qualified, regime)
	s.applyRegimePenalties(scores, regime)
	sortByScore(scores)

	s.applyConfluenceBonus(scores, qualified, recentBars)
	sortByScore(scores)

	recordByName := make(map[string]types.EvaluationRecord, len(qualified))
	for _, record := range qualified {
		recordByName[record.StrategyName] = record
	}
	for i := range scores {
		degraded, reason, err := s.checkDegradation(recordByName[scores[i].StrategyName])
		if err != nil {
			return nil, err
		}
		scores[i].Degraded = degraded
		scores[i].DegradedReason = reason
		if degraded {
			s.logger.Warn("strategy degraded",
				zap.String("strategy", scores[i].StrategyName),
				zap.String("reason", reason))
		}
	}

	// Degraded strategies sort after every non-degraded one regardless of
	// raw score.
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Degraded != scores[j].Degraded {
			return !scores[i].Degraded
		}
		return scores[i].CompositeScore > scores[j].CompositeScore
	})

	return scores, nil
}

// DetectRegime classifies current volatility by ranking the latest ATR value
// against its own trailing history. Too little history defaults to medium.
func (s *Selector) DetectRegime(bars []types.Bar) types.VolatilityRegime {
	if len(bars) > s.config.RegimeBars {
		bars = bars[len(bars)-s.config.RegimeBars:]
	}
	if len(bars) < 30 {
		s.logger.Warn("insufficient bars for regime detection, defaulting to medium",
			zap.Int("bars", len(bars)))

		return types.RegimeMedium
	}

	atrSeries, err := indicator.ATRSeries(bars, s.config.ATRPeriod)
	if err != nil {
		return types.RegimeMedium
	}

	values := make([]float64, 0, len(atrSeries))
	for _, v := range atrSeries {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return types.RegimeMedium
	}

	percentile := indicator.Percentile(values, values[len(values)-1])

	switch {
	case percentile <= s.config.LowPercentile:
		return types.RegimeLow
	case percentile >= s.config.HighPercentile:
		return types.RegimeHigh
	default:
		return types.RegimeMedium
	}
}

// CheckH4Confluence reports whether the H4 EMA-50/200 trend agrees with the
// proposed direction. Insufficient history counts as disagreement.
func (s *Selector) CheckH4Confluence(recentBars []types.Bar, direction types.Direction) bool {
	h4 := indicator.ResampleH4(recentBars)
	if len(h4) < 200 {
		s.logger.Debug("insufficient H4 bars for confluence check",
			zap.Int("bars", len(h4)))

		return false
	}

	closes := indicator.Closes(h4)
	ema50, err := indicator.EMA(closes, 50)
	if err != nil {
		return false
	}
	ema200, err := indicator.EMA(closes, 200)
	if err != nil {
		return false
	}

	switch direction {
	case types.DirectionLong:
		return ema50 > ema200
	case types.DirectionShort:
		return ema50 < ema200
	default:
		return false
	}
}

func (s *Selector) fetchLatestRecords(strategyNames []string) ([]types.EvaluationRecord, error) {
	records := make([]types.EvaluationRecord, 0, len(strategyNames))

	for _, name := range strategyNames {
		record, err := s.latestWithFallback(name)
		if err != nil {
			return nil, err
		}
		if record.IsNone() {
			s.logger.Warn("no stored results for strategy", zap.String("strategy", name))

			continue
		}
		records = append(records, record.Unwrap())
	}

	return records, nil
}

// latestWithFallback walks the window preference order: shorter windows
// adapt to regime changes faster, so they are tried first.
func (s *Selector) latestWithFallback(name string) (optional.Option[types.EvaluationRecord], error) {
	for _, window := range s.config.WindowPreference {
		var (
			record optional.Option[types.EvaluationRecord]
			err    error
		)
		if window == 0 {
			record, err = s.store.LatestResultAnyWindow(name)
		} else {
			record, err = s.store.LatestResult(name, window)
		}
		if err != nil {
			return optional.None[types.EvaluationRecord](), errors.Wrapf(
				errors.ErrCodeStoreReadFailed, err, "fetching latest result for %s", name)
		}
		if record.IsSome() {
			return record, nil
		}
	}

	return optional.None[types.EvaluationRecord](), nil
}

// computeScores min-max normalizes each metric across the candidates and
// combines them with the configured weights. With a single candidate (or a
// degenerate spread) every normalized value is 0.5.
func (s *Selector) computeScores(records []types.EvaluationRecord, regime types.VolatilityRegime) []types.StrategyScore {
	normWinRate := normalize(records, func(m types.BacktestMetrics) float64 { return m.WinRate })
	normPF := normalize(records, func(m types.BacktestMetrics) float64 { return m.ProfitFactor })
	normSharpe := normalize(records, func(m types.BacktestMetrics) float64 { return m.SharpeRatio })
	normExpectancy := normalize(records, func(m types.BacktestMetrics) float64 { return m.Expectancy })
	normDrawdown := normalize(records, func(m types.BacktestMetrics) float64 { return m.MaxDrawdown })

	w := s.config.Weights
	scores := make([]types.StrategyScore, len(records))
	for i, record := range records {
		composite := w.WinRate*normWinRate[i] +
			w.ProfitFactor*normPF[i] +
			w.SharpeRatio*normSharpe[i] +
			w.Expectancy*normExpectancy[i] +
			w.MaxDrawdown*(1.0-normDrawdown[i])

		scores[i] = types.StrategyScore{
			StrategyName:   record.StrategyName,
			CompositeScore: composite,
			WinRate:        record.Metrics.WinRate,
			ProfitFactor:   record.Metrics.ProfitFactor,
			SharpeRatio:    record.Metrics.SharpeRatio,
			Expectancy:     record.Metrics.Expectancy,
			MaxDrawdown:    record.Metrics.MaxDrawdown,
			TotalTrades:    record.Metrics.TotalTrades,
			Regime:         regime,
		}
	}

	return scores
}

func (s *Selector) applyRegimePenalties(scores []types.StrategyScore, regime types.VolatilityRegime) {
	for _, penalty := range s.config.RegimePenalties {
		if penalty.Regime != regime {
			continue
		}
		for i := range scores {
			if scores[i].StrategyName != penalty.StrategyName {
				continue
			}
			original := scores[i].CompositeScore
			scores[i].CompositeScore *= penalty.Multiplier
			s.logger.Info("regime penalty applied",
				zap.String("strategy", scores[i].StrategyName),
				zap.String("regime", string(regime)),
				zap.Float64("before", original),
				zap.Float64("after", scores[i].CompositeScore))
		}
	}
}

// applyConfluenceBonus boosts the current leader when the H4 trend agrees
// with the direction its recent trades imply. A strategy trading mostly long
// implies a long bias, mostly short a short bias; a mixed book implies
// neither and gets no bonus.
func (s *Selector) applyConfluenceBonus(scores []types.StrategyScore, records []types.EvaluationRecord, recentBars []types.Bar) {
	if s.config.ConfluenceBonus <= 0 || len(scores) == 0 {
		return
	}

	top := &scores[0]
	var record *types.EvaluationRecord
	for i := range records {
		if records[i].StrategyName == top.StrategyName {
			record = &records[i]

			break
		}
	}
	if record == nil {
		return
	}

	var direction types.Direction
	switch {
	case record.Metrics.LongRatio >= 0.6:
		direction = types.DirectionLong
	case record.Metrics.LongRatio <= 0.4:
		direction = types.DirectionShort
	default:
		return
	}

	if s.CheckH4Confluence(recentBars, direction) {
		top.CompositeScore += s.config.ConfluenceBonus
		s.logger.Info("H4 confluence bonus applied",
			zap.String("strategy", top.StrategyName),
			zap.String("direction", string(direction)),
			zap.Float64("bonus", s.config.ConfluenceBonus))
	}
}

// checkDegradation compares a strategy's latest result against its oldest
// stored baseline. Degraded when the profit factor sits below 1.0 or the
// win rate has dropped more than the configured absolute limit.
func (s *Selector) checkDegradation(current types.EvaluationRecord) (bool, string, error) {
	var reasons []string

	if current.Metrics.ProfitFactor < 1.0 {
		reasons = append(reasons, fmt.Sprintf("profit factor %.4f below 1.0", current.Metrics.ProfitFactor))
	}

	baseline, err := s.store.OldestBaseline(current.StrategyName)
	if err != nil {
		return false, "", errors.Wrapf(errors.ErrCodeStoreReadFailed, err,
			"fetching baseline for %s", current.StrategyName)
	}
	if baseline.IsSome() {
		b := baseline.Unwrap()
		if b.CycleID != current.CycleID || b.WindowDays != current.WindowDays {
			drop := b.Metrics.WinRate - current.Metrics.WinRate
			if drop > s.config.WinRateDropLimit {
				reasons = append(reasons, fmt.Sprintf(
					"win rate dropped %.4f (from %.4f to %.4f)",
					drop, b.Metrics.WinRate, current.Metrics.WinRate))
			}
		}
	}

	if len(reasons) == 0 {
		return false, "", nil
	}

	reason := reasons[0]
	for _, r := range reasons[1:] {
		reason += "; " + r
	}

	return true, reason, nil
}

func sortByScore(scores []types.StrategyScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].CompositeScore > scores[j].CompositeScore
	})
}

// normalize min-max scales a metric across records into [0, 1], returning
// 0.5 everywhere when the spread is degenerate.
func normalize(records []types.EvaluationRecord, metric func(types.BacktestMetrics) float64) []float64 {
	out := make([]float64, len(records))
	if len(records) == 1 {
		out[0] = 0.5

		return out
	}

	mn, mx := math.Inf(1), math.Inf(-1)
	for _, record := range records {
		v := metric(record.Metrics)
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	if mx == mn {
		for i := range out {
			out[i] = 0.5
		}

		return out
	}

	for i, record := range records {
		out[i] = (metric(record.Metrics) - mn) / (mx - mn)
	}

	return out
}
