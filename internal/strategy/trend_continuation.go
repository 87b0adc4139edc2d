package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/argo-evaluation/internal/indicator"
	"github.com/rxtech-lab/argo-evaluation/internal/session"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

// TrendContinuation fires on pullbacks to the EMA-50 zone inside an
// established EMA-50/200 trend, confirmed by a momentum candle that closes
// back through the prior bar's extreme. Entry is on the confirmation bar.
type TrendContinuation struct {
	FastPeriod      int
	SlowPeriod      int
	ATRPeriod       int
	PullbackATRMult float64
	StopATRMult     float64
	TP1RiskReward   float64
	TP2RiskReward   float64
	PullbackBars    int
	SwingOrder      int
	BaseConfidence  float64
}

// NewTrendContinuation creates the strategy with its default parameters.
func NewTrendContinuation() *TrendContinuation {
	return &TrendContinuation{
		FastPeriod:      50,
		SlowPeriod:      200,
		ATRPeriod:       14,
		PullbackATRMult: 1.0,
		StopATRMult:     1.5,
		TP1RiskReward:   2.0,
		TP2RiskReward:   3.0,
		PullbackBars:    5,
		SwingOrder:      5,
		BaseConfidence:  50,
	}
}

func (s *TrendContinuation) Name() string {
	return "trend_continuation"
}

func (s *TrendContinuation) MinBars() int {
	return s.SlowPeriod
}

// Analyze scans bars for trend continuation pullback setups.
func (s *TrendContinuation) Analyze(bars []types.Bar) ([]types.TradeCandidate, error) {
	if err := validateBars(s.Name(), bars, s.MinBars()); err != nil {
		return nil, err
	}

	closes := indicator.Closes(bars)
	ema50, err := indicator.EMASeries(closes, s.FastPeriod)
	if err != nil {
		return nil, err
	}
	ema200, err := indicator.EMASeries(closes, s.SlowPeriod)
	if err != nil {
		return nil, err
	}
	atr, err := indicator.ATRSeries(bars, s.ATRPeriod)
	if err != nil {
		return nil, err
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, bar := range bars {
		highs[i] = bar.High
		lows[i] = bar.Low
	}
	swingHighs := indicator.SwingHighIndices(highs, s.SwingOrder)
	swingLows := indicator.SwingLowIndices(lows, s.SwingOrder)

	vwap := dailyVWAP(bars)

	var candidates []types.TradeCandidate

	for i := s.MinBars(); i < len(bars); i++ {
		atrVal := atr[i]
		if math.IsNaN(atrVal) || atrVal <= 0 {
			continue
		}
		fast, slow := ema50[i], ema200[i]
		if math.IsNaN(fast) || math.IsNaN(slow) {
			continue
		}
		if !inLondonOrNewYork(bars[i].Time) {
			continue
		}

		// No clear trend without meaningful EMA separation.
		if math.Abs(fast-slow) < 0.5*atrVal {
			continue
		}

		widening := emaSpreadWidening(ema50, ema200, i)

		if fast > slow {
			if c, ok := s.buildLong(i, bars, atrVal, fast, slow, lows, highs, swingHighs, vwap, widening); ok {
				candidates = append(candidates, c)
			}
		} else {
			if c, ok := s.buildShort(i, bars, atrVal, fast, slow, lows, highs, swingLows, vwap, widening); ok {
				candidates = append(candidates, c)
			}
		}
	}

	return candidates, nil
}

func (s *TrendContinuation) buildLong(i int, bars []types.Bar, atrVal, fast, slow float64, lows, highs []float64, swingHighs []int, vwap []float64, widening bool) (types.TradeCandidate, bool) {
	zone := s.PullbackATRMult * atrVal
	closeVal := bars[i].Close

	// Price must have been clearly above the EMA-50 recently and now sit
	// inside the pullback zone around it.
	start := i - s.PullbackBars
	if start < 0 {
		start = 0
	}
	wasAbove := false
	for j := start; j < i; j++ {
		if bars[j].Close > fast+zone {
			wasAbove = true

			break
		}
	}
	if !wasAbove || closeVal < fast-zone || closeVal > fast+zone {
		return types.TradeCandidate{}, false
	}

	// The next bar must confirm: green candle closing above this bar's high.
	if i+1 >= len(bars) {
		return types.TradeCandidate{}, false
	}
	confirm := bars[i+1]
	if !confirm.IsBullish() || confirm.Close <= bars[i].High {
		return types.TradeCandidate{}, false
	}

	entry := confirm.Close
	stop := lowestIn(lows, i, i-start) - s.StopATRMult*atrVal

	risk := entry - stop
	if risk < s.StopATRMult*atrVal {
		stop = entry - s.StopATRMult*atrVal
		risk = entry - stop
	}
	if risk <= 0 {
		return types.TradeCandidate{}, false
	}

	tp1 := entry + s.TP1RiskReward*risk
	tp2, found := nearestSwingAbove(swingHighs, highs, i, entry)
	if !found || tp2 <= tp1 {
		tp2 = entry + s.TP2RiskReward*risk
	}

	conf := s.confidence(types.DirectionLong, confirm.Close, fast, atrVal, vwap, i+1,
		math.Abs(closeVal-fast), widening, confirm.Time)

	return types.TradeCandidate{
		StrategyName: s.Name(),
		Direction:    types.DirectionLong,
		Entry:        entry,
		Stop:         stop,
		TakeProfit1:  tp1,
		TakeProfit2:  tp2,
		Confidence:   conf,
		Rationale: fmt.Sprintf(
			"Bullish trend continuation: EMA-%d (%.2f) above EMA-%d (%.2f), pullback to EMA-%d zone, momentum confirmation at %.2f",
			s.FastPeriod, fast, s.SlowPeriod, slow, s.FastPeriod, entry),
		Timestamp: confirm.Time,
	}, true
}

func (s *TrendContinuation) buildShort(i int, bars []types.Bar, atrVal, fast, slow float64, lows, highs []float64, swingLows []int, vwap []float64, widening bool) (types.TradeCandidate, bool) {
	zone := s.PullbackATRMult * atrVal
	closeVal := bars[i].Close

	start := i - s.PullbackBars
	if start < 0 {
		start = 0
	}
	wasBelow := false
	for j := start; j < i; j++ {
		if bars[j].Close < fast-zone {
			wasBelow = true

			break
		}
	}
	if !wasBelow || closeVal < fast-zone || closeVal > fast+zone {
		return types.TradeCandidate{}, false
	}

	// The next bar must confirm: red candle closing below this bar's low.
	if i+1 >= len(bars) {
		return types.TradeCandidate{}, false
	}
	confirm := bars[i+1]
	if confirm.IsBullish() || confirm.Close >= bars[i].Low {
		return types.TradeCandidate{}, false
	}

	entry := confirm.Close
	stop := highestIn(highs, i, i-start) + s.StopATRMult*atrVal

	risk := stop - entry
	if risk < s.StopATRMult*atrVal {
		stop = entry + s.StopATRMult*atrVal
		risk = stop - entry
	}
	if risk <= 0 {
		return types.TradeCandidate{}, false
	}

	tp1 := entry - s.TP1RiskReward*risk
	tp2, found := nearestSwingBelow(swingLows, lows, i, entry)
	if !found || tp2 >= tp1 {
		tp2 = entry - s.TP2RiskReward*risk
	}

	conf := s.confidence(types.DirectionShort, confirm.Close, fast, atrVal, vwap, i+1,
		math.Abs(closeVal-fast), widening, confirm.Time)

	return types.TradeCandidate{
		StrategyName: s.Name(),
		Direction:    types.DirectionShort,
		Entry:        entry,
		Stop:         stop,
		TakeProfit1:  tp1,
		TakeProfit2:  tp2,
		Confidence:   conf,
		Rationale: fmt.Sprintf(
			"Bearish trend continuation: EMA-%d (%.2f) below EMA-%d (%.2f), pullback to EMA-%d zone, momentum confirmation at %.2f",
			s.FastPeriod, fast, s.SlowPeriod, slow, s.FastPeriod, entry),
		Timestamp: confirm.Time,
	}, true
}

// confidence scores a setup: base 50, plus 10 each for VWAP agreement, a
// shallow pullback, the London/NY overlap, and a widening EMA spread.
func (s *TrendContinuation) confidence(direction types.Direction, closeVal, fast, atrVal float64, vwap []float64, barIdx int, pullbackDepth float64, widening bool, ts time.Time) float64 {
	c := newConfidence(s.BaseConfidence)

	if barIdx < len(vwap) && !math.IsNaN(vwap[barIdx]) {
		v := vwap[barIdx]
		c.add(10, (direction == types.DirectionLong && closeVal > v) ||
			(direction == types.DirectionShort && closeVal < v))
	}
	c.add(10, pullbackDepth < 0.5*atrVal)
	c.add(10, inSession(ts, session.Overlap))
	c.add(10, widening)

	return c.value()
}
