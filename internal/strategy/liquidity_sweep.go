package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/argo-evaluation/internal/indicator"
	"github.com/rxtech-lab/argo-evaluation/internal/session"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

// LiquiditySweep fires on stop hunts through recent swing levels: a bar
// wicks beyond a swing low (or high), closes back on the other side, and a
// bar shortly after confirms the reversal by closing through the sweep
// bar's opposite extreme. Entry is on the confirmation bar.
type LiquiditySweep struct {
	SwingOrder     int
	ATRPeriod      int
	Lookback       int
	ConfirmBars    int
	StopATRMult    float64
	TP1RiskReward  float64
	TP2RiskReward  float64
	MinBarsNeeded  int
	BaseConfidence float64
}

// NewLiquiditySweep creates the strategy with its default parameters.
func NewLiquiditySweep() *LiquiditySweep {
	return &LiquiditySweep{
		SwingOrder:     5,
		ATRPeriod:      14,
		Lookback:       50,
		ConfirmBars:    3,
		StopATRMult:    0.5,
		TP1RiskReward:  1.5,
		TP2RiskReward:  3.0,
		MinBarsNeeded:  100,
		BaseConfidence: 50,
	}
}

func (s *LiquiditySweep) Name() string {
	return "liquidity_sweep"
}

func (s *LiquiditySweep) MinBars() int {
	return s.MinBarsNeeded
}

// Analyze scans bars for liquidity sweep reversal setups.
func (s *LiquiditySweep) Analyze(bars []types.Bar) ([]types.TradeCandidate, error) {
	if err := validateBars(s.Name(), bars, s.MinBars()); err != nil {
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

	var candidates []types.TradeCandidate

	for i := s.MinBars(); i < len(bars); i++ {
		atrVal := atr[i]
		if math.IsNaN(atrVal) || atrVal <= 0 {
			continue
		}
		if !inLondonOrNewYork(bars[i].Time) {
			continue
		}

		// One signal per sweep bar, bullish checked first.
		if c, ok := s.buildBullish(i, bars, lows, highs, swingLows, atrVal); ok {
			candidates = append(candidates, c)

			continue
		}
		if c, ok := s.buildBearish(i, bars, lows, highs, swingHighs, atrVal); ok {
			candidates = append(candidates, c)
		}
	}

	return candidates, nil
}

// buildBullish checks bar i for a sweep below a recent swing low: the wick
// trades under the level while the close holds above it.
func (s *LiquiditySweep) buildBullish(i int, bars []types.Bar, lows, highs []float64, swingLows []int, atrVal float64) (types.TradeCandidate, bool) {
	sweepLow := lows[i]
	closeVal := bars[i].Close

	sweptLevels := 0
	sweepLevel := math.NaN()
	for _, idx := range swingLows {
		if idx < i-s.Lookback || idx >= i {
			continue
		}
		level := lows[idx]
		if sweepLow < level && level <= closeVal {
			sweptLevels++
			if math.IsNaN(sweepLevel) || level < sweepLevel {
				sweepLevel = level
			}
		}
	}
	if sweptLevels == 0 {
		return types.TradeCandidate{}, false
	}

	confirmIdx, ok := s.confirmAbove(i, bars, highs[i])
	if !ok {
		return types.TradeCandidate{}, false
	}
	confirm := bars[confirmIdx]

	entry := confirm.Close
	stop := sweepLow - s.StopATRMult*atrVal
	risk := entry - stop
	if risk <= 0 {
		return types.TradeCandidate{}, false
	}

	conf := s.confidence(types.DirectionLong, math.Abs(sweepLow-sweepLevel), atrVal,
		confirm, sweptLevels, bars[i].Time)

	return types.TradeCandidate{
		StrategyName: s.Name(),
		Direction:    types.DirectionLong,
		Entry:        entry,
		Stop:         stop,
		TakeProfit1:  entry + s.TP1RiskReward*risk,
		TakeProfit2:  entry + s.TP2RiskReward*risk,
		Confidence:   conf,
		Rationale: fmt.Sprintf(
			"Bullish liquidity sweep below swing low at %.2f, confirmed by structure shift. Entry at %.2f, SL below sweep wick at %.2f",
			sweepLevel, entry, stop),
		Timestamp: confirm.Time,
	}, true
}

// buildBearish checks bar i for a sweep above a recent swing high.
func (s *LiquiditySweep) buildBearish(i int, bars []types.Bar, lows, highs []float64, swingHighs []int, atrVal float64) (types.TradeCandidate, bool) {
	sweepHigh := highs[i]
	closeVal := bars[i].Close

	sweptLevels := 0
	sweepLevel := math.NaN()
	for _, idx := range swingHighs {
		if idx < i-s.Lookback || idx >= i {
			continue
		}
		level := highs[idx]
		if sweepHigh > level && level >= closeVal {
			sweptLevels++
			if math.IsNaN(sweepLevel) || level > sweepLevel {
				sweepLevel = level
			}
		}
	}
	if sweptLevels == 0 {
		return types.TradeCandidate{}, false
	}

	confirmIdx, ok := s.confirmBelow(i, bars, lows[i])
	if !ok {
		return types.TradeCandidate{}, false
	}
	confirm := bars[confirmIdx]

	entry := confirm.Close
	stop := sweepHigh + s.StopATRMult*atrVal
	risk := stop - entry
	if risk <= 0 {
		return types.TradeCandidate{}, false
	}

	conf := s.confidence(types.DirectionShort, math.Abs(sweepHigh-sweepLevel), atrVal,
		confirm, sweptLevels, bars[i].Time)

	return types.TradeCandidate{
		StrategyName: s.Name(),
		Direction:    types.DirectionShort,
		Entry:        entry,
		Stop:         stop,
		TakeProfit1:  entry - s.TP1RiskReward*risk,
		TakeProfit2:  entry - s.TP2RiskReward*risk,
		Confidence:   conf,
		Rationale: fmt.Sprintf(
			"Bearish liquidity sweep above swing high at %.2f, confirmed by structure shift. Entry at %.2f, SL above sweep wick at %.2f",
			sweepLevel, entry, stop),
		Timestamp: confirm.Time,
	}, true
}

// confirmAbove finds the first of the next ConfirmBars bars closing above
// the sweep bar's high.
func (s *LiquiditySweep) confirmAbove(i int, bars []types.Bar, sweepHigh float64) (int, bool) {
	end := i + s.ConfirmBars
	if end > len(bars)-1 {
		end = len(bars) - 1
	}
	for j := i + 1; j <= end; j++ {
		if bars[j].Close > sweepHigh {
			return j, true
		}
	}

	return 0, false
}

// confirmBelow finds the first of the next ConfirmBars bars closing below
// the sweep bar's low.
func (s *LiquiditySweep) confirmBelow(i int, bars []types.Bar, sweepLow float64) (int, bool) {
	end := i + s.ConfirmBars
	if end > len(bars)-1 {
		end = len(bars) - 1
	}
	for j := i + 1; j <= end; j++ {
		if bars[j].Close < sweepLow {
			return j, true
		}
	}

	return 0, false
}

// confidence scores a setup: base 50, plus 10 each for a sweep wick deeper
// than one ATR, a confirmation close near its extreme, the London/NY
// overlap on the sweep bar, and multiple swept levels.
func (s *LiquiditySweep) confidence(direction types.Direction, sweepWick, atrVal float64, confirm types.Bar, sweptLevels int, sweepTime time.Time) float64 {
	c := newConfidence(s.BaseConfidence)

	c.add(10, sweepWick > atrVal)

	candleRange := confirm.High - confirm.Low
	if candleRange > 0 {
		var closeRatio float64
		if direction == types.DirectionLong {
			closeRatio = (confirm.Close - confirm.Low) / candleRange
		} else {
			closeRatio = (confirm.High - confirm.Close) / candleRange
		}
		c.add(10, closeRatio > 0.7)
	}

	c.add(10, inSession(sweepTime, session.Overlap))
	c.add(10, sweptLevels >= 2)

	return c.value()
}
