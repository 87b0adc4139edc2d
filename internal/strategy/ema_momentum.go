package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/argo-evaluation/internal/indicator"
	"github.com/rxtech-lab/argo-evaluation/internal/session"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

// EMAMomentum fires when price is trending away from a fully aligned EMA
// stack (21 over 50 over 200, or the reverse) and a strong candle confirms
// the move. No pullback is required, so it produces signals in markets where
// pullback strategies stay silent.
type EMAMomentum struct {
	FastPeriod     int
	MidPeriod      int
	SlowPeriod     int
	ATRPeriod      int
	BodyATRMult    float64
	StopATRMult    float64
	TP1RiskReward  float64
	TP2RiskReward  float64
	SlopeBars      int
	SwingOrder     int
	SwingLookback  int
	BaseConfidence float64
	MaxStopPips    float64
}

// NewEMAMomentum creates the strategy with its default parameters.
func NewEMAMomentum() *EMAMomentum {
	return &EMAMomentum{
		FastPeriod:     21,
		MidPeriod:      50,
		SlowPeriod:     200,
		ATRPeriod:      14,
		BodyATRMult:    0.6,
		StopATRMult:    1.0,
		TP1RiskReward:  1.5,
		TP2RiskReward:  3.0,
		SlopeBars:      5,
		SwingOrder:     5,
		SwingLookback:  20,
		BaseConfidence: 50,
		MaxStopPips:    150.0,
	}
}

func (s *EMAMomentum) Name() string {
	return "ema_momentum"
}

func (s *EMAMomentum) MinBars() int {
	return s.SlowPeriod
}

// Analyze scans bars for fully aligned EMA momentum setups during the
// London or New York sessions.
func (s *EMAMomentum) Analyze(bars []types.Bar) ([]types.TradeCandidate, error) {
	if err := validateBars(s.Name(), bars, s.MinBars()); err != nil {
		return nil, err
	}

	closes := indicator.Closes(bars)
	emaFast, err := indicator.EMASeries(closes, s.FastPeriod)
	if err != nil {
		return nil, err
	}
	emaMid, err := indicator.EMASeries(closes, s.MidPeriod)
	if err != nil {
		return nil, err
	}
	emaSlow, err := indicator.EMASeries(closes, s.SlowPeriod)
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

	var candidates []types.TradeCandidate

	for i := s.MinBars(); i < len(bars); i++ {
		atrVal := atr[i]
		if math.IsNaN(atrVal) || atrVal <= 0 {
			continue
		}
		fast, mid, slow := emaFast[i], emaMid[i], emaSlow[i]
		if math.IsNaN(fast) || math.IsNaN(mid) || math.IsNaN(slow) {
			continue
		}
		if !inLondonOrNewYork(bars[i].Time) {
			continue
		}

		bar := bars[i]
		if bar.BodySize() < s.BodyATRMult*atrVal {
			continue
		}

		if i < s.SlopeBars {
			continue
		}
		fastPrev, midPrev := emaFast[i-s.SlopeBars], emaMid[i-s.SlopeBars]
		if math.IsNaN(fastPrev) || math.IsNaN(midPrev) {
			continue
		}

		bullish := fast > mid && mid > slow &&
			fast > fastPrev && mid > midPrev &&
			bar.IsBullish() && bar.Close > fast
		bearish := fast < mid && mid < slow &&
			fast < fastPrev && mid < midPrev &&
			!bar.IsBullish() && bar.Close < fast

		switch {
		case bullish:
			if c, ok := s.buildLong(i, bars, atrVal, fast, mid, slow, lows, swingLows); ok {
				candidates = append(candidates, c)
			}
		case bearish:
			if c, ok := s.buildShort(i, bars, atrVal, fast, mid, slow, highs, swingHighs); ok {
				candidates = append(candidates, c)
			}
		}
	}

	return candidates, nil
}

func (s *EMAMomentum) buildLong(i int, bars []types.Bar, atrVal, fast, mid, slow float64, lows []float64, swingLows []int) (types.TradeCandidate, bool) {
	entry := bars[i].Close

	stop, found := recentSwingValue(swingLows, lows, i, s.SwingLookback, false)
	if !found {
		stop = lowestIn(lows, i, s.SwingLookback)
	}
	stop -= s.StopATRMult * atrVal

	risk := entry - stop
	if risk/pipValue > s.MaxStopPips {
		stop = entry - s.MaxStopPips*pipValue
		risk = entry - stop
	}
	if risk <= 0 {
		return types.TradeCandidate{}, false
	}

	tp1 := entry + s.TP1RiskReward*risk
	tp2 := entry + s.TP2RiskReward*risk

	conf := s.confidence(entry, fast, mid, slow, atrVal, bars[i].Time)

	return types.TradeCandidate{
		StrategyName: s.Name(),
		Direction:    types.DirectionLong,
		Entry:        entry,
		Stop:         stop,
		TakeProfit1:  tp1,
		TakeProfit2:  tp2,
		Confidence:   conf,
		Rationale: fmt.Sprintf(
			"Bullish EMA momentum: EMA-%d (%.2f) > EMA-%d (%.2f) > EMA-%d (%.2f), all rising, strong bullish candle at %.2f",
			s.FastPeriod, fast, s.MidPeriod, mid, s.SlowPeriod, slow, entry),
		Timestamp: bars[i].Time,
	}, true
}

func (s *EMAMomentum) buildShort(i int, bars []types.Bar, atrVal, fast, mid, slow float64, highs []float64, swingHighs []int) (types.TradeCandidate, bool) {
	entry := bars[i].Close

	stop, found := recentSwingValue(swingHighs, highs, i, s.SwingLookback, true)
	if !found {
		stop = highestIn(highs, i, s.SwingLookback)
	}
	stop += s.StopATRMult * atrVal

	risk := stop - entry
	if risk/pipValue > s.MaxStopPips {
		stop = entry + s.MaxStopPips*pipValue
		risk = stop - entry
	}
	if risk <= 0 {
		return types.TradeCandidate{}, false
	}

	tp1 := entry - s.TP1RiskReward*risk
	tp2 := entry - s.TP2RiskReward*risk

	conf := s.confidence(entry, fast, mid, slow, atrVal, bars[i].Time)

	return types.TradeCandidate{
		StrategyName: s.Name(),
		Direction:    types.DirectionShort,
		Entry:        entry,
		Stop:         stop,
		TakeProfit1:  tp1,
		TakeProfit2:  tp2,
		Confidence:   conf,
		Rationale: fmt.Sprintf(
			"Bearish EMA momentum: EMA-%d (%.2f) < EMA-%d (%.2f) < EMA-%d (%.2f), all falling, strong bearish candle at %.2f",
			s.FastPeriod, fast, s.MidPeriod, mid, s.SlowPeriod, slow, entry),
		Timestamp: bars[i].Time,
	}, true
}

// confidence scores a setup: base 50, plus 10 each for wide EMA-21/50
// separation, price stretched from EMA-21, the London/NY overlap, and wide
// EMA-50/200 separation.
func (s *EMAMomentum) confidence(entry, fast, mid, slow, atrVal float64, ts time.Time) float64 {
	c := newConfidence(s.BaseConfidence)
	c.add(10, math.Abs(fast-mid) > 1.0*atrVal)
	c.add(10, math.Abs(entry-fast) > 0.3*atrVal)
	c.add(10, inSession(ts, session.Overlap))
	c.add(10, math.Abs(mid-slow) > 2.0*atrVal)

	return c.value()
}
