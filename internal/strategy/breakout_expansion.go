package strategy

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-evaluation/internal/indicator"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

// BreakoutExpansion fires when volatility contracts for a sustained stretch
// of bars and price then closes decisively outside the consolidation range.
// Targets are projected from the range height rather than a fixed
// risk-reward.
type BreakoutExpansion struct {
	ATRPeriod        int
	ATRMAPeriod      int
	CompressionRatio float64
	MinConsolBars    int
	VolumeMult       float64
	WideRangeATRMult float64
	BreakoutBodyATR  float64
	BaseConfidence   float64
	LondonOpenStart  int
	LondonOpenEnd    int
	minBars          int
}

// NewBreakoutExpansion creates the strategy with its default parameters.
func NewBreakoutExpansion() *BreakoutExpansion {
	return &BreakoutExpansion{
		ATRPeriod:        14,
		ATRMAPeriod:      50,
		CompressionRatio: 0.5,
		MinConsolBars:    10,
		VolumeMult:       1.5,
		WideRangeATRMult: 3.0,
		BreakoutBodyATR:  1.5,
		BaseConfidence:   50,
		LondonOpenStart:  7,
		LondonOpenEnd:    9,
		minBars:          70,
	}
}

func (s *BreakoutExpansion) Name() string {
	return "breakout_expansion"
}

func (s *BreakoutExpansion) MinBars() int {
	return s.minBars
}

// Analyze scans bars for consolidation breakouts. A consolidation is a run
// of bars whose ATR sits below CompressionRatio of its own moving average;
// the first non-compressed bar after a long enough run is the breakout
// candidate.
func (s *BreakoutExpansion) Analyze(bars []types.Bar) ([]types.TradeCandidate, error) {
	if err := validateBars(s.Name(), bars, s.MinBars()); err != nil {
		return nil, err
	}

	atr, err := indicator.ATRSeries(bars, s.ATRPeriod)
	if err != nil {
		return nil, err
	}
	atrMA := rollingMean(atr, s.ATRMAPeriod)

	hasVolume := false
	for _, bar := range bars {
		if bar.Volume > 0 {
			hasVolume = true

			break
		}
	}

	var candidates []types.TradeCandidate

	consolStart := -1
	inConsolidation := false

	for i := s.MinBars(); i < len(bars); i++ {
		atrVal, atrMAVal := atr[i], atrMA[i]
		if math.IsNaN(atrVal) || math.IsNaN(atrMAVal) || atrMAVal <= 0 {
			consolStart = -1
			inConsolidation = false

			continue
		}

		if atrVal < s.CompressionRatio*atrMAVal {
			if consolStart < 0 {
				consolStart = i
			}
			inConsolidation = true

			continue
		}

		// Expansion bar: check whether it breaks the range just left.
		if inConsolidation && consolStart >= 0 {
			consolLength := i - consolStart
			if consolLength >= s.MinConsolBars {
				if c, ok := s.checkBreakout(i, consolStart, consolLength, atrVal, bars, hasVolume); ok {
					candidates = append(candidates, c)
				}
			}
		}
		consolStart = -1
		inConsolidation = false
	}

	return candidates, nil
}

func (s *BreakoutExpansion) checkBreakout(i, consolStart, consolLength int, atrVal float64, bars []types.Bar, hasVolume bool) (types.TradeCandidate, bool) {
	rangeHigh := math.Inf(-1)
	rangeLow := math.Inf(1)
	for _, bar := range bars[consolStart:i] {
		if bar.High > rangeHigh {
			rangeHigh = bar.High
		}
		if bar.Low < rangeLow {
			rangeLow = bar.Low
		}
	}
	rangeHeight := rangeHigh - rangeLow
	if rangeHeight <= 0 {
		return types.TradeCandidate{}, false
	}

	bar := bars[i]
	bullish := bar.Close > rangeHigh
	bearish := bar.Close < rangeLow
	if !bullish && !bearish {
		return types.TradeCandidate{}, false
	}

	volumeConfirms := false
	if hasVolume {
		sum := 0.0
		for _, b := range bars[consolStart:i] {
			sum += b.Volume
		}
		avg := sum / float64(consolLength)
		volumeConfirms = avg > 0 && bar.Volume > s.VolumeMult*avg
	}

	hour := bar.Time.UTC().Hour()
	londonOpen := hour >= s.LondonOpenStart && hour < s.LondonOpenEnd

	conf := s.confidence(consolLength, bar.BodySize(), atrVal, volumeConfirms, londonOpen)

	entry := bar.Close
	var stop, tp1, tp2 float64
	direction := types.DirectionLong

	if bullish {
		stop = rangeLow
		if rangeHeight > s.WideRangeATRMult*atrVal {
			stop = (rangeHigh + rangeLow) / 2.0
		}
		tp1 = entry + rangeHeight
		tp2 = entry + 2.0*rangeHeight
	} else {
		direction = types.DirectionShort
		stop = rangeHigh
		if rangeHeight > s.WideRangeATRMult*atrVal {
			stop = (rangeHigh + rangeLow) / 2.0
		}
		tp1 = entry - rangeHeight
		tp2 = entry - 2.0*rangeHeight
	}

	return types.TradeCandidate{
		StrategyName: s.Name(),
		Direction:    direction,
		Entry:        entry,
		Stop:         stop,
		TakeProfit1:  tp1,
		TakeProfit2:  tp2,
		Confidence:   conf,
		Rationale: fmt.Sprintf(
			"%s breakout from %d-bar consolidation range (%.2f-%.2f), ATR expansion confirms",
			map[types.Direction]string{types.DirectionLong: "Bullish", types.DirectionShort: "Bearish"}[direction],
			consolLength, rangeLow, rangeHigh),
		Timestamp: bar.Time,
	}, true
}

// confidence scores a breakout: base 50, plus 10 each for a long
// consolidation, a strong breakout candle, volume confirmation, and the
// London open window.
func (s *BreakoutExpansion) confidence(consolLength int, candleBody, atrVal float64, volumeConfirms, londonOpen bool) float64 {
	c := newConfidence(s.BaseConfidence)
	c.add(10, consolLength > 20)
	c.add(10, atrVal > 0 && candleBody > s.BreakoutBodyATR*atrVal)
	c.add(10, volumeConfirms)
	c.add(10, londonOpen)

	return c.value()
}

// rollingMean returns the mean of the trailing window at each index,
// skipping NaN warmup values. Indexes without a full window of defined
// values hold NaN.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < window-1 {
			out[i] = math.NaN()

			continue
		}

		sum := 0.0
		defined := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				defined = false

				break
			}
			sum += values[j]
		}
		if !defined {
			out[i] = math.NaN()

			continue
		}
		out[i] = sum / float64(window)
	}

	return out
}
