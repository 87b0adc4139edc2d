// Package indicator provides technical indicator calculations over in-memory
// bar slices. Strategies evaluate rolling windows that are already loaded, so
// these are plain functions over the window rather than queries against a
// data source.
package indicator

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// Closes extracts the close prices from bars.
func Closes(bars []types.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}

// EMA returns the exponential moving average of values with the given period.
// The average is seeded with the SMA of the first period values and then
// smoothed forward with multiplier 2/(period+1) over the remainder.
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, errors.NewInsufficientDataError(period, len(values), "", "not enough values")
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
	}

	return ema, nil
}

// EMASeries returns the EMA at every index from period-1 onward. The returned
// slice has the same length as values; indexes before period-1 hold NaN.
func EMASeries(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, errors.NewInsufficientDataError(period, len(values), "", "not enough values")
	}

	series := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		series[i] = math.NaN()
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	series[period-1] = seed / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		series[i] = (values[i]-series[i-1])*multiplier + series[i-1]
	}

	return series, nil
}

// TrueRange returns the true range of bar given the previous close.
func TrueRange(bar types.Bar, prevClose float64) float64 {
	highLow := bar.High - bar.Low
	highClose := math.Abs(bar.High - prevClose)
	lowClose := math.Abs(bar.Low - prevClose)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATRSeries returns the ATR at every bar index from period onward, aligned
// with bars, each value the simple average of the trailing period true
// ranges. Indexes before period hold NaN since a true range needs a
// previous close.
func ATRSeries(bars []types.Bar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "period must be positive, got %d", period)
	}
	if len(bars) < period+1 {
		return nil, errors.NewInsufficientDataError(period+1, len(bars), "", "not enough bars")
	}

	trueRanges := make([]float64, len(bars))
	trueRanges[0] = math.NaN()
	for i := 1; i < len(bars); i++ {
		trueRanges[i] = TrueRange(bars[i], bars[i-1].Close)
	}

	series := make([]float64, len(bars))
	for i := range bars {
		if i < period {
			series[i] = math.NaN()

			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += trueRanges[j]
		}
		series[i] = sum / float64(period)
	}

	return series, nil
}

// Percentile returns the rank of value within values in [0, 100]: the share
// of values strictly below it. An empty distribution is neutral.
func Percentile(values []float64, value float64) float64 {
	if len(values) == 0 {
		return 50.0
	}

	below := 0
	for _, v := range values {
		if v < value {
			below++
		}
	}

	return float64(below) / float64(len(values)) * 100.0
}

// SwingHighIndices returns the indices of local maxima in values: points
// greater than or equal to every value within order positions on each side,
// clipped at the series edges.
func SwingHighIndices(values []float64, order int) []int {
	return swingIndices(values, order, func(center, neighbor float64) bool {
		return center >= neighbor
	})
}

// SwingLowIndices returns the indices of local minima in values, the mirror
// of SwingHighIndices.
func SwingLowIndices(values []float64, order int) []int {
	return swingIndices(values, order, func(center, neighbor float64) bool {
		return center <= neighbor
	})
}

func swingIndices(values []float64, order int, dominates func(center, neighbor float64) bool) []int {
	var indices []int
	for i := range values {
		lo := i - order
		if lo < 0 {
			lo = 0
		}
		hi := i + order
		if hi > len(values)-1 {
			hi = len(values) - 1
		}

		isExtremum := true
		for j := lo; j <= hi; j++ {
			if j == i {
				continue
			}
			if !dominates(values[i], values[j]) {
				isExtremum = false

				break
			}
		}
		if isExtremum {
			indices = append(indices, i)
		}
	}

	return indices
}

// ResampleH4 aggregates hourly bars into 4-hour bars, grouping on the UTC
// hour boundary (00, 04, 08, ...). Partial trailing groups are kept.
func ResampleH4(bars []types.Bar) []types.Bar {
	if len(bars) == 0 {
		return nil
	}

	resampled := make([]types.Bar, 0, len(bars)/4+1)
	var current types.Bar
	haveCurrent := false

	for _, bar := range bars {
		bucket := bar.Time.UTC().Truncate(4 * time.Hour)
		if !haveCurrent || !current.Time.Equal(bucket) {
			if haveCurrent {
				resampled = append(resampled, current)
			}
			current = types.Bar{
				Time:   bucket,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: bar.Volume,
			}
			haveCurrent = true

			continue
		}

		if bar.High > current.High {
			current.High = bar.High
		}
		if bar.Low < current.Low {
			current.Low = bar.Low
		}
		current.Close = bar.Close
		current.Volume += bar.Volume
	}
	resampled = append(resampled, current)

	return resampled
}
