package strategy

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-evaluation/internal/session"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

// pipValue converts XAUUSD price distance to pips.
const pipValue = 0.10

func inSession(t time.Time, name session.Name) bool {
	for _, s := range session.Active(t) {
		if s.Name == name {
			return true
		}
	}
	return false
}

func inLondonOrNewYork(t time.Time) bool {
	return inSession(t, session.London) || inSession(t, session.NewYork)
}

// recentSwingValue returns the extreme swing value within lookback bars
// before bar i: the highest swing high when high is true, otherwise the
// lowest swing low. The bool result reports whether any swing qualified.
func recentSwingValue(swingIndices []int, values []float64, i, lookback int, high bool) (float64, bool) {
	start := i - lookback
	if start < 0 {
		start = 0
	}

	var (
		best  float64
		found bool
	)
	for _, idx := range swingIndices {
		if idx < start || idx >= i {
			continue
		}
		v := values[idx]
		if !found || (high && v > best) || (!high && v < best) {
			best = v
			found = true
		}
	}

	return best, found
}

// nearestSwingAbove returns the lowest swing-high value above entry among
// swings before bar i, used as a take-profit target.
func nearestSwingAbove(swingIndices []int, values []float64, i int, entry float64) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, idx := range swingIndices {
		if idx >= i {
			continue
		}
		v := values[idx]
		if v > entry && (!found || v < best) {
			best = v
			found = true
		}
	}

	return best, found
}

// nearestSwingBelow returns the highest swing-low value below entry among
// swings before bar i.
func nearestSwingBelow(swingIndices []int, values []float64, i int, entry float64) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, idx := range swingIndices {
		if idx >= i {
			continue
		}
		v := values[idx]
		if v < entry && (!found || v > best) {
			best = v
			found = true
		}
	}

	return best, found
}

// emaSpreadWidening reports whether the fast/slow EMA spread at bar i is
// wider than ten bars earlier.
func emaSpreadWidening(fast, slow []float64, i int) bool {
	const lookback = 10
	if i < lookback {
		return false
	}
	prev := i - lookback
	if math.IsNaN(fast[prev]) || math.IsNaN(slow[prev]) {
		return false
	}

	return math.Abs(fast[i]-slow[i]) > math.Abs(fast[prev]-slow[prev])
}

// dailyVWAP returns the volume-weighted average price anchored at each UTC
// day boundary, aligned with bars. All-NaN when no bar carries volume.
func dailyVWAP(bars []types.Bar) []float64 {
	vwap := make([]float64, len(bars))

	hasVolume := false
	for _, bar := range bars {
		if bar.Volume > 0 {
			hasVolume = true

			break
		}
	}

	var (
		day        time.Time
		sumPV      float64
		sumV       float64
		haveAnchor bool
	)
	for i, bar := range bars {
		if !hasVolume {
			vwap[i] = math.NaN()

			continue
		}

		barDay := bar.Time.UTC().Truncate(24 * time.Hour)
		if !haveAnchor || !barDay.Equal(day) {
			day = barDay
			sumPV, sumV = 0, 0
			haveAnchor = true
		}

		typical := (bar.High + bar.Low + bar.Close) / 3.0
		sumPV += typical * bar.Volume
		sumV += bar.Volume

		if sumV > 0 {
			vwap[i] = sumPV / sumV
		} else {
			vwap[i] = math.NaN()
		}
	}

	return vwap
}

// lowestIn returns the lowest value in the lookback window ending at and
// including bar i.
func lowestIn(values []float64, i, lookback int) float64 {
	start := i - lookback
	if start < 0 {
		start = 0
	}

	low := values[start]
	for _, v := range values[start : i+1] {
		if v < low {
			low = v
		}
	}

	return low
}

// highestIn returns the highest value in the lookback window ending at and
// including bar i.
func highestIn(values []float64, i, lookback int) float64 {
	start := i - lookback
	if start < 0 {
		start = 0
	}

	high := values[start]
	for _, v := range values[start : i+1] {
		if v > high {
			high = v
		}
	}

	return high
}
