// Package strategy defines the signal-generation interface and the built-in
// XAUUSD H1 strategies. The exact same Analyze code path serves both rolling
// backtests and live candidate generation.
package strategy

import (
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// Strategy scans a window of H1 bars and emits trade candidates.
type Strategy interface {
	// Name returns the unique strategy identifier.
	Name() string

	// MinBars returns the minimum number of bars Analyze requires.
	MinBars() int

	// Analyze scans bars, oldest first, and returns zero or more trade
	// candidates. It returns an InsufficientDataError when fewer than
	// MinBars bars are supplied.
	Analyze(bars []types.Bar) ([]types.TradeCandidate, error)
}

// validateBars checks the common Analyze preconditions: enough bars and
// chronological order.
func validateBars(name string, bars []types.Bar, minBars int) error {
	if len(bars) < minBars {
		return errors.NewInsufficientDataErrorf(minBars, len(bars), name,
			"strategy %s requires %d bars, got %d", name, minBars, len(bars))
	}

	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return errors.Newf(errors.ErrCodeBarSeriesUnordered,
				"bars out of order at index %d: %s is not after %s",
				i, bars[i].Time, bars[i-1].Time)
		}
	}

	return nil
}

// confidence accumulates additive bonus points on a base score, clamped
// to 100.
type confidence struct {
	score float64
}

func newConfidence(base float64) *confidence {
	return &confidence{score: base}
}

func (c *confidence) add(points float64, condition bool) {
	if condition {
		c.score += points
	}
}

func (c *confidence) value() float64 {
	if c.score > 100 {
		return 100
	}
	return c.score
}
