// Package simulator replays trade candidates against historical bars and
// resolves each one to a terminal outcome.
package simulator

import (
	"github.com/rxtech-lab/argo-evaluation/internal/session"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

const (
	// DefaultMaxBarsForward is how many H1 bars a simulated trade may stay
	// open before it is force-closed at the last close (72 hours).
	DefaultMaxBarsForward = 72

	// PipValue converts XAUUSD price distance to pips (0.10 price units
	// per pip).
	PipValue = 0.10
)

// Simulator resolves trade candidates bar by bar. Take-profits are checked
// against raw bar extremes; the spread model applies on the side the broker
// would charge it: long entries buy at the ask and short stops buy back at
// the ask.
type Simulator struct {
	spreads        *session.SpreadModel
	maxBarsForward int
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithMaxBarsForward overrides the forward bar limit.
func WithMaxBarsForward(bars int) Option {
	return func(s *Simulator) {
		if bars > 0 {
			s.maxBarsForward = bars
		}
	}
}

// WithSpreadModel overrides the default spread model.
func WithSpreadModel(model *session.SpreadModel) Option {
	return func(s *Simulator) {
		if model != nil {
			s.spreads = model
		}
	}
}

// NewSimulator creates a simulator with the default spread model and forward
// limit.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		spreads:        session.DefaultSpreadModel(),
		maxBarsForward: DefaultMaxBarsForward,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// MaxBarsForward reports the configured forward bar limit.
func (s *Simulator) MaxBarsForward() int {
	return s.maxBarsForward
}

// Simulate resolves a single candidate against bars, where entryIndex is the
// index of the bar on which the signal fired. The walk starts at the next
// bar. Invalid candidates and out-of-range entry indexes return an error.
//
// Within a single bar the stop is assumed to be hit before either take
// profit: the bar's path is unknown, so ties resolve against the trade.
func (s *Simulator) Simulate(candidate types.TradeCandidate, bars []types.Bar, entryIndex int) (types.SimulatedTrade, error) {
	if err := candidate.Validate(); err != nil {
		return types.SimulatedTrade{}, err
	}
	if entryIndex < 0 || entryIndex >= len(bars) {
		return types.SimulatedTrade{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"entry index %d out of range for %d bars", entryIndex, len(bars))
	}
	spread := s.spreads.Spread(candidate.Timestamp)

	entry := candidate.Entry
	if candidate.Direction == types.DirectionLong {
		// Longs buy at the ask.
		entry += spread
	}

	// Signal on the final bar leaves nothing to walk: the trade expires
	// immediately at the adjusted entry, flat.
	if entryIndex == len(bars)-1 {
		return s.close(candidate, types.OutcomeExpired, entry, entry, spread, 0), nil
	}

	end := entryIndex + s.maxBarsForward
	if end > len(bars)-1 {
		end = len(bars) - 1
	}

	for i := entryIndex + 1; i <= end; i++ {
		bar := bars[i]
		barsHeld := i - entryIndex

		if candidate.Direction == types.DirectionLong {
			if bar.Low <= candidate.Stop {
				return s.close(candidate, types.OutcomeStop, candidate.Stop, entry, spread, barsHeld), nil
			}
			if bar.High >= candidate.TakeProfit2 {
				return s.close(candidate, types.OutcomeTP2, candidate.TakeProfit2, entry, spread, barsHeld), nil
			}
			if bar.High >= candidate.TakeProfit1 {
				return s.close(candidate, types.OutcomeTP1, candidate.TakeProfit1, entry, spread, barsHeld), nil
			}

			continue
		}

		// Shorts buy back at the ask, so the stop triggers when the ask
		// (high plus spread) reaches it. Targets resolve on the raw low.
		if bar.High+spread >= candidate.Stop {
			return s.close(candidate, types.OutcomeStop, candidate.Stop, entry, spread, barsHeld), nil
		}
		if bar.Low <= candidate.TakeProfit2 {
			return s.close(candidate, types.OutcomeTP2, candidate.TakeProfit2, entry, spread, barsHeld), nil
		}
		if bar.Low <= candidate.TakeProfit1 {
			return s.close(candidate, types.OutcomeTP1, candidate.TakeProfit1, entry, spread, barsHeld), nil
		}
	}

	// Still open at the limit: close at the last walked bar's close.
	return s.close(candidate, types.OutcomeExpired, bars[end].Close, entry, spread, end-entryIndex), nil
}

// SimulateAll resolves every candidate, pairing candidates[i] with
// entryIndexes[i]. Candidates that fail to resolve are skipped and reported
// through the returned errors slice, which is index-aligned with candidates.
func (s *Simulator) SimulateAll(candidates []types.TradeCandidate, bars []types.Bar, entryIndexes []int) ([]types.SimulatedTrade, []error) {
	trades := make([]types.SimulatedTrade, 0, len(candidates))
	errs := make([]error, len(candidates))

	for i, candidate := range candidates {
		trade, err := s.Simulate(candidate, bars, entryIndexes[i])
		if err != nil {
			errs[i] = err

			continue
		}
		trades = append(trades, trade)
	}

	return trades, errs
}

func (s *Simulator) close(candidate types.TradeCandidate, outcome types.TradeOutcome, exitPrice, entry, spread float64, barsHeld int) types.SimulatedTrade {
	var pnl float64
	if candidate.Direction == types.DirectionLong {
		pnl = (exitPrice - entry) / PipValue
	} else {
		pnl = (entry - exitPrice) / PipValue
	}

	return types.SimulatedTrade{
		Candidate:  candidate,
		Outcome:    outcome,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		BarsHeld:   barsHeld,
		SpreadCost: spread / PipValue,
	}
}
