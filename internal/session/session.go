// Package session maps UTC timestamps to trading sessions and models the
// spread a trade pays at a given time of day. XAUUSD spreads tighten during
// the London/New York overlap and widen during the Asian session, so the
// simulator asks this package for the spread in effect at each entry bar.
package session

import (
	"time"
)

// Name identifies a trading session.
type Name string

const (
	Asian   Name = "asian"
	London  Name = "london"
	NewYork Name = "new_york"
	Overlap Name = "overlap"
)

// Session is a UTC hour range. Start is inclusive, End is exclusive.
// A session with Start > End wraps past midnight (the Asian session runs
// 23:00 to 08:00 UTC).
type Session struct {
	Name  Name
	Start int
	End   int
}

// Contains reports whether the UTC hour falls inside the session.
func (s Session) Contains(hour int) bool {
	if s.Start <= s.End {
		return hour >= s.Start && hour < s.End
	}
	return hour >= s.Start || hour < s.End
}

// Sessions in priority order. Overlap is listed first so that when the
// London and New York sessions are both active the tighter overlap spread
// wins; SpreadModel takes the minimum across active sessions regardless.
var Sessions = []Session{
	{Name: Overlap, Start: 12, End: 16},
	{Name: London, Start: 7, End: 16},
	{Name: NewYork, Start: 12, End: 21},
	{Name: Asian, Start: 23, End: 8},
}

// Active returns the sessions active at t, evaluated in UTC.
func Active(t time.Time) []Session {
	hour := t.UTC().Hour()
	active := make([]Session, 0, 2)
	for _, s := range Sessions {
		if s.Contains(hour) {
			active = append(active, s)
		}
	}
	return active
}

// SpreadModel returns the spread, in price units, a trade pays at a given
// time. The zero value is not usable; construct one with NewSpreadModel.
type SpreadModel struct {
	spreads       map[Name]float64
	defaultSpread float64
}

// SpreadConfig overrides the per-session spreads. Zero values fall back to
// the defaults.
type SpreadConfig struct {
	Asian   float64 `yaml:"asian"`
	London  float64 `yaml:"london"`
	NewYork float64 `yaml:"new_york"`
	Overlap float64 `yaml:"overlap"`
	Default float64 `yaml:"default"`
}

// Default XAUUSD spreads in price units (0.10 = 1 pip).
const (
	defaultAsianSpread   = 0.50
	defaultLondonSpread  = 0.30
	defaultNewYorkSpread = 0.30
	defaultOverlapSpread = 0.20
	defaultDefaultSpread = 0.50
)

// NewSpreadModel builds a spread model from cfg, substituting defaults for
// any unset (zero) entries.
func NewSpreadModel(cfg SpreadConfig) *SpreadModel {
	pick := func(v, def float64) float64 {
		if v > 0 {
			return v
		}
		return def
	}
	return &SpreadModel{
		spreads: map[Name]float64{
			Asian:   pick(cfg.Asian, defaultAsianSpread),
			London:  pick(cfg.London, defaultLondonSpread),
			NewYork: pick(cfg.NewYork, defaultNewYorkSpread),
			Overlap: pick(cfg.Overlap, defaultOverlapSpread),
		},
		defaultSpread: pick(cfg.Default, defaultDefaultSpread),
	}
}

// DefaultSpreadModel returns a model with the stock XAUUSD spreads.
func DefaultSpreadModel() *SpreadModel {
	return NewSpreadModel(SpreadConfig{})
}

// Spread returns the spread in effect at t: the minimum spread across all
// active sessions, or the default spread when no session is active (the
// weekend gap between the New York close and the Asian open).
func (m *SpreadModel) Spread(t time.Time) float64 {
	active := Active(t)
	if len(active) == 0 {
		return m.defaultSpread
	}
	spread := m.defaultSpread
	for _, s := range active {
		if v, ok := m.spreads[s.Name]; ok && v < spread {
			spread = v
		}
	}
	return spread
}
