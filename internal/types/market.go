package types

import "time"

// Bar is one OHLC price observation over a fixed time interval.
// Bar series are ordered by time ascending and treated as immutable
// for the duration of an evaluation run.
type Bar struct {
	Time   time.Time `csv:"time" yaml:"time"`
	Open   float64   `csv:"open" yaml:"open"`
	High   float64   `csv:"high" yaml:"high"`
	Low    float64   `csv:"low" yaml:"low"`
	Close  float64   `csv:"close" yaml:"close"`
	Volume float64   `csv:"volume" yaml:"volume"`
}

// BodySize returns the absolute open-to-close distance of the bar.
func (b Bar) BodySize() float64 {
	if b.Close >= b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}
