package types

// TradeOutcome is the resolved result of simulating one candidate.
type TradeOutcome string

const (
	// OutcomeTP1 means the first take-profit level was touched first.
	OutcomeTP1 TradeOutcome = "TP1_HIT"
	// OutcomeTP2 means the second take-profit level was touched first.
	OutcomeTP2 TradeOutcome = "TP2_HIT"
	// OutcomeStop means the stop level was touched first. When a single
	// bar's range covers both the stop and a take-profit, the stop wins:
	// bar data cannot disambiguate intrabar sequencing, so the simulator
	// assumes the worse outcome.
	OutcomeStop TradeOutcome = "SL_HIT"
	// OutcomeExpired means no level was touched within the holding ceiling.
	OutcomeExpired TradeOutcome = "EXPIRED"
)

// IsWin reports whether the outcome counts as a winning trade.
func (o TradeOutcome) IsWin() bool {
	return o == OutcomeTP1 || o == OutcomeTP2
}

// SimulatedTrade is the result of walking one TradeCandidate forward
// through OHLC bars. Created exclusively by the simulator and immutable
// once created; a new simulation run produces a fresh set.
type SimulatedTrade struct {
	Candidate TradeCandidate `yaml:"candidate"`
	Outcome   TradeOutcome   `yaml:"outcome"`
	ExitPrice float64        `yaml:"exit_price"`
	// PnL is the realized profit or loss in pips (price distance divided
	// by the pip value), not currency.
	PnL      float64 `yaml:"pnl"`
	BarsHeld int     `yaml:"bars_held"`
	// SpreadCost is the transaction cost applied at entry, in price units.
	SpreadCost float64 `yaml:"spread_cost"`
}
