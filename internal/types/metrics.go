package types

import "github.com/shopspring/decimal"

// BacktestMetrics is the aggregated performance of one set of simulated
// trades. All fields are zero on empty input; none of the derivations
// ever error.
type BacktestMetrics struct {
	// WinRate is the fraction of trades that hit a take-profit, in [0, 1].
	WinRate float64 `yaml:"win_rate"`
	// ProfitFactor is gross winning PnL divided by absolute gross losing
	// PnL, capped at ProfitFactorCap when there are no losing trades.
	ProfitFactor float64 `yaml:"profit_factor"`
	// SharpeRatio is the annualized mean-over-stddev of per-trade PnL.
	// Zero when fewer than two trades exist.
	SharpeRatio float64 `yaml:"sharpe_ratio"`
	// MaxDrawdown is the largest peak-to-trough decline of the cumulative
	// PnL curve, in pips (positive value).
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// MaxDrawdownPct is MaxDrawdown as a fraction of the peak it fell
	// from, or zero when the peak was not positive.
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	// Expectancy is the mean realized PnL per trade, in pips.
	Expectancy float64 `yaml:"expectancy"`
	// TotalTrades is the number of trades the metrics were derived from.
	TotalTrades int `yaml:"total_trades"`
	// LongRatio is the fraction of trades taken long, in [0, 1]. Zero
	// when there are no trades.
	LongRatio float64 `yaml:"long_ratio"`
}

// Rounded returns a copy with every float metric rounded to 4 decimal
// places, matching the precision of the persisted result columns.
func (m BacktestMetrics) Rounded() BacktestMetrics {
	m.WinRate = round4(m.WinRate)
	m.ProfitFactor = round4(m.ProfitFactor)
	m.SharpeRatio = round4(m.SharpeRatio)
	m.MaxDrawdown = round4(m.MaxDrawdown)
	m.MaxDrawdownPct = round4(m.MaxDrawdownPct)
	m.Expectancy = round4(m.Expectancy)
	m.LongRatio = round4(m.LongRatio)
	return m
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}
