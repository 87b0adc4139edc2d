// Package metrics computes backtest performance statistics from simulated
// trades.
package metrics

import (
	"math"

	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

const (
	// ProfitFactorCap bounds the profit factor when no losing trades exist.
	ProfitFactorCap = 9999.9999

	// annualizationPeriods is the trading-day count used to annualize the
	// Sharpe ratio.
	annualizationPeriods = 252
)

// Calculator computes BacktestMetrics from a set of simulated trades.
type Calculator struct{}

// NewCalculator creates a metrics calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute aggregates trades into metrics. An empty trade set yields the zero
// metrics value rather than an error so callers can persist a "no trades"
// window uniformly.
func (c *Calculator) Compute(trades []types.SimulatedTrade) types.BacktestMetrics {
	if len(trades) == 0 {
		return types.BacktestMetrics{}
	}

	var (
		wins        int
		longs       int
		grossProfit float64
		grossLoss   float64
		totalPnL    float64
	)
	pnls := make([]float64, len(trades))

	for i, trade := range trades {
		pnls[i] = trade.PnL
		totalPnL += trade.PnL

		if trade.Outcome.IsWin() {
			wins++
		}
		if trade.Candidate.Direction == types.DirectionLong {
			longs++
		}

		if trade.PnL > 0 {
			grossProfit += trade.PnL
		} else {
			grossLoss += -trade.PnL
		}
	}

	maxDrawdown, maxDrawdownPct := drawdown(pnls)

	m := types.BacktestMetrics{
		WinRate:        float64(wins) / float64(len(trades)),
		ProfitFactor:   profitFactor(grossProfit, grossLoss),
		SharpeRatio:    sharpe(pnls),
		MaxDrawdown:    maxDrawdown,
		MaxDrawdownPct: maxDrawdownPct,
		Expectancy:     totalPnL / float64(len(trades)),
		TotalTrades:    len(trades),
		LongRatio:      float64(longs) / float64(len(trades)),
	}

	return m.Rounded()
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}
		return ProfitFactorCap
	}

	pf := grossProfit / grossLoss
	if pf > ProfitFactorCap {
		return ProfitFactorCap
	}

	return pf
}

// sharpe annualizes the per-trade PnL Sharpe ratio. Fewer than two trades,
// or a zero standard deviation, yields zero.
func sharpe(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range pnls {
		mean += v
	}
	mean /= float64(len(pnls))

	variance := 0.0
	for _, v := range pnls {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(pnls) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(annualizationPeriods)
}

// drawdown walks the cumulative PnL curve and returns the deepest drop from
// a running peak, in absolute PnL units and as a fraction of that peak. The
// percentage is zero when the peak is not positive.
func drawdown(pnls []float64) (float64, float64) {
	var (
		cumulative  float64
		peak        float64
		maxDrawdown float64
		maxPct      float64
	)

	for _, v := range pnls {
		cumulative += v
		if cumulative > peak {
			peak = cumulative
		}

		dd := peak - cumulative
		if dd > maxDrawdown {
			maxDrawdown = dd
			if peak > 0 {
				maxPct = dd / peak
			}
		}
	}

	return maxDrawdown, maxPct
}
