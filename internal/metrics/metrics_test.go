package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

type MetricsTestSuite struct {
	suite.Suite
	calculator *Calculator
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) SetupTest() {
	suite.calculator = NewCalculator()
}

func tradesFromPnLs(pnls []float64) []types.SimulatedTrade {
	trades := make([]types.SimulatedTrade, len(pnls))
	for i, pnl := range pnls {
		outcome := types.OutcomeStop
		if pnl > 0 {
			outcome = types.OutcomeTP1
		}
		trades[i] = types.SimulatedTrade{
			Candidate: types.TradeCandidate{
				StrategyName: "ema_momentum",
				Direction:    types.DirectionLong,
			},
			Outcome: outcome,
			PnL:     pnl,
		}
	}
	return trades
}

func (suite *MetricsTestSuite) TestComputeEmpty() {
	m := suite.calculator.Compute(nil)
	suite.Equal(types.BacktestMetrics{}, m)
}

func (suite *MetricsTestSuite) TestComputeBasic() {
	m := suite.calculator.Compute(tradesFromPnLs([]float64{100, -50, 100, -50}))

	suite.InDelta(0.5, m.WinRate, 1e-9)
	suite.InDelta(2.0, m.ProfitFactor, 1e-9)
	suite.InDelta(25.0, m.Expectancy, 1e-9)
	suite.Equal(4, m.TotalTrades)
	suite.InDelta(1.0, m.LongRatio, 1e-9)
}

func (suite *MetricsTestSuite) TestProfitFactorCappedWithoutLosses() {
	m := suite.calculator.Compute(tradesFromPnLs([]float64{100, 50, 75}))
	suite.InDelta(ProfitFactorCap, m.ProfitFactor, 1e-9)
}

func (suite *MetricsTestSuite) TestProfitFactorZeroOnAllLosses() {
	m := suite.calculator.Compute(tradesFromPnLs([]float64{-100, -50}))
	suite.InDelta(0.0, m.ProfitFactor, 1e-9)
	suite.InDelta(0.0, m.WinRate, 1e-9)
}

func (suite *MetricsTestSuite) TestSharpe() {
	tests := []struct {
		name     string
		pnls     []float64
		expected float64
	}{
		{
			name:     "Single trade is zero",
			pnls:     []float64{100},
			expected: 0,
		},
		{
			name:     "Constant returns have zero deviation",
			pnls:     []float64{50, 50, 50},
			expected: 0,
		},
		{
			name: "Alternating returns",
			pnls: []float64{100, -50, 100, -50},
			// mean 25, sample std sqrt(7500) -> 25/86.60.. * sqrt(252)
			expected: 25.0 / math.Sqrt(7500.0) * math.Sqrt(252.0),
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			m := suite.calculator.Compute(tradesFromPnLs(tc.pnls))
			suite.InDelta(tc.expected, m.SharpeRatio, 1e-4)
		})
	}
}

func (suite *MetricsTestSuite) TestDrawdown() {
	// Curve: 100, 200, 120, 60, 160. Peak 200, trough 60 -> dd 140, 70%.
	m := suite.calculator.Compute(tradesFromPnLs([]float64{100, 100, -80, -60, 100}))

	suite.InDelta(140.0, m.MaxDrawdown, 1e-9)
	suite.InDelta(0.7, m.MaxDrawdownPct, 1e-9)
}

func (suite *MetricsTestSuite) TestDrawdownNeverRecovers() {
	m := suite.calculator.Compute(tradesFromPnLs([]float64{-50, -50}))

	suite.InDelta(100.0, m.MaxDrawdown, 1e-9)
	// Peak never positive, so the percentage stays zero.
	suite.InDelta(0.0, m.MaxDrawdownPct, 1e-9)
}

func (suite *MetricsTestSuite) TestLongRatioMixed() {
	trades := tradesFromPnLs([]float64{100, -50, 100, -50})
	trades[1].Candidate.Direction = types.DirectionShort
	trades[3].Candidate.Direction = types.DirectionShort

	m := suite.calculator.Compute(trades)
	suite.InDelta(0.5, m.LongRatio, 1e-9)
}
