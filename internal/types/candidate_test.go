package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

type CandidateTestSuite struct {
	suite.Suite
}

func TestCandidateSuite(t *testing.T) {
	suite.Run(t, new(CandidateTestSuite))
}

func validLongCandidate() TradeCandidate {
	return TradeCandidate{
		StrategyName: "ema_momentum",
		Direction:    DirectionLong,
		Entry:        2400.0,
		Stop:         2390.0,
		TakeProfit1:  2415.0,
		TakeProfit2:  2430.0,
		Confidence:   60,
		Rationale:    "bullish momentum",
		Timestamp:    time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
	}
}

func validShortCandidate() TradeCandidate {
	return TradeCandidate{
		StrategyName: "trend_continuation",
		Direction:    DirectionShort,
		Entry:        2400.0,
		Stop:         2410.0,
		TakeProfit1:  2385.0,
		TakeProfit2:  2370.0,
		Confidence:   55,
		Rationale:    "bearish continuation",
		Timestamp:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (suite *CandidateTestSuite) TestValidate() {
	tests := []struct {
		name         string
		mutate       func(c *TradeCandidate)
		expectError  bool
		expectedCode errors.ErrorCode
	}{
		{
			name:        "Valid long candidate",
			mutate:      func(c *TradeCandidate) {},
			expectError: false,
		},
		{
			name: "Valid short candidate",
			mutate: func(c *TradeCandidate) {
				*c = validShortCandidate()
			},
			expectError: false,
		},
		{
			name: "Long stop above entry",
			mutate: func(c *TradeCandidate) {
				c.Stop = 2405.0
			},
			expectError:  true,
			expectedCode: errors.ErrCodeInvalidStop,
		},
		{
			name: "Long take-profit-1 below entry",
			mutate: func(c *TradeCandidate) {
				c.TakeProfit1 = 2395.0
			},
			expectError:  true,
			expectedCode: errors.ErrCodeInvalidTakeProfit,
		},
		{
			name: "Long take-profit-2 not beyond take-profit-1",
			mutate: func(c *TradeCandidate) {
				c.TakeProfit2 = c.TakeProfit1
			},
			expectError:  true,
			expectedCode: errors.ErrCodeInvalidTakeProfit,
		},
		{
			name: "Short stop below entry",
			mutate: func(c *TradeCandidate) {
				*c = validShortCandidate()
				c.Stop = 2395.0
			},
			expectError:  true,
			expectedCode: errors.ErrCodeInvalidStop,
		},
		{
			name: "Short take-profit-2 not beyond take-profit-1",
			mutate: func(c *TradeCandidate) {
				*c = validShortCandidate()
				c.TakeProfit2 = 2390.0
			},
			expectError:  true,
			expectedCode: errors.ErrCodeInvalidTakeProfit,
		},
		{
			name: "Missing strategy name",
			mutate: func(c *TradeCandidate) {
				c.StrategyName = ""
			},
			expectError:  true,
			expectedCode: errors.ErrCodeInvalidCandidate,
		},
		{
			name: "Confidence above 100",
			mutate: func(c *TradeCandidate) {
				c.Confidence = 120
			},
			expectError:  true,
			expectedCode: errors.ErrCodeInvalidCandidate,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			candidate := validLongCandidate()
			tc.mutate(&candidate)

			err := candidate.Validate()
			if tc.expectError {
				suite.Require().Error(err)
				suite.True(errors.HasCode(err, tc.expectedCode), "unexpected error code for %v", err)
			} else {
				suite.NoError(err)
			}
		})
	}
}

func (suite *CandidateTestSuite) TestRiskDistance() {
	long := validLongCandidate()
	suite.InDelta(10.0, long.RiskDistance(), 1e-9)

	short := validShortCandidate()
	suite.InDelta(10.0, short.RiskDistance(), 1e-9)
}

func (suite *CandidateTestSuite) TestOutcomeIsWin() {
	suite.True(OutcomeTP1.IsWin())
	suite.True(OutcomeTP2.IsWin())
	suite.False(OutcomeStop.IsWin())
	suite.False(OutcomeExpired.IsWin())
}

func (suite *CandidateTestSuite) TestMetricsRounded() {
	m := BacktestMetrics{
		WinRate:      0.123456,
		ProfitFactor: 1.987654,
		SharpeRatio:  -0.333333,
		MaxDrawdown:  12.345678,
		Expectancy:   0.00009,
		LongRatio:    0.666666,
		TotalTrades:  7,
	}

	r := m.Rounded()
	suite.InDelta(0.1235, r.WinRate, 1e-9)
	suite.InDelta(1.9877, r.ProfitFactor, 1e-9)
	suite.InDelta(-0.3333, r.SharpeRatio, 1e-9)
	suite.InDelta(12.3457, r.MaxDrawdown, 1e-9)
	suite.InDelta(0.0001, r.Expectancy, 1e-9)
	suite.InDelta(0.6667, r.LongRatio, 1e-9)
	suite.Equal(7, r.TotalTrades)
}
