package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-evaluation/internal/session"
	"github.com/rxtech-lab/argo-evaluation/internal/simulator"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// stubStrategy emits one long candidate per window via build, or nothing
// when build returns false.
type stubStrategy struct {
	minBars int
	build   func(window []types.Bar) (types.TradeCandidate, bool)
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) MinBars() int { return s.minBars }

func (s *stubStrategy) Analyze(bars []types.Bar) ([]types.TradeCandidate, error) {
	if len(bars) < s.minBars {
		return nil, errors.NewInsufficientDataError(s.minBars, len(bars), "stub", "not enough bars")
	}
	if candidate, ok := s.build(bars); ok {
		return []types.TradeCandidate{candidate}, nil
	}
	return nil, nil
}

// alwaysLong emits a long candidate off the window's final close with a
// 2-point target and 3-point stop.
func alwaysLong(window []types.Bar) (types.TradeCandidate, bool) {
	last := window[len(window)-1]
	return types.TradeCandidate{
		StrategyName: "stub",
		Direction:    types.DirectionLong,
		Entry:        last.Close,
		Stop:         last.Close - 3,
		TakeProfit1:  last.Close + 2,
		TakeProfit2:  last.Close + 4,
		Confidence:   50,
		Rationale:    "stub",
		Timestamp:    last.Time,
	}, true
}

// longWhenRising emits the same candidate only when the window closed
// higher than it opened.
func longWhenRising(window []types.Bar) (types.TradeCandidate, bool) {
	if window[len(window)-1].Close <= window[0].Close {
		return types.TradeCandidate{}, false
	}
	return alwaysLong(window)
}

// driftBars returns count hourly bars drifting by step per bar.
func driftBars(count int, start, step float64) []types.Bar {
	startTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, count)
	price := start
	for i := range bars {
		closeVal := price + step
		high, low := closeVal, price
		if step < 0 {
			high, low = price, closeVal
		}
		bars[i] = types.Bar{
			Time:   startTime.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   high + 0.1,
			Low:    low - 0.1,
			Close:  closeVal,
			Volume: 1000,
		}
		price = closeVal
	}
	return bars
}

func flatSpreads() *session.SpreadModel {
	return session.NewSpreadModel(session.SpreadConfig{
		Asian: 0.20, London: 0.20, NewYork: 0.20, Overlap: 0.20, Default: 0.20,
	})
}

type RunnerTestSuite struct {
	suite.Suite
	runner *Runner
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (suite *RunnerTestSuite) SetupTest() {
	suite.runner = NewRunner(WithSimulator(simulator.NewSimulator(
		simulator.WithMaxBarsForward(6),
		simulator.WithSpreadModel(flatSpreads()),
	)))
}

func (suite *RunnerTestSuite) TestRunRollingTooFewBars() {
	bars := driftBars(20, 2400, 1)

	_, err := suite.runner.RunRolling(&stubStrategy{minBars: 10, build: alwaysLong}, bars, 1, 1)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoBars))
}

func (suite *RunnerTestSuite) TestRunRollingInvalidWindow() {
	bars := driftBars(100, 2400, 1)

	_, err := suite.runner.RunRolling(&stubStrategy{minBars: 10, build: alwaysLong}, bars, 0, 1)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestWindowSize))
}

func (suite *RunnerTestSuite) TestRunRollingCollectsTrades() {
	// 10 days of rising bars, 1-day windows stepping 1 day: every window
	// after the first leaves forward room, and every candidate wins.
	bars := driftBars(240, 2400, 1)
	s := &stubStrategy{minBars: 10, build: alwaysLong}

	trades, err := suite.runner.RunRolling(s, bars, 1, 1)
	suite.Require().NoError(err)

	// Windows start at 0, 24, ... while start < 240 - 24 - 6.
	suite.Len(trades, 9)

	for _, trade := range trades {
		suite.Equal(types.OutcomeTP1, trade.Outcome)
		suite.Positive(trade.PnL)
	}
}

func (suite *RunnerTestSuite) TestRunRollingEntryOnWindowFinalBar() {
	bars := driftBars(240, 2400, 1)
	s := &stubStrategy{minBars: 10, build: alwaysLong}

	trades, err := suite.runner.RunRolling(s, bars, 1, 1)
	suite.Require().NoError(err)
	suite.Require().NotEmpty(trades)

	// The first window covers bars [0, 24); its signal fires on bar 23
	// and the 2-point target is reached two bars later.
	first := trades[0]
	suite.Equal(bars[23].Time, first.Candidate.Timestamp)
	suite.Equal(2, first.BarsHeld)
}

func (suite *RunnerTestSuite) TestRunRollingTruncationEquivalence() {
	// Trades produced from a truncated series match the full-series trades
	// whose windows and forward walks fit inside the truncation: nothing a
	// window emits depends on bars after its forward horizon.
	bars := driftBars(240, 2400, 1)
	s := &stubStrategy{minBars: 10, build: alwaysLong}

	full, err := suite.runner.RunRolling(s, bars, 1, 1)
	suite.Require().NoError(err)

	truncated, err := suite.runner.RunRolling(s, bars[:168], 1, 1)
	suite.Require().NoError(err)

	// Windows start at 0, 24, ... while start < 168 - 24 - 6.
	suite.Require().Len(truncated, 6)
	suite.Equal(full[:len(truncated)], truncated)
}

func (suite *RunnerTestSuite) TestRunFullIdempotent() {
	bars := driftBars(240, 2400, 1)
	s := &stubStrategy{minBars: 10, build: alwaysLong}

	first, firstTrades, err := suite.runner.RunFull(s, bars, 1, 1)
	suite.Require().NoError(err)
	second, secondTrades, err := suite.runner.RunFull(s, bars, 1, 1)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Equal(firstTrades, secondTrades)
}

func (suite *RunnerTestSuite) TestRunFullAggregatesMetrics() {
	bars := driftBars(240, 2400, 1)
	s := &stubStrategy{minBars: 10, build: alwaysLong}

	m, trades, err := suite.runner.RunFull(s, bars, 1, 1)
	suite.Require().NoError(err)

	suite.Equal(len(trades), m.TotalTrades)
	suite.InDelta(1.0, m.WinRate, 1e-9)
	suite.Positive(m.Expectancy)
}

type WalkForwardTestSuite struct {
	suite.Suite
	validator *WalkForwardValidator
}

func TestWalkForwardSuite(t *testing.T) {
	suite.Run(t, new(WalkForwardTestSuite))
}

func (suite *WalkForwardTestSuite) SetupTest() {
	runner := NewRunner(WithSimulator(simulator.NewSimulator(
		simulator.WithMaxBarsForward(6),
		simulator.WithSpreadModel(flatSpreads()),
	)))
	suite.validator = NewWalkForwardValidator(runner, nil)
}

// regimeShiftBars rises for the first 80% of count and falls afterwards, so
// a long-only strategy wins in-sample and loses out-of-sample.
func regimeShiftBars(count int) []types.Bar {
	split := int(float64(count) * 0.8)
	rising := driftBars(split, 2400, 1)
	falling := driftBars(count-split, rising[len(rising)-1].Close, -1)
	for i := range falling {
		falling[i].Time = rising[len(rising)-1].Time.Add(time.Duration(i+1) * time.Hour)
	}
	return append(rising, falling...)
}

func (suite *WalkForwardTestSuite) TestValidateFlagsOverfitting() {
	bars := regimeShiftBars(1200)
	s := &stubStrategy{minBars: 10, build: alwaysLong}

	result, err := suite.validator.Validate(s, bars, 1, 1)
	suite.Require().NoError(err)

	suite.False(result.InsufficientOOSTrades)
	suite.True(result.Overfitted)
	suite.InDelta(1.0, result.InSample.WinRate, 1e-9)
	suite.InDelta(0.0, result.OutOfSample.WinRate, 1e-9)
	suite.Require().True(result.WinRateEfficiency.IsSome())
	suite.InDelta(0.0, result.WinRateEfficiency.Unwrap(), 1e-9)
}

func (suite *WalkForwardTestSuite) TestValidateInsufficientOOSTrades() {
	bars := regimeShiftBars(1200)
	s := &stubStrategy{minBars: 10, build: longWhenRising}

	result, err := suite.validator.Validate(s, bars, 1, 1)
	suite.Require().NoError(err)

	suite.True(result.InsufficientOOSTrades)
	suite.False(result.Overfitted)
	suite.True(result.WinRateEfficiency.IsNone())
	suite.True(result.ProfitFactorEfficiency.IsNone())
}

func (suite *WalkForwardTestSuite) TestValidateConsistentPerformanceNotFlagged() {
	bars := driftBars(1200, 2400, 1)
	s := &stubStrategy{minBars: 10, build: alwaysLong}

	result, err := suite.validator.Validate(s, bars, 1, 1)
	suite.Require().NoError(err)

	suite.False(result.Overfitted)
	suite.False(result.InsufficientOOSTrades)
	suite.Require().True(result.WinRateEfficiency.IsSome())
	suite.InDelta(1.0, result.WinRateEfficiency.Unwrap(), 1e-9)
}

func (suite *WalkForwardTestSuite) TestValidateShortOOSPeriod() {
	// 30 bars out-of-sample cannot fit a window plus forward room; the
	// validation still succeeds and reports insufficient trades.
	bars := driftBars(150, 2400, 1)
	s := &stubStrategy{minBars: 10, build: alwaysLong}

	result, err := suite.validator.Validate(s, bars, 1, 1)
	suite.Require().NoError(err)
	suite.True(result.InsufficientOOSTrades)
}
