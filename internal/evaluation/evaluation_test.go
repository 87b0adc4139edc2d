package evaluation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-evaluation/internal/config"
	"github.com/rxtech-lab/argo-evaluation/internal/logger"
	"github.com/rxtech-lab/argo-evaluation/internal/store"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

type EvaluationTestSuite struct {
	suite.Suite
	store *store.Store
}

func TestEvaluationSuite(t *testing.T) {
	suite.Run(t, new(EvaluationTestSuite))
}

func (suite *EvaluationTestSuite) SetupTest() {
	s, err := store.NewStore(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.store = s
}

func (suite *EvaluationTestSuite) TearDownTest() {
	suite.store.Close()
}

func (suite *EvaluationTestSuite) testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.DataPath = "bars.csv"
	cfg.WindowDays = []int{1, 2}
	cfg.StepDays = 1
	return cfg
}

// quietBars returns identical hourly bars: no trend, no range expansion,
// no level ever undercut, so no built-in strategy emits a candidate.
func quietBars(count int) []types.Bar {
	bars := make([]types.Bar, count)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = types.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   2400.0,
			High:   2400.1,
			Low:    2399.9,
			Close:  2400.0,
			Volume: 1000,
		}
	}
	return bars
}

func (suite *EvaluationTestSuite) TestRunCyclePersistsAllRecords() {
	runner := NewRunner(suite.testConfig(), suite.store, logger.NewNopLogger())

	result, err := runner.RunCycle(context.Background(), quietBars(2400))
	suite.Require().NoError(err)
	suite.NotEmpty(result.CycleID)

	// 4 strategies x 2 windows, plus one walk-forward record each.
	suite.Len(result.Records, 12)

	walkForward := 0
	for _, record := range result.Records {
		suite.Equal(result.CycleID, record.CycleID)
		suite.Equal("session", record.SpreadModel)
		if record.IsWalkForward {
			walkForward++
			// Quiet bars produce no trades, so overfitting detection
			// never ran.
			suite.True(record.IsOverfitted.IsNone())
		}
	}
	suite.Equal(4, walkForward)

	stored, err := suite.store.ResultsForCycle(result.CycleID)
	suite.Require().NoError(err)
	suite.Len(stored, 12)
}

func (suite *EvaluationTestSuite) TestRunCycleNoTradesYieldsNoSelection() {
	runner := NewRunner(suite.testConfig(), suite.store, logger.NewNopLogger())

	result, err := runner.RunCycle(context.Background(), quietBars(2400))
	suite.Require().NoError(err)

	// Every record has zero trades, below the selector's minimum.
	suite.Empty(result.Scores)
	suite.True(result.Best.IsNone())
}

func (suite *EvaluationTestSuite) TestRunCycleEmptyBars() {
	runner := NewRunner(suite.testConfig(), suite.store, logger.NewNopLogger())

	_, err := runner.RunCycle(context.Background(), nil)
	suite.Require().Error(err)
}

func (suite *EvaluationTestSuite) TestRunCycleSkipsOversizedWindows() {
	cfg := suite.testConfig()
	cfg.WindowDays = []int{1, 365}
	cfg.WalkForward = false
	runner := NewRunner(cfg, suite.store, logger.NewNopLogger())

	result, err := runner.RunCycle(context.Background(), quietBars(2400))
	suite.Require().NoError(err)

	// The 365-day window does not fit 100 days of bars and is skipped.
	suite.Len(result.Records, 4)
	for _, record := range result.Records {
		suite.Equal(1, record.WindowDays)
	}
}

func (suite *EvaluationTestSuite) TestSelectBestFromSeededStore() {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	record := func(name string, winRate, pf float64) types.EvaluationRecord {
		return types.EvaluationRecord{
			CycleID:      "cycle-seed",
			StrategyName: name,
			WindowDays:   30,
			WindowStart:  now.Add(-30 * 24 * time.Hour),
			WindowEnd:    now,
			Metrics: types.BacktestMetrics{
				WinRate:      winRate,
				ProfitFactor: pf,
				SharpeRatio:  1.0,
				MaxDrawdown:  100,
				Expectancy:   10,
				TotalTrades:  80,
				LongRatio:    0.5,
			},
			SpreadModel: "session",
			CreatedAt:   now,
		}
	}
	suite.Require().NoError(suite.store.SaveCycle([]types.EvaluationRecord{
		record("ema_momentum", 0.62, 2.1),
		record("trend_continuation", 0.48, 1.4),
		record("breakout_expansion", 0.51, 1.6),
	}))

	runner := NewRunner(suite.testConfig(), suite.store, logger.NewNopLogger())

	best, err := runner.SelectBest(quietBars(300))
	suite.Require().NoError(err)
	suite.Require().True(best.IsSome())
	suite.Equal("ema_momentum", best.Unwrap().StrategyName)

	scores, err := runner.RankAll(quietBars(300))
	suite.Require().NoError(err)
	suite.Len(scores, 3)
	suite.Equal("ema_momentum", scores[0].StrategyName)
}
