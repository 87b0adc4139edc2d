package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"

	"github.com/rxtech-lab/argo-evaluation/internal/config"
	"github.com/rxtech-lab/argo-evaluation/internal/evaluation"
	"github.com/rxtech-lab/argo-evaluation/internal/logger"
	"github.com/rxtech-lab/argo-evaluation/internal/store"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
)

func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if dataPath := cmd.String("data"); dataPath != "" {
		cfg.DataPath = dataPath
	}
	if dbPath := cmd.String("db"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if cmd.Bool("progress") {
		cfg.ShowProgress = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func newLogger(cfg config.Config) (*logger.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return logger.NewLoggerWithLevel(level)
}

// runAction executes one full evaluation cycle and prints the ranking.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	resultStore, err := store.NewStore(cfg.DatabasePath, log)
	if err != nil {
		return err
	}
	defer resultStore.Close()

	runner := evaluation.NewRunner(cfg, resultStore, log)

	bars, err := runner.LoadBars()
	if err != nil {
		return err
	}

	result, err := runner.RunCycle(ctx, bars)
	if err != nil {
		return err
	}

	fmt.Printf("cycle %s: %d records written\n", result.CycleID, len(result.Records))
	printScores(result.Scores)

	return nil
}

// selectAction ranks strategies over the stored history without running
// new backtests.
func selectAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	resultStore, err := store.NewStore(cfg.DatabasePath, log)
	if err != nil {
		return err
	}
	defer resultStore.Close()

	runner := evaluation.NewRunner(cfg, resultStore, log)

	bars, err := runner.LoadBars()
	if err != nil {
		return err
	}

	scores, err := runner.RankAll(bars)
	if err != nil {
		return err
	}

	printScores(scores)

	return nil
}

// schemaAction prints the configuration JSON schema.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	cfg := config.DefaultConfig()

	schemaJSON, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schemaJSON)

	return nil
}

func printScores(scores []types.StrategyScore) {
	if len(scores) == 0 {
		fmt.Println("no strategy passed the minimum trade count")
		return
	}

	for i, score := range scores {
		flag := ""
		if score.Degraded {
			flag = " [degraded: " + score.DegradedReason + "]"
		}
		fmt.Printf("%d. %-22s score=%.4f win_rate=%.2f pf=%.2f trades=%d regime=%s%s\n",
			i+1, score.StrategyName, score.CompositeScore, score.WinRate,
			score.ProfitFactor, score.TotalTrades, score.Regime, flag)
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "evaluate",
		Usage: "Backtest, validate and rank XAUUSD trading strategies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "CSV or Parquet price file (overrides config)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "DuckDB result database path (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar during backtests",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run one full evaluation cycle and persist the results",
				Action: runAction,
			},
			{
				Name:   "select",
				Usage:  "Rank strategies over the stored results without backtesting",
				Action: selectAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the configuration JSON schema",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
