// Package store persists evaluation records in DuckDB. Records are
// append-only: every evaluation cycle inserts a fresh batch and readers
// pick winners by created_at, so history is never rewritten.
package store

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-evaluation/internal/logger"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// Store is a DuckDB-backed result store. Pass ":memory:" (or an empty
// path) to keep everything in memory, useful for tests.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

const createResultsTable = `
CREATE TABLE IF NOT EXISTS evaluation_results (
	cycle_id TEXT NOT NULL,
	strategy_name TEXT NOT NULL,
	window_days INTEGER NOT NULL,
	window_start TIMESTAMP NOT NULL,
	window_end TIMESTAMP NOT NULL,
	win_rate DOUBLE NOT NULL,
	profit_factor DOUBLE NOT NULL,
	sharpe_ratio DOUBLE NOT NULL,
	max_drawdown DOUBLE NOT NULL,
	max_drawdown_pct DOUBLE NOT NULL,
	expectancy DOUBLE NOT NULL,
	total_trades INTEGER NOT NULL,
	long_ratio DOUBLE NOT NULL,
	is_walk_forward BOOLEAN NOT NULL,
	is_overfitted BOOLEAN,
	walk_forward_efficiency DOUBLE,
	spread_model TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)
`

var resultColumns = []string{
	"cycle_id", "strategy_name", "window_days", "window_start", "window_end",
	"win_rate", "profit_factor", "sharpe_ratio", "max_drawdown", "max_drawdown_pct",
	"expectancy", "total_trades", "long_ratio",
	"is_walk_forward", "is_overfitted", "walk_forward_efficiency",
	"spread_model", "created_at",
}

// NewStore opens (or creates) the DuckDB database at path and ensures the
// results table exists.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreInitFailed, err, "failed to open database at %s", path)
	}

	if _, err := db.Exec(createResultsTable); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStoreInitFailed, "failed to create results table", err)
	}

	return &Store{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCycle writes every record of one evaluation cycle in a single
// transaction. Either the whole cycle lands or none of it does, so a
// crashed run never leaves a partially written cycle behind.
func (s *Store) SaveCycle(records []types.EvaluationRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteFailed, "failed to begin transaction", err)
	}

	for _, record := range records {
		insert := s.sq.
			Insert("evaluation_results").
			Columns(resultColumns...).
			Values(
				record.CycleID, record.StrategyName, record.WindowDays,
				record.WindowStart, record.WindowEnd,
				record.Metrics.WinRate, record.Metrics.ProfitFactor, record.Metrics.SharpeRatio,
				record.Metrics.MaxDrawdown, record.Metrics.MaxDrawdownPct,
				record.Metrics.Expectancy, record.Metrics.TotalTrades, record.Metrics.LongRatio,
				record.IsWalkForward, nullableBool(record.IsOverfitted), nullableFloat(record.WalkForwardEfficiency),
				record.SpreadModel, record.CreatedAt,
			).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()
			return errors.Wrapf(errors.ErrCodeStoreWriteFailed, err,
				"failed to insert result for strategy %s (cycle %s)", record.StrategyName, record.CycleID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreCommitFailed, "failed to commit evaluation cycle", err)
	}

	s.logger.Debug("Saved evaluation cycle",
		zap.String("cycle_id", records[0].CycleID),
		zap.Int("records", len(records)))

	return nil
}

// LatestResult returns the most recent non-walk-forward record for the
// strategy and window size, or None when no such record exists.
func (s *Store) LatestResult(strategyName string, windowDays int) (optional.Option[types.EvaluationRecord], error) {
	query := s.selectResults().
		Where(squirrel.Eq{"strategy_name": strategyName, "window_days": windowDays, "is_walk_forward": false}).
		OrderBy("created_at DESC").
		Limit(1)

	return s.queryOne(query)
}

// LatestResultAnyWindow is LatestResult without the window constraint.
func (s *Store) LatestResultAnyWindow(strategyName string) (optional.Option[types.EvaluationRecord], error) {
	query := s.selectResults().
		Where(squirrel.Eq{"strategy_name": strategyName, "is_walk_forward": false}).
		OrderBy("created_at DESC").
		Limit(1)

	return s.queryOne(query)
}

// OldestBaseline returns the oldest non-walk-forward record for the
// strategy, used as the degradation baseline.
func (s *Store) OldestBaseline(strategyName string) (optional.Option[types.EvaluationRecord], error) {
	query := s.selectResults().
		Where(squirrel.Eq{"strategy_name": strategyName, "is_walk_forward": false}).
		OrderBy("created_at ASC").
		Limit(1)

	return s.queryOne(query)
}

// ResultsForCycle returns every record written by one cycle, ordered by
// strategy name and window size.
func (s *Store) ResultsForCycle(cycleID string) ([]types.EvaluationRecord, error) {
	query := s.selectResults().
		Where(squirrel.Eq{"cycle_id": cycleID}).
		OrderBy("strategy_name ASC", "window_days ASC", "is_walk_forward ASC")

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreReadFailed, err, "failed to query results for cycle %s", cycleID)
	}
	defer rows.Close()

	var records []types.EvaluationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to iterate results", err)
	}

	return records, nil
}

// CycleIDs returns the distinct cycle IDs in the store, oldest first.
func (s *Store) CycleIDs() ([]string, error) {
	rows, err := s.sq.
		Select("cycle_id").
		From("evaluation_results").
		GroupBy("cycle_id").
		OrderBy("MIN(created_at) ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to query cycle ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to scan cycle id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to iterate cycle ids", err)
	}

	return ids, nil
}

func (s *Store) selectResults() squirrel.SelectBuilder {
	return s.sq.
		Select(resultColumns...).
		From("evaluation_results").
		RunWith(s.db)
}

func (s *Store) queryOne(query squirrel.SelectBuilder) (optional.Option[types.EvaluationRecord], error) {
	rows, err := query.Query()
	if err != nil {
		return optional.None[types.EvaluationRecord](), errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to query results", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return optional.None[types.EvaluationRecord](), errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to read results", err)
		}
		return optional.None[types.EvaluationRecord](), nil
	}

	record, err := scanRecord(rows)
	if err != nil {
		return optional.None[types.EvaluationRecord](), err
	}

	return optional.Some(record), nil
}

func scanRecord(rows *sql.Rows) (types.EvaluationRecord, error) {
	var (
		record       types.EvaluationRecord
		windowStart  time.Time
		windowEnd    time.Time
		createdAt    time.Time
		isOverfitted sql.NullBool
		efficiency   sql.NullFloat64
	)

	err := rows.Scan(
		&record.CycleID, &record.StrategyName, &record.WindowDays, &windowStart, &windowEnd,
		&record.Metrics.WinRate, &record.Metrics.ProfitFactor, &record.Metrics.SharpeRatio,
		&record.Metrics.MaxDrawdown, &record.Metrics.MaxDrawdownPct,
		&record.Metrics.Expectancy, &record.Metrics.TotalTrades, &record.Metrics.LongRatio,
		&record.IsWalkForward, &isOverfitted, &efficiency,
		&record.SpreadModel, &createdAt,
	)
	if err != nil {
		return types.EvaluationRecord{}, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to scan result row", err)
	}

	record.WindowStart = windowStart.UTC()
	record.WindowEnd = windowEnd.UTC()
	record.CreatedAt = createdAt.UTC()
	if isOverfitted.Valid {
		record.IsOverfitted = optional.Some(isOverfitted.Bool)
	}
	if efficiency.Valid {
		record.WalkForwardEfficiency = optional.Some(efficiency.Float64)
	}

	return record, nil
}

func nullableBool(v optional.Option[bool]) any {
	if v.IsNone() {
		return nil
	}
	return v.Unwrap()
}

func nullableFloat(v optional.Option[float64]) any {
	if v.IsNone() {
		return nil
	}
	return v.Unwrap()
}
