// Package datasource loads hourly price bars from CSV or Parquet files
// through DuckDB, which handles type inference and timestamp parsing for
// both formats.
package datasource

import (
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-evaluation/internal/logger"
	"github.com/rxtech-lab/argo-evaluation/internal/types"
	"github.com/rxtech-lab/argo-evaluation/pkg/errors"
)

// DataSource reads ordered bar series for backtesting.
type DataSource interface {
	// Initialize points the source at a CSV or Parquet price file.
	Initialize(path string) error

	// ReadAll returns every bar in the optional time range, ordered by
	// time ascending.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error)

	// Count returns the number of bars in the optional time range.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)

	// TimeRange returns the first and last bar timestamps.
	TimeRange() (time.Time, time.Time, error)

	// Close releases the underlying database handle.
	Close() error
}

// DuckDBDataSource exposes a price file as a DuckDB view and queries
// bars out of it.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource creates a DuckDB-backed data source. The database lives
// in memory; price files are attached later via Initialize.
func NewDataSource(log *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open database", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource. The file format is picked by
// extension: .parquet goes through read_parquet, everything else
// through read_csv_auto.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS bars;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	reader := "read_csv_auto"
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		reader = "read_parquet"
	}

	// Raw SQL: squirrel has no CREATE VIEW support. The path is quoted
	// rather than bound because DuckDB table functions do not accept
	// placeholder arguments in a view definition.
	query := `CREATE VIEW bars AS SELECT time, open, high, low, close, volume FROM ` +
		reader + `('` + strings.ReplaceAll(path, "'", "''") + `') ORDER BY time ASC;`

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load price file %s", path)
	}

	return nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error) {
	query := d.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("bars").
		OrderBy("time ASC").
		RunWith(d.db)
	query = applyRange(query, start, end)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.Bar
	for rows.Next() {
		var (
			bar types.Bar
			ts  time.Time
		)
		if err := rows.Scan(&ts, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to scan bar", err)
		}
		bar.Time = ts.UTC()
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to iterate bars", err)
	}

	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeDataNotFound, "no bars in requested range")
	}

	return bars, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query := d.sq.
		Select("COUNT(*)").
		From("bars").
		RunWith(d.db)
	query = applyRange(query, start, end)

	var count int
	if err := query.QueryRow().Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to count bars", err)
	}

	return count, nil
}

// TimeRange implements DataSource.
func (d *DuckDBDataSource) TimeRange() (time.Time, time.Time, error) {
	var first, last sql.NullTime

	err := d.sq.
		Select("MIN(time)", "MAX(time)").
		From("bars").
		RunWith(d.db).
		QueryRow().
		Scan(&first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to query time range", err)
	}

	if !first.Valid || !last.Valid {
		return time.Time{}, time.Time{}, errors.New(errors.ErrCodeDataNotFound, "data source is empty")
	}

	return first.Time.UTC(), last.Time.UTC(), nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

func applyRange(query squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}
	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}
	return query
}
