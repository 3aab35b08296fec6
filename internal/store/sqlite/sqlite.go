package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"
	_ "modernc.org/sqlite"

	"kardashev/internal/model"
	"kardashev/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.NotValidf("empty sqlite path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s", path)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, errors.Annotate(err, "migrating archive")
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveRun(ctx context.Context, run store.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, ranking_period) VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			started_at = excluded.started_at,
			ranking_period = excluded.ranking_period
	`, run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.RankingPeriod)
	return errors.Trace(err)
}

func (s *Store) UpsertObservations(ctx context.Context, runID, accessor string, observations []model.Observation) error {
	if len(observations) == 0 {
		return nil
	}
	return s.inTx(ctx, `
		INSERT INTO observations (
			run_id, accessor, indicator_id, indicator_label, country_code,
			country_label, period, value, unit, obs_status, decimals
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, accessor, country_code, period)
		DO UPDATE SET
			indicator_id = excluded.indicator_id,
			indicator_label = excluded.indicator_label,
			country_label = excluded.country_label,
			value = excluded.value,
			unit = excluded.unit,
			obs_status = excluded.obs_status,
			decimals = excluded.decimals
	`, len(observations), func(i int) []any {
		o := observations[i]
		return []any{
			runID, accessor, o.IndicatorID, o.IndicatorLabel, o.CountryCode,
			o.CountryLabel, o.Period, nullable(o.Value), o.Unit, o.ObsStatus, o.Decimal,
		}
	})
}

func (s *Store) UpsertEnergyRecords(ctx context.Context, runID, accessor string, records []model.EnergyRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, `
		INSERT INTO energy_records (
			run_id, accessor, series_id, series_name, region_id, region_name,
			scenario, period, unit, value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, accessor, series_id, region_id, scenario, period)
		DO UPDATE SET
			series_name = excluded.series_name,
			region_name = excluded.region_name,
			unit = excluded.unit,
			value = excluded.value
	`, len(records), func(i int) []any {
		r := records[i]
		return []any{
			runID, accessor, r.SeriesID, r.SeriesName, r.RegionID, r.RegionName,
			r.Scenario, r.Period, r.Unit, nullable(r.Value),
		}
	})
}

// inTx executes statement once per row inside a single transaction.
func (s *Store) inTx(ctx context.Context, statement string, rows int, args func(int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}

	stmt, err := tx.PrepareContext(ctx, statement)
	if err != nil {
		_ = tx.Rollback()
		return errors.Trace(err)
	}
	defer stmt.Close()

	for i := 0; i < rows; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			_ = tx.Rollback()
			return errors.Annotatef(err, "row %d", i)
		}
	}

	return errors.Trace(tx.Commit())
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ranking_period TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS observations (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			accessor TEXT NOT NULL,
			indicator_id TEXT NOT NULL,
			indicator_label TEXT NOT NULL,
			country_code TEXT NOT NULL,
			country_label TEXT NOT NULL,
			period TEXT NOT NULL,
			value REAL,
			unit TEXT NOT NULL,
			obs_status TEXT NOT NULL,
			decimals INTEGER NOT NULL,
			PRIMARY KEY (run_id, accessor, country_code, period)
		);`,
		`CREATE TABLE IF NOT EXISTS energy_records (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			accessor TEXT NOT NULL,
			series_id TEXT NOT NULL,
			series_name TEXT NOT NULL,
			region_id TEXT NOT NULL,
			region_name TEXT NOT NULL,
			scenario TEXT NOT NULL,
			period TEXT NOT NULL,
			unit TEXT NOT NULL,
			value REAL,
			PRIMARY KEY (run_id, accessor, series_id, region_id, scenario, period)
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return errors.Trace(err)
		}
	}

	return nil
}
