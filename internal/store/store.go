// Package store persists completed runs to SQLite so sweeps over seeds
// and parameters can be queried after the fact.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"spongesim/internal/config"
	"spongesim/internal/sim"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		rows INTEGER NOT NULL,
		cols INTEGER NOT NULL,
		horizon_days INTEGER NOT NULL,
		num_clades INTEGER NOT NULL,
		events_processed INTEGER NOT NULL,
		births INTEGER NOT NULL,
		births_refused INTEGER NOT NULL,
		births_skipped INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		digestions INTEGER NOT NULL,
		escapes INTEGER NOT NULL,
		denouements INTEGER NOT NULL,
		migrations INTEGER NOT NULL,
		migrations_skipped INTEGER NOT NULL,
		final_population INTEGER NOT NULL,
		peak_population INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS census (
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		clade TEXT NOT NULL,
		count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS symbionts (
		run_id TEXT NOT NULL,
		symbiont_id INTEGER NOT NULL,
		clade TEXT NOT NULL,
		how_arrived TEXT NOT NULL,
		parent_id INTEGER NOT NULL,
		progenitor_id INTEGER NOT NULL,
		arrival_time REAL NOT NULL,
		exit_time REAL NOT NULL,
		exit_status TEXT NOT NULL,
		residence_time REAL NOT NULL,
		mitotic_cost_rate REAL NOT NULL,
		production_rate REAL NOT NULL,
		surplus_on_arrival REAL NOT NULL,
		surplus_at_exit REAL NOT NULL,
		divisions INTEGER NOT NULL,
		cells_inhabited TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_census_run ON census(run_id, day);
	CREATE INDEX IF NOT EXISTS idx_symbionts_run ON symbionts(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun stores a completed run and returns its generated id.
func (db *DB) SaveRun(cfg *config.Config, res *sim.Result) (string, error) {
	runID := uuid.NewString()

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	st := res.Stats
	_, err = tx.Exec(`INSERT INTO runs
		(id, created_at, seed, rows, cols, horizon_days, num_clades,
		 events_processed, births, births_refused, births_skipped,
		 deaths, digestions, escapes, denouements,
		 migrations, migrations_skipped, final_population, peak_population)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), cfg.Seed,
		cfg.NumRows, cfg.NumCols, res.HorizonDays, len(res.CladeNames),
		st.EventsProcessed, st.Births, st.BirthsRefused, st.BirthsSkipped,
		st.Deaths, st.Digestions, st.Escapes, st.Denouements,
		st.Migrations, st.MigrationsSkipped, st.FinalPopulation, st.PeakPopulation,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO census (run_id, day, clade, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, rec := range res.Census {
		for i, n := range rec.PerClade {
			if _, err := stmt.Exec(runID, rec.Day, res.CladeNames[i], n); err != nil {
				return "", fmt.Errorf("insert census day %d: %w", rec.Day, err)
			}
		}
	}

	if len(res.Symbionts) > 0 {
		sstmt, err := tx.Preparex(`INSERT INTO symbionts
			(run_id, symbiont_id, clade, how_arrived, parent_id, progenitor_id,
			 arrival_time, exit_time, exit_status, residence_time,
			 mitotic_cost_rate, production_rate, surplus_on_arrival, surplus_at_exit,
			 divisions, cells_inhabited)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return "", err
		}
		defer sstmt.Close()

		for _, s := range res.Symbionts {
			_, err := sstmt.Exec(
				runID, s.ID, s.Clade, s.HowArrived, s.ParentID, s.ProgenitorID,
				s.ArrivalTime, s.ExitTime, s.ExitStatus, s.ResidenceTime,
				s.MitoticCostRate, s.ProductionBase, s.SurplusOnArrival, s.SurplusAtExit,
				s.Divisions, s.CellsInhabited,
			)
			if err != nil {
				return "", fmt.Errorf("insert symbiont %d: %w", s.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// CensusRow is one stored census entry.
type CensusRow struct {
	Day   int    `db:"day"`
	Clade string `db:"clade"`
	Count int    `db:"count"`
}

// LoadCensus returns the stored census for a run, ordered by day.
func (db *DB) LoadCensus(runID string) ([]CensusRow, error) {
	var rows []CensusRow
	err := db.conn.Select(&rows,
		"SELECT day, clade, count FROM census WHERE run_id = ? ORDER BY day, clade", runID)
	if err != nil {
		return nil, fmt.Errorf("load census: %w", err)
	}
	return rows, nil
}

// RunCount returns the number of stored runs.
func (db *DB) RunCount() (int, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM runs"); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
