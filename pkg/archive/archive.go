// Package archive persists evaluation outcomes and terminal run records to a
// SQLite database so results survive the process and can be compared across
// runs.
package archive

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
	"github.com/xavierhillroy/libjxl-wop8/pkg/ga"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
)

// Store is a SQLite-backed archive with two tables: one row per distinct
// evaluated vector, one row per completed run.
type Store struct {
	db       *sql.DB
	recorded atomic.Int64
}

// Open opens (and if necessary creates) the archive database at path. An
// empty path selects "wop8_archive.db" in the working directory.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "wop8_archive.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "open archive database"),
			errors.Fields{"path": path},
		)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{db: db}
	if err := store.initDB(); err != nil {
		db.Close()
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "initialize archive schema"),
			errors.Fields{"path": path},
		)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StorageFailed, "enable WAL mode")
	}

	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			// Log warning but don't fail
			logging.GetLogger().Warn(context.Background(), "failed to set pragma %s: %v", pragma, err)
		}
	}

	logging.GetLogger().Info(context.Background(), "Archive opened: path=%s", path)
	return store, nil
}

func (s *Store) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS evaluations (
		weights TEXT PRIMARY KEY,
		total_bytes INTEGER NOT NULL,
		mean_abs_err REAL NOT NULL,
		fitness REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		best_weights TEXT NOT NULL,
		best_fitness REAL NOT NULL,
		total_bytes INTEGER NOT NULL,
		oracle_calls INTEGER NOT NULL,
		generations INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
	`

	_, err := s.db.Exec(query)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Recorded returns the number of evaluation rows written through Recorder
// decorators of this store.
func (s *Store) Recorded() int64 {
	return s.recorded.Load()
}

// recordEvaluation upserts the row for one vector. Re-evaluating a vector in
// a later run refreshes its row.
func (s *Store) recordEvaluation(ctx context.Context, weights core.Vector, eval core.Evaluation) error {
	query := `
	INSERT OR REPLACE INTO evaluations (weights, total_bytes, mean_abs_err, fitness, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		weights.Key(), eval.TotalBytes, eval.MeanAbsErr, eval.Fitness(), time.Now().UnixNano())
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "record evaluation"),
			errors.Fields{"weights": weights.Key()},
		)
	}
	s.recorded.Add(1)
	return nil
}

// Evaluation looks up the archived evaluation of one vector.
func (s *Store) Evaluation(ctx context.Context, weights core.Vector) (core.Evaluation, bool, error) {
	query := `SELECT total_bytes, mean_abs_err FROM evaluations WHERE weights = ?`

	var eval core.Evaluation
	err := s.db.QueryRowContext(ctx, query, weights.Key()).Scan(&eval.TotalBytes, &eval.MeanAbsErr)
	if err == sql.ErrNoRows {
		return core.Evaluation{}, false, nil
	}
	if err != nil {
		return core.Evaluation{}, false, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "read archived evaluation"),
			errors.Fields{"weights": weights.Key()},
		)
	}
	return eval, true, nil
}

// EvaluationCount returns the number of distinct vectors in the archive.
func (s *Store) EvaluationCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations`).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.StorageFailed, "count archived evaluations")
	}
	return count, nil
}

// RunRecord is one archived run.
type RunRecord struct {
	ID          string
	Name        string
	BestWeights core.Vector
	BestFitness float64
	TotalBytes  int64
	OracleCalls int64
	Generations int
	Started     time.Time
	Finished    time.Time
}

// SaveRun persists the terminal record of a run under the given name. Saving
// the same run twice replaces the earlier row.
func (s *Store) SaveRun(ctx context.Context, name string, result *ga.Result) error {
	query := `
	INSERT OR REPLACE INTO runs (id, name, best_weights, best_fitness, total_bytes, oracle_calls, generations, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		result.RunID,
		name,
		result.BestWeights.Key(),
		result.BestFitness,
		result.TotalBytes(),
		result.OracleCalls,
		len(result.History),
		result.Started.UnixNano(),
		result.Finished.UnixNano())
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "save run record"),
			errors.Fields{"run_id": result.RunID},
		)
	}
	return nil
}

// Runs lists the archived runs, most recently finished first.
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	query := `
	SELECT id, name, best_weights, best_fitness, total_bytes, oracle_calls, generations, started_at, finished_at
	FROM runs ORDER BY finished_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "list archived runs")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var record RunRecord
		var weights string
		var started, finished int64
		if err := rows.Scan(&record.ID, &record.Name, &weights, &record.BestFitness,
			&record.TotalBytes, &record.OracleCalls, &record.Generations, &started, &finished); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "scan run record")
		}
		record.BestWeights, err = core.ParseVector(weights)
		if err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.StorageFailed, "parse archived weights"),
				errors.Fields{"run_id": record.ID},
			)
		}
		record.Started = time.Unix(0, started)
		record.Finished = time.Unix(0, finished)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "list archived runs")
	}
	return records, nil
}
