// Package persistence provides SQLite-based telemetry storage.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/antifreeze/internal/engine"
)

// DB wraps a SQLite connection for run telemetry.
type DB struct {
	conn *sqlx.DB
}

// Run describes one simulation run.
type Run struct {
	ID         string    `json:"id" db:"id"`
	Seed       int64     `json:"seed" db:"seed"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	ConfigPath string    `json:"config_path" db:"config_path"`
	Config     string    `json:"config" db:"config"` // Tunables document at start, JSON
	Infected   int       `json:"infected" db:"infected"`
	Survivors  int       `json:"survivors" db:"survivors"`
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
		seed INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		config_path TEXT NOT NULL,
		config TEXT NOT NULL,
		infected INTEGER NOT NULL,
		survivors INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS telemetry (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		frame INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		alive INTEGER NOT NULL,
		active INTEGER NOT NULL,
		grace INTEGER NOT NULL,
		frozen INTEGER NOT NULL,
		opted_out INTEGER NOT NULL,
		tokens_held INTEGER NOT NULL,
		forward INTEGER NOT NULL,
		capped INTEGER NOT NULL,
		suppressed INTEGER NOT NULL,
		native_calls INTEGER NOT NULL,
		native_seconds REAL NOT NULL,
		frame_ms REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		frame INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_telemetry_run_frame ON telemetry(run_id, frame);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun records the start of a run.
func (db *DB) SaveRun(r Run) error {
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO runs
		(id, seed, started_at, config_path, config, infected, survivors)
		VALUES (:id, :seed, :started_at, :config_path, :config, :infected, :survivors)`, r)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

// Runs returns recorded runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT id, seed, started_at, config_path, config, infected, survivors FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// SaveBatch writes a flushed telemetry batch in one transaction.
func (db *DB) SaveBatch(b engine.Batch) error {
	if b.Empty() {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertSamples(tx, b.RunID, b.Samples); err != nil {
		return err
	}
	if err := insertEvents(tx, b.RunID, b.Events); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSamples(tx *sqlx.Tx, runID string, samples []engine.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	stmt, err := tx.Preparex(`INSERT INTO telemetry
		(run_id, frame, sim_time, alive, active, grace, frozen, opted_out, tokens_held,
		 forward, capped, suppressed, native_calls, native_seconds, frame_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		_, err := stmt.Exec(
			runID, int64(s.Frame), s.SimTime, s.Alive,
			s.Active, s.Grace, s.Frozen, s.OptedOut, s.TokensHeld,
			int64(s.Forward), int64(s.Capped), int64(s.Suppressed),
			int64(s.NativeCalls), s.NativeSeconds, s.FrameMillis,
		)
		if err != nil {
			return fmt.Errorf("insert sample at frame %d: %w", s.Frame, err)
		}
	}
	return nil
}

func insertEvents(tx *sqlx.Tx, runID string, events []engine.Event) error {
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, frame, description, category) VALUES (?, ?, ?, ?)",
			runID, int64(e.Frame), e.Description, e.Category,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

// LoadTelemetryHistory returns samples of one run with from <= frame <= to,
// oldest first, at most limit rows.
func (db *DB) LoadTelemetryHistory(runID string, from, to uint64, limit int) ([]engine.Sample, error) {
	var rows []engine.Sample
	err := db.conn.Select(&rows, `SELECT frame, sim_time, alive, active, grace, frozen, opted_out,
			tokens_held, forward, capped, suppressed, native_calls, native_seconds, frame_ms
		FROM telemetry
		WHERE run_id = ? AND frame >= ? AND frame <= ?
		ORDER BY frame ASC LIMIT ?`,
		runID, int64(from), int64(to), limit,
	)
	return rows, err
}

// RecentEvents returns the most recent N events of a run.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT frame, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// Consume writes batches from the simulation sink until ctx is done or the
// channel closes. Runs on its own goroutine so the frame loop never waits on disk.
func (db *DB) Consume(ctx context.Context, batches <-chan engine.Batch) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-batches:
			if !ok {
				return
			}
			if err := db.SaveBatch(b); err != nil {
				slog.Error("save telemetry batch failed", "run_id", b.RunID, "samples", len(b.Samples), "error", err)
				continue
			}
			if len(b.Samples) > 0 {
				last := b.Samples[len(b.Samples)-1].Frame
				if err := db.SaveMeta("last_frame:"+b.RunID, fmt.Sprintf("%d", last)); err != nil {
					slog.Warn("save meta failed", "error", err)
				}
			}
			slog.Debug("telemetry batch saved", "run_id", b.RunID, "samples", len(b.Samples), "events", len(b.Events))
		}
	}
}
