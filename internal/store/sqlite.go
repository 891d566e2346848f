package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ Store = (*SQLite)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	brief      TEXT NOT NULL,
	state      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS stage_docs (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	stage      TEXT NOT NULL,
	position   INTEGER NOT NULL,
	status     TEXT NOT NULL,
	data       TEXT,
	error      TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, stage)
);
`

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: init schema: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, brief, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			brief = excluded.brief,
			state = excluded.state,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Brief, rec.State, toUnix(rec.CreatedAt), toUnix(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("store: save run %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_docs WHERE run_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("store: clear stages of %s: %w", rec.ID, err)
	}
	for i, d := range rec.Stages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stage_docs (run_id, stage, position, status, data, error, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, d.Stage, i, d.Status, nullData(d.Data), d.Error, toUnix(d.UpdatedAt))
		if err != nil {
			return fmt.Errorf("store: save stage %s/%s: %w", rec.ID, d.Stage, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	rec := &Record{ID: id}
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT brief, state, created_at, updated_at FROM runs WHERE id = ?`, id).
		Scan(&rec.Brief, &rec.State, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	rec.CreatedAt = fromUnix(created)
	rec.UpdatedAt = fromUnix(updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, status, data, error, updated_at FROM stage_docs
		WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get stages of %s: %w", id, err)
	}
	defer rows.Close()

	rec.Stages = []StageDoc{}
	for rows.Next() {
		var (
			d    StageDoc
			data sql.NullString
			at   int64
		)
		if err := rows.Scan(&d.Stage, &d.Status, &data, &d.Error, &at); err != nil {
			return nil, fmt.Errorf("store: scan stage: %w", err)
		}
		if data.Valid {
			d.Data = []byte(data.String)
		}
		d.UpdatedAt = fromUnix(at)
		rec.Stages = append(rec.Stages, d)
	}
	return rec, rows.Err()
}

func (s *SQLite) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.brief, r.state, r.created_at, r.updated_at,
			COALESCE(SUM(CASE WHEN d.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN d.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN d.status = ? THEN 1 ELSE 0 END), 0)
		FROM runs r LEFT JOIN stage_docs d ON d.run_id = r.id
		GROUP BY r.id
		ORDER BY r.rowid`,
		StatusCompleted, StatusFailed, StatusBlocked)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum              Summary
			created, updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Brief, &sum.State, &created, &updated,
			&sum.Completed, &sum.Failed, &sum.Blocked); err != nil {
			return nil, fmt.Errorf("store: scan summary: %w", err)
		}
		sum.CreatedAt = fromUnix(created)
		sum.UpdatedAt = fromUnix(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLite) PutStage(ctx context.Context, runID string, doc StageDoc, state string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET updated_at = MAX(updated_at, ?), state = COALESCE(NULLIF(?, ''), state) WHERE id = ?`,
		toUnix(doc.UpdatedAt), state, runID)
	if err != nil {
		return fmt.Errorf("store: touch run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stage_docs (run_id, stage, position, status, data, error, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM stage_docs WHERE run_id = ?), ?, ?, ?, ?)
		ON CONFLICT(run_id, stage) DO UPDATE SET
			status = excluded.status,
			data = excluded.data,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		runID, doc.Stage, runID, doc.Status, nullData(doc.Data), doc.Error, toUnix(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("store: put stage %s/%s: %w", runID, doc.Stage, err)
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullData(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
