// Package store keeps a SQLite history of extraction runs: the sections,
// normalized table records and evaluated candidate records of every paper.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/evaluate"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/tables"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/verify"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at dbPath and migrates it.
func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under the batch worker pool.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the connection.
func (db *DB) Close() error { return db.conn.Close() }

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Run is everything persisted for one paper.
type Run struct {
	ID           string
	Paper        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Sections     sections.Map
	TableRecords []tables.Record
	// Evaluations are keyed by record kind.
	Evaluations map[string][]evaluate.Evaluated
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID          string
	Paper       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Sections    int
	Records     int
	Evaluations int
}

// SaveRun stores a run and all its rows in one transaction.
func (db *DB) SaveRun(ctx context.Context, r Run) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, paper, started_at, finished_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Paper, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, name := range r.Sections.Names() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO sections (run_id, name, text) VALUES (?, ?, ?)`,
			r.ID, string(name), r.Sections[name],
		); err != nil {
			return fmt.Errorf("insert section %s: %w", name, err)
		}
	}
	for i, rec := range r.TableRecords {
		var values []byte
		if values, err = json.Marshal(rec); err != nil {
			return fmt.Errorf("encode table record %d: %w", i, err)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO table_records (run_id, ord, key, secondary_key, values_json) VALUES (?, ?, ?, ?, ?)`,
			r.ID, i, nullable(rec.Key), nullable(rec.SecondaryKey), string(values),
		); err != nil {
			return fmt.Errorf("insert table record %d: %w", i, err)
		}
	}
	for kind, evs := range r.Evaluations {
		for i, e := range evs {
			if err = insertEvaluation(ctx, tx, r.ID, kind, i, e); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func insertEvaluation(ctx context.Context, tx *sql.Tx, runID, kind string, ord int, e evaluate.Evaluated) error {
	rec, err := json.Marshal(e.Record)
	if err != nil {
		return fmt.Errorf("encode %s record %d: %w", kind, ord, err)
	}
	issues, err := json.Marshal(e.CrossAgentIssues)
	if err != nil {
		return fmt.Errorf("encode %s issues %d: %w", kind, ord, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO evaluations
		(run_id, kind, ord, record_json, confidence, verified_ratio, final_confidence, issues_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, kind, ord, string(rec), string(e.Validation.Confidence), e.Validation.VerifiedRatio,
		string(e.FinalConfidence), string(issues),
	)
	if err != nil {
		return fmt.Errorf("insert %s evaluation %d: %w", kind, ord, err)
	}
	return nil
}

// ListRuns returns stored runs, newest first. A non-positive limit returns
// all of them.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	q := `SELECT r.id, r.paper, r.started_at, r.finished_at,
		(SELECT COUNT(*) FROM sections s WHERE s.run_id = r.id),
		(SELECT COUNT(*) FROM table_records t WHERE t.run_id = r.id),
		(SELECT COUNT(*) FROM evaluations e WHERE e.run_id = r.id)
		FROM runs r ORDER BY r.started_at DESC, r.rowid DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, finished string
		if err := rows.Scan(&s.ID, &s.Paper, &started, &finished, &s.Sections, &s.Records, &s.Evaluations); err != nil {
			return nil, err
		}
		s.StartedAt, _ = time.Parse(time.RFC3339, started)
		s.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ConfidenceCounts tallies final confidence over all stored evaluations of
// the given kind, or of every kind when kind is empty.
func (db *DB) ConfidenceCounts(ctx context.Context, kind string) (map[verify.Confidence]int, error) {
	q := `SELECT final_confidence, COUNT(*) FROM evaluations`
	args := []any{}
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` GROUP BY final_confidence`
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[verify.Confidence]int{}
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		out[verify.Confidence(c)] = n
	}
	return out, rows.Err()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
