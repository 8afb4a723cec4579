package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ferrolint/internal/rules"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db *sql.DB
}

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT,
			tool_version TEXT,
			files INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS findings (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER,
			rule_id TEXT,
			code TEXT,
			path TEXT,
			span_start INTEGER,
			span_end INTEGER,
			start_line INTEGER,
			start_column INTEGER,
			end_line INTEGER,
			end_column INTEGER,
			severity TEXT,
			message TEXT,
			fixable INTEGER,
			fingerprint TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			path TEXT,
			message TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_findings_fingerprint ON findings(fingerprint);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Saving a run twice replaces its previous contents.
	for _, q := range []string{
		`DELETE FROM findings WHERE run_id = ?`,
		`DELETE FROM run_errors WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, run.ID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, tool_version, files) VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.ToolVersion, run.Files,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (run_id, seq, rule_id, code, path, span_start, span_end,
			start_line, start_column, end_line, end_column, severity, message, fixable, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range run.Findings {
		if _, err := stmt.ExecContext(ctx, run.ID, i, f.RuleID, f.Code, f.Path, f.Span.Start, f.Span.End,
			f.Start.Line, f.Start.Column, f.End.Line, f.End.Column, string(f.Severity), f.Message, f.Fixable, f.Fingerprint,
		); err != nil {
			return fmt.Errorf("failed to save finding %d: %w", i, err)
		}
	}

	for _, e := range run.Errors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_errors (run_id, path, message) VALUES (?, ?, ?)`,
			run.ID, e.Path, e.Message,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, started_at, tool_version, files FROM runs WHERE id = ?", id)

	run := &Run{}
	var started string
	if err := row.Scan(&run.ID, &started, &run.ToolVersion, &run.Files); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	run.StartedAt, _ = time.Parse(timeLayout, started)

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, code, path, span_start, span_end, start_line, start_column,
			end_line, end_column, severity, message, fixable, fingerprint
		FROM findings WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f rules.Finding
		var severity string
		if err := rows.Scan(&f.RuleID, &f.Code, &f.Path, &f.Span.Start, &f.Span.End, &f.Start.Line, &f.Start.Column,
			&f.End.Line, &f.End.Column, &severity, &f.Message, &f.Fixable, &f.Fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Severity = rules.Severity(severity)
		run.Findings = append(run.Findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	errRows, err := s.db.QueryContext(ctx, "SELECT path, message FROM run_errors WHERE run_id = ? ORDER BY rowid", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run errors: %w", err)
	}
	defer errRows.Close()

	for errRows.Next() {
		var e RunError
		if err := errRows.Scan(&e.Path, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan run error: %w", err)
		}
		run.Errors = append(run.Errors, e)
	}
	return run, errRows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.tool_version, r.files,
			(SELECT COUNT(*) FROM findings f WHERE f.run_id = r.id),
			(SELECT COUNT(*) FROM run_errors e WHERE e.run_id = r.id)
		FROM runs r ORDER BY r.started_at DESC, r.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var sum RunSummary
		var started string
		if err := rows.Scan(&sum.ID, &started, &sum.ToolVersion, &sum.Files, &sum.Findings, &sum.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.StartedAt, _ = time.Parse(timeLayout, started)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Fingerprints(ctx context.Context, id string) (map[string]bool, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT fingerprint FROM findings WHERE run_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		out[fp] = true
	}
	return out, rows.Err()
}

// NewFindings drops the findings whose fingerprint appears in baseline.
func NewFindings(findings []rules.Finding, baseline map[string]bool) []rules.Finding {
	out := make([]rules.Finding, 0, len(findings))
	for _, f := range findings {
		if !baseline[f.Fingerprint] {
			out = append(out, f)
		}
	}
	return out
}
