package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups that match no recorded run.
var ErrNotFound = errors.New("store: run not found")

// Run is one recorded evaluation.
type Run struct {
	ID           string          `json:"id"`
	Command      string          `json:"command"`
	ParamsDigest string          `json:"params_digest"`
	Result       json.RawMessage `json:"result"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RecordRun inserts a run row. Uses ON CONFLICT(id) DO NOTHING for
// idempotency - replaying a write with the same token is silently ignored.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" || r.Command == "" || r.ParamsDigest == "" {
		return fmt.Errorf("record run: id, command and digest are required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, command, params_digest, result, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.Command,
		r.ParamsDigest,
		string(r.Result),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LookupByDigest returns the most recent run for (command, digest), the key
// the memoization path asks with. Returns ErrNotFound when the evaluation
// has never been recorded.
func (s *Store) LookupByDigest(ctx context.Context, command, digest string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, command, params_digest, result, created_at
		FROM runs
		WHERE command = ? AND params_digest = ?
		ORDER BY created_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, command, digest)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: command %q", ErrNotFound, command)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}
	return r, nil
}

// RunFilter narrows ListRuns. Zero values mean "no constraint".
type RunFilter struct {
	Command string
	Since   time.Time
	Limit   int
}

// ListRuns returns runs newest first. All predicates are parameterized and
// the ordering carries an explicit tiebreaker so results are deterministic.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	query, args := buildListQuery(f)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// buildListQuery compiles a RunFilter to parameterized SQL. Values are never
// interpolated into the query text.
func buildListQuery(f RunFilter) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT id, command, params_digest, result, created_at FROM runs")

	var preds []string
	if f.Command != "" {
		preds = append(preds, "command = ?")
		args = append(args, f.Command)
	}
	if !f.Since.IsZero() {
		preds = append(preds, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	if len(preds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(preds, " AND "))
	}

	sb.WriteString(" ORDER BY created_at DESC, id COLLATE BINARY DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	return sb.String(), args
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var result, created string
	if err := sc.Scan(&r.ID, &r.Command, &r.ParamsDigest, &result, &created); err != nil {
		return nil, err
	}
	r.Result = json.RawMessage(result)

	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	r.CreatedAt = ts
	return &r, nil
}
