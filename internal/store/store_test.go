package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.RecordRun(context.Background(), testRun("r1", "solve", "d1")))
	require.NoError(t, s1.Close())

	// Reopening applies the schema again without clobbering rows.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func testRun(id, command, digest string) Run {
	return Run{
		ID:           id,
		Command:      command,
		ParamsDigest: digest,
		Result:       json.RawMessage(`{"value":1.5}`),
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordRun_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := testRun("run-1", "loglike", "abc")
	require.NoError(t, s.RecordRun(ctx, r))

	// Same token again: silently ignored, still one row.
	r.Result = json.RawMessage(`{"value":999}`)
	require.NoError(t, s.RecordRun(ctx, r))

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.JSONEq(t, `{"value":1.5}`, string(runs[0].Result))
}

func TestRecordRun_RequiredFields(t *testing.T) {
	s := openTestStore(t)
	err := s.RecordRun(context.Background(), Run{ID: "x"})
	assert.Error(t, err)
}

func TestLookupByDigest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := testRun("run-1", "loglike", "abc")
	newer := testRun("run-2", "loglike", "abc")
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	newer.Result = json.RawMessage(`{"value":2.5}`)
	require.NoError(t, s.RecordRun(ctx, older))
	require.NoError(t, s.RecordRun(ctx, newer))

	got, err := s.LookupByDigest(ctx, "loglike", "abc")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.ID, "most recent run wins")
	assert.JSONEq(t, `{"value":2.5}`, string(got.Result))
	assert.Equal(t, newer.CreatedAt, got.CreatedAt)

	_, err = s.LookupByDigest(ctx, "loglike", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LookupByDigest(ctx, "solve", "abc")
	assert.ErrorIs(t, err, ErrNotFound, "digest is scoped by command")
}

func TestListRuns_Filtering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, cmd := range []string{"solve", "loglike", "solve", "contacts"} {
		r := testRun(string(rune('a'+i)), cmd, "d")
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.RecordRun(ctx, r))
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID, "newest first")

	solves, err := s.ListRuns(ctx, RunFilter{Command: "solve"})
	require.NoError(t, err)
	require.Len(t, solves, 2)

	since, err := s.ListRuns(ctx, RunFilter{Since: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "d", limited[0].ID)
}

func TestParamsDigest_Deterministic(t *testing.T) {
	type params struct {
		Ecc float64   `json:"ecc"`
		M   []float64 `json:"m"`
	}

	d1, err := ParamsDigest("solve", params{Ecc: 0.3, M: []float64{1, 2}})
	require.NoError(t, err)
	d2, err := ParamsDigest("solve", params{Ecc: 0.3, M: []float64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	d3, err := ParamsDigest("solve", params{Ecc: 0.31, M: []float64{1, 2}})
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	// Command participates in the digest domain.
	d4, err := ParamsDigest("position", params{Ecc: 0.3, M: []float64{1, 2}})
	require.NoError(t, err)
	assert.NotEqual(t, d1, d4)
}

func TestTokenGenerators(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 tokens sort by creation time")

	fixed := NewFixedGenerator("t1", "t2")
	assert.Equal(t, "t1", fixed.Generate())
	assert.Equal(t, "t2", fixed.Generate())
	assert.Panics(t, func() { fixed.Generate() })
}
