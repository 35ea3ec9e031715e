package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/orbitkit/internal/store"
)

// parseFloats parses a comma-separated float list from a flag value.
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty value list")
	}
	return out, nil
}

// ledger wraps the optional run-ledger recording every evaluation command
// supports. A zero Database disables it.
type ledger struct {
	Database string

	// Tokens allows overriding the run token generator (for testing).
	// Nil defaults to UUIDv7Generator.
	Tokens store.TokenGenerator

	// Now allows overriding the timestamp source (for testing).
	Now func() time.Time
}

func (l *ledger) enabled() bool { return l.Database != "" }

func (l *ledger) generator() store.TokenGenerator {
	if l.Tokens != nil {
		return l.Tokens
	}
	return store.UUIDv7Generator{}
}

func (l *ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// record writes one run row and returns the run token. No-op (empty token)
// when the ledger is disabled.
func (l *ledger) record(ctx context.Context, command string, params, result any) (string, error) {
	if !l.enabled() {
		return "", nil
	}

	digest, err := store.ParamsDigest(command, params)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	st, err := store.Open(l.Database)
	if err != nil {
		return "", err
	}
	defer st.Close()

	id := l.generator().Generate()
	run := store.Run{
		ID:           id,
		Command:      command,
		ParamsDigest: digest,
		Result:       payload,
		CreatedAt:    l.now(),
	}
	if err := st.RecordRun(ctx, run); err != nil {
		return "", err
	}
	slog.Debug("run recorded", "command", command, "run_id", id)
	return id, nil
}

// lookup returns the stored result for identical parameters, or false when
// nothing is recorded. Used by the memoizing commands before computing.
func (l *ledger) lookup(ctx context.Context, command string, params, result any) (string, bool, error) {
	if !l.enabled() {
		return "", false, nil
	}

	digest, err := store.ParamsDigest(command, params)
	if err != nil {
		return "", false, err
	}

	st, err := store.Open(l.Database)
	if err != nil {
		return "", false, err
	}
	defer st.Close()

	run, err := st.LookupByDigest(ctx, command, digest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if err := json.Unmarshal(run.Result, result); err != nil {
		return "", false, fmt.Errorf("decode recorded result: %w", err)
	}
	slog.Debug("run reused", "command", command, "run_id", run.ID)
	return run.ID, true, nil
}
