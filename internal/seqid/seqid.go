// Package seqid issues daily-scoped sequential case identifiers of the form
// NNNN_ddMMyy: a four-digit counter that resets at the local-day boundary,
// unique across every concurrent caller sharing the same state directory.
//
// The counter lives in a small JSON state file guarded by an exclusive lock
// file. Lock acquisition is create-with-O_EXCL, retried with exponential
// backoff; a lock left behind by a crashed holder is reclaimed once it is
// older than the staleness threshold. When the retry budget runs out the
// caller gets a LockTimeoutError, never a reused ID.
package seqid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

const (
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = time.Second
	maxAttempts    = 10
	staleAfter     = 30 * time.Second

	dateLayout = "020106" // ddMMyy
)

// LockTimeoutError reports an exhausted retry budget while acquiring the
// counter lock. The case-creation attempt it belongs to must fail.
type LockTimeoutError struct {
	Path     string
	Attempts int
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("seqid: lock on %s not acquired after %d attempts", e.Path, e.Attempts)
}

// Options configures a Generator.
type Options struct {
	// Dir is the directory holding the counter state and lock files.
	Dir string
	// Logger defaults to a no-op logger.
	Logger log.Logger
	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

// Generator issues sequential IDs. Safe for concurrent use in-process and
// across processes sharing Dir.
type Generator struct {
	statePath string
	lockPath  string
	now       func() time.Time
	logger    log.Logger
}

// New builds a Generator over the given state directory, creating it if
// needed.
func New(opts Options) (*Generator, error) {
	if opts.Dir == "" {
		return nil, errors.New("seqid: state dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("seqid: create state dir: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{
		statePath: filepath.Join(opts.Dir, "case_counter.json"),
		lockPath:  filepath.Join(opts.Dir, "case_counter.lock"),
		now:       opts.Now,
		logger:    opts.Logger,
	}, nil
}

type counterState struct {
	Date    string `json:"date"`
	Counter int    `json:"counter"`
}

// Next issues the next identifier. Under contention it retries with
// exponential backoff and fails with a LockTimeoutError once the budget is
// spent.
func (g *Generator) Next(ctx context.Context) (string, error) {
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		acquired, err := g.acquire(ctx)
		if err != nil {
			return "", err
		}
		if acquired {
			id, err := g.advance()
			g.release(ctx)
			return id, err
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return "", &LockTimeoutError{Path: g.lockPath, Attempts: maxAttempts}
}

// acquire tries to create the lock file exclusively. A false return means
// the lock is held elsewhere; stale locks are reclaimed in passing so a
// crashed holder cannot wedge the generator.
func (g *Generator) acquire(ctx context.Context) (bool, error) {
	f, err := os.OpenFile(g.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		fmt.Fprintf(f, "%d %s\n", os.Getpid(), g.now().Format(time.RFC3339Nano))
		return true, f.Close()
	}
	if !errors.Is(err, fs.ErrExist) {
		return false, fmt.Errorf("seqid: create lock: %w", err)
	}

	info, serr := os.Stat(g.lockPath)
	if serr == nil && g.now().Sub(info.ModTime()) > staleAfter {
		g.logger.Warn(ctx, "reclaiming stale id lock",
			"path", g.lockPath, "age", g.now().Sub(info.ModTime()).String())
		// Remove and let the next attempt race for the fresh lock.
		_ = os.Remove(g.lockPath)
	}
	return false, nil
}

func (g *Generator) release(ctx context.Context) {
	if err := os.Remove(g.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		g.logger.Error(ctx, err, "release id lock")
	}
}

// advance reads the state, resets the counter on a day change, increments,
// and persists atomically via a temp file rename.
func (g *Generator) advance() (string, error) {
	today := g.now().Format(dateLayout)

	var st counterState
	if raw, err := os.ReadFile(g.statePath); err == nil {
		// A corrupt state file falls through to a fresh counter for today.
		_ = json.Unmarshal(raw, &st)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("seqid: read state: %w", err)
	}

	if st.Date != today {
		st = counterState{Date: today}
	}
	st.Counter++
	if st.Counter > 9999 {
		return "", fmt.Errorf("seqid: daily counter exhausted for %s", today)
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("seqid: marshal state: %w", err)
	}
	tmp := g.statePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("seqid: write state: %w", err)
	}
	if err := os.Rename(tmp, g.statePath); err != nil {
		return "", fmt.Errorf("seqid: commit state: %w", err)
	}

	return fmt.Sprintf("%04d_%s", st.Counter, st.Date), nil
}
