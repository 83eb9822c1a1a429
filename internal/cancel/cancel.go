// Package cancel provides cooperative cancellation tokens for long-running
// pipelines (process_nodes, run_clustering, build_full_hierarchy,
// analyze_privacy). Flags are checked between items, batches, and
// iterations; a set flag yields a typed Cancelled result with no rollback —
// partial work already persisted stays in place and is idempotent on retry.
package cancel

import "sync/atomic"

// Token is an explicit, passable cancellation flag — the design notes (§9)
// call for these in place of ambient process-wide globals.
type Token struct {
	flag atomic.Bool
}

// New returns a fresh, un-cancelled token.
func New() *Token {
	return &Token{}
}

// Cancel marks the token as cancelled. Safe to call multiple times.
func (t *Token) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.flag.Load()
}

// Reset clears the flag so the token can be reused for a subsequent run.
func (t *Token) Reset() {
	t.flag.Store(false)
}

// CancelledError is returned by pipeline entry points when a Token was
// cancelled mid-run.
type CancelledError struct {
	Op string
}

func (e *CancelledError) Error() string {
	if e.Op == "" {
		return "cancelled"
	}
	return e.Op + ": cancelled"
}
