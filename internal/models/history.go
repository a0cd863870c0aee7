package models

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DebateHistory is the append-only sequence of Arguments for one debate
// session. The orchestrator is the sole writer; any number of readers may
// take snapshots concurrently. A second concurrent writer is an invariant
// violation and panics, aborting only the owning session.
type DebateHistory struct {
	mu      sync.RWMutex
	args    []*Argument
	writing atomic.Bool
	limit   int
}

// NewDebateHistory creates a history. limit bounds retained Arguments; when
// exceeded the oldest half is trimmed (external trimming policy). limit <= 0
// means unbounded.
func NewDebateHistory(limit int) *DebateHistory {
	return &DebateHistory{limit: limit}
}

// Append adds one Argument. Single-writer: concurrent Append calls on the
// same history panic.
func (h *DebateHistory) Append(arg *Argument) {
	if !h.writing.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("debate history: concurrent append for speaker %q", arg.Speaker))
	}
	defer h.writing.Store(false)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.args = append(h.args, arg)
	if h.limit > 0 && len(h.args) > h.limit {
		removed := len(h.args) / 2
		h.args = append([]*Argument(nil), h.args[removed:]...)
	}
}

// Snapshot returns a copy of the current sequence. Readers never observe a
// partial append.
func (h *DebateHistory) Snapshot() []*Argument {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Argument, len(h.args))
	copy(out, h.args)
	return out
}

// Len returns the number of retained Arguments.
func (h *DebateHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.args)
}

// Last returns the most recent Argument, or false when the history is empty.
func (h *DebateHistory) Last() (*Argument, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.args) == 0 {
		return nil, false
	}
	return h.args[len(h.args)-1], true
}
