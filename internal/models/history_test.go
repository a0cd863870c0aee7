package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebateHistory_AppendAndSnapshot(t *testing.T) {
	h := NewDebateHistory(0)

	h.Append(&Argument{Speaker: "alpha", Round: 1, Text: "first"})
	h.Append(&Argument{Speaker: "beta", Round: 1, Text: "second"})

	snap := h.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, "first", snap[0].Text)
	assert.Equal(t, "second", snap[1].Text)
}

func TestDebateHistory_SnapshotIsCopy(t *testing.T) {
	h := NewDebateHistory(0)
	h.Append(&Argument{Speaker: "alpha", Text: "original"})

	snap := h.Snapshot()
	snap[0] = &Argument{Speaker: "intruder", Text: "mutated"}

	again := h.Snapshot()
	assert.Equal(t, "original", again[0].Text)
}

func TestDebateHistory_TrimKeepsRecentHalf(t *testing.T) {
	h := NewDebateHistory(4)
	for i := 0; i < 5; i++ {
		h.Append(&Argument{Round: i + 1})
	}

	snap := h.Snapshot()
	// Fifth append exceeded the limit, dropping the oldest half.
	assert.Len(t, snap, 3)
	assert.Equal(t, 3, snap[0].Round)
	assert.Equal(t, 5, snap[2].Round)
}

func TestDebateHistory_Last(t *testing.T) {
	h := NewDebateHistory(0)

	_, ok := h.Last()
	assert.False(t, ok)

	h.Append(&Argument{Text: "a"})
	h.Append(&Argument{Text: "b"})

	last, ok := h.Last()
	assert.True(t, ok)
	assert.Equal(t, "b", last.Text)
}

func TestTurnResult_Succeeded(t *testing.T) {
	live := &TurnResult{Argument: &Argument{Text: "hi"}}
	assert.True(t, live.Succeeded())

	fb := &TurnResult{Argument: &Argument{Text: "sorry", Fallback: true}}
	assert.False(t, fb.Succeeded())

	failed := &TurnResult{Failure: FailureTimeout}
	assert.False(t, failed.Succeeded())
}
