package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType labels a debate lifecycle event.
type EventType string

const (
	// Debate lifecycle
	EventDebateStart    EventType = "debate_start"
	EventRoundStart     EventType = "round_start"
	EventRoundComplete  EventType = "round_complete"
	EventDebateComplete EventType = "debate_complete"

	// Turn streaming
	EventReasoningStart    EventType = "reasoning_start"
	EventReasoningChunk    EventType = "reasoning_chunk"
	EventReasoningComplete EventType = "reasoning_complete"
	EventContentChunk      EventType = "content_chunk"
	EventArgumentComplete  EventType = "argument_complete"

	// Diagnostics
	EventSystem EventType = "system"
)

// Event is one broadcast debate event. Seq is a per-session sequence number
// assigned at publish time; subscribers observe strictly increasing Seq.
type Event struct {
	ID        string      `json:"id"`
	Seq       uint64      `json:"seq"`
	SessionID string      `json:"session_id"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates an unsequenced event; Broadcaster.Publish assigns Seq.
func NewEvent(sessionID string, eventType EventType, payload interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
