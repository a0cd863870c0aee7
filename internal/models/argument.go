package models

import "time"

// Stance is a participant's position on the debate topic.
type Stance string

const (
	StanceSupport Stance = "support"
	StanceOppose  Stance = "oppose"
	StanceNeutral Stance = "neutral"
)

// Role describes what an agent contributes to its team.
type Role string

const (
	RoleSearcher  Role = "searcher"
	RoleAnalyzer  Role = "analyzer"
	RoleWriter    Role = "writer"
	RoleReviewer  Role = "reviewer"
	RoleDevil     Role = "devil"
	RoleAngel     Role = "angel"
	RoleModerator Role = "moderator"
)

// Argument is one finished utterance in a debate. It is created by the
// orchestrator when a turn completes (live generation or fallback) and is
// immutable afterwards.
type Argument struct {
	Speaker      string    `json:"speaker"`
	Stance       Stance    `json:"stance"`
	Round        int       `json:"round"`
	Text         string    `json:"text"`
	Reasoning    string    `json:"reasoning,omitempty"`
	Evidence     []string  `json:"evidence,omitempty"`
	Confidence   float64   `json:"confidence"`
	QualityScore float64   `json:"quality_score"`
	Fallback     bool      `json:"fallback,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// FailureKind classifies why a turn's generation failed.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureTransport FailureKind = "transport_error"
	FailureEmpty     FailureKind = "empty_response"
)

// TurnResult is the transient outcome of a single turn: either a completed
// Argument or a classified failure plus the retry count. It never outlives
// the turn that produced it.
type TurnResult struct {
	Argument *Argument
	Failure  FailureKind
	Err      error
	Retries  int
}

// Succeeded reports whether the turn yielded a live (non-fallback) Argument.
func (r *TurnResult) Succeeded() bool {
	return r.Argument != nil && !r.Argument.Fallback
}
