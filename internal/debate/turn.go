package debate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/debatearena/debatearena/internal/events"
	"github.com/debatearena/debatearena/internal/llm"
	"github.com/debatearena/debatearena/internal/metrics"
	"github.com/debatearena/debatearena/internal/models"
	"github.com/debatearena/debatearena/internal/streaming"
)

// Generator produces streamed completions. *llm.Client satisfies it.
type Generator interface {
	// Ping probes backend liveness. A failure means generation should not
	// be attempted at all.
	Ping(ctx context.Context) error
	ChatStream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.Chunk, error)
}

// ChunkPayload carries one streamed text fragment.
type ChunkPayload struct {
	Speaker string `json:"speaker"`
	Round   int    `json:"round"`
	Text    string `json:"text"`
}

// ReasoningPayload carries the accumulated reasoning of a turn.
type ReasoningPayload struct {
	Speaker   string `json:"speaker"`
	Round     int    `json:"round"`
	Reasoning string `json:"reasoning"`
}

// SpeakerPayload identifies the speaker of a lifecycle event.
type SpeakerPayload struct {
	Speaker string `json:"speaker"`
	Round   int    `json:"round"`
}

// eventSink forwards splitter output to the session broadcaster.
type eventSink struct {
	broadcaster *events.Broadcaster
	speaker     string
	round       int
}

func (s *eventSink) ReasoningStart() {
	s.broadcaster.Publish(events.EventReasoningStart, SpeakerPayload{Speaker: s.speaker, Round: s.round})
}

func (s *eventSink) ReasoningChunk(text string) {
	s.broadcaster.Publish(events.EventReasoningChunk, ChunkPayload{Speaker: s.speaker, Round: s.round, Text: text})
}

func (s *eventSink) ReasoningComplete(full string) {
	s.broadcaster.Publish(events.EventReasoningComplete, ReasoningPayload{Speaker: s.speaker, Round: s.round, Reasoning: full})
}

func (s *eventSink) ContentChunk(text string) {
	s.broadcaster.Publish(events.EventContentChunk, ChunkPayload{Speaker: s.speaker, Round: s.round, Text: text})
}

// runTurn generates one argument for agent, retrying transient failures
// with backoff and falling back to an in-character canned line when every
// attempt fails. It always returns a usable argument.
func (o *Orchestrator) runTurn(ctx context.Context, agent *Agent, round int, instruction string) *models.TurnResult {
	start := time.Now()
	messages := buildMessages(agent, o.topic, o.history.Snapshot(), round, instruction)
	req := &llm.ChatRequest{
		Model:    agent.Model,
		Messages: messages,
		Stream:   true,
		Options:  llm.Options{Temperature: agent.Temperature},
	}

	var lastErr error
	retries := 0
	for attempt := 0; attempt <= o.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			retries++
			metrics.TurnRetried()
			o.broadcaster.Publish(events.EventSystem, map[string]interface{}{
				"message": agent.Name + " is retrying",
				"attempt": attempt,
			})
			select {
			case <-time.After(o.retry.Backoff(attempt)):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = o.retry.MaxRetries + 1
				continue
			}
		}

		// A dead backend fails instantly; don't burn the retry budget on it.
		if err := o.generator.Ping(ctx); err != nil {
			if !errors.Is(err, llm.ErrBackendUnavailable) {
				err = fmt.Errorf("%w: %v", llm.ErrBackendUnavailable, err)
			}
			lastErr = err
			o.broadcaster.Publish(events.EventSystem, map[string]interface{}{
				"message": "backend unavailable, " + agent.Name + " falls back without generating",
			})
			break
		}

		content, reasoning, lowConfidence, err := o.streamOnce(ctx, agent, round, req)
		if err != nil {
			lastErr = err
			o.logger.Warn("turn attempt failed",
				zap.String("speaker", agent.Name),
				zap.Int("round", round),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if !llm.Retryable(err) {
				break
			}
			continue
		}

		result := analyzeResponse(content)
		arg := &models.Argument{
			Speaker:      agent.Name,
			Stance:       agent.Stance,
			Round:        round,
			Text:         result.Text,
			Reasoning:    reasoning,
			Evidence:     result.Evidence,
			Confidence:   result.Confidence,
			QualityScore: result.Quality,
			CreatedAt:    time.Now(),
		}
		if lowConfidence && arg.Confidence > 0.5 {
			arg.Confidence = 0.5
		}
		metrics.TurnCompleted(string(agent.Role), "ok", time.Since(start))
		return &models.TurnResult{Argument: arg, Retries: retries}
	}

	metrics.TurnCompleted(string(agent.Role), "fallback", time.Since(start))
	o.logger.Error("turn fell back after retries",
		zap.String("speaker", agent.Name),
		zap.Int("round", round),
		zap.Int("retries", retries),
		zap.Error(lastErr),
	)

	fallback := &models.Argument{
		Speaker:      agent.Name,
		Stance:       agent.Stance,
		Round:        round,
		Text:         agent.FallbackText(),
		Confidence:   0.5,
		QualityScore: 0.5,
		Fallback:     true,
		CreatedAt:    time.Now(),
	}
	sink := &eventSink{broadcaster: o.broadcaster, speaker: agent.Name, round: round}
	sink.ContentChunk(fallback.Text)

	return &models.TurnResult{
		Argument: fallback,
		Failure:  failureKind(lastErr),
		Err:      lastErr,
		Retries:  retries,
	}
}

// streamOnce runs a single generation attempt through the tag splitter. A
// turn whose content all arrived inside reasoning markers is recovered via
// synthesis; lowConfidence reports that only the placeholder was left.
func (o *Orchestrator) streamOnce(ctx context.Context, agent *Agent, round int, req *llm.ChatRequest) (content, reasoning string, lowConfidence bool, err error) {
	turnCtx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	sink := &eventSink{broadcaster: o.broadcaster, speaker: agent.Name, round: round}
	splitter := streaming.NewSplitter(sink, streaming.WithLogger(o.logger))

	ch, err := o.generator.ChatStream(turnCtx, req)
	if err != nil {
		return "", "", false, llm.Classify(err)
	}

	for chunk := range ch {
		if chunk.Err != nil {
			return "", "", false, llm.Classify(chunk.Err)
		}
		if chunk.Content != "" {
			splitter.Feed(chunk.Content)
		}
	}
	if ctxErr := turnCtx.Err(); ctxErr != nil {
		return "", "", false, llm.Classify(ctxErr)
	}
	splitter.Finish()

	content = strings.TrimSpace(splitter.Content())
	reasoning = strings.TrimSpace(splitter.Reasoning())
	if content == "" {
		if reasoning == "" {
			return "", "", false, llm.ErrEmptyResponse
		}
		if synthesized, ok := streaming.SynthesizeContent(reasoning); ok {
			content = synthesized
		} else {
			content = streaming.PlaceholderContent
			lowConfidence = true
		}
		// The recovered text never went through the splitter, so observers
		// have not seen it yet.
		sink.ContentChunk(content)
	}
	return content, reasoning, lowConfidence, nil
}

func failureKind(err error) models.FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, llm.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.FailureTimeout
	case errors.Is(err, llm.ErrEmptyResponse):
		return models.FailureEmpty
	default:
		return models.FailureTransport
	}
}
