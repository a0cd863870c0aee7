package llm

import (
	"context"
	"errors"
	"net"
)

// Generation-layer error taxonomy. The orchestrator retries these locally and
// downgrades to a fallback Argument after the retry budget; they never surface
// past the orchestrator boundary.
var (
	// ErrGenerationTimeout means the backend did not answer within the turn deadline.
	ErrGenerationTimeout = errors.New("llm: generation timeout")
	// ErrTransport means the connection to the backend failed.
	ErrTransport = errors.New("llm: transport error")
	// ErrEmptyResponse means the backend answered with no usable text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrMalformedStream means the stream framing was unparseable beyond recovery.
	ErrMalformedStream = errors.New("llm: malformed stream")
	// ErrBackendUnavailable means the liveness probe failed before the call.
	ErrBackendUnavailable = errors.New("llm: backend unavailable")
)

// Classify maps a raw call error onto the taxonomy. Context cancellation is
// passed through untouched so teardown is distinguishable from backend
// slowness.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ErrGenerationTimeout),
		errors.Is(err, ErrTransport),
		errors.Is(err, ErrEmptyResponse),
		errors.Is(err, ErrMalformedStream),
		errors.Is(err, ErrBackendUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrGenerationTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrGenerationTimeout
	}
	return ErrTransport
}

// Retryable reports whether a classified error warrants another attempt.
// Cancellation never does.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrGenerationTimeout) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrEmptyResponse)
}
