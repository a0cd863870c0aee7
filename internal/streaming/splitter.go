package streaming

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Sink receives the split output of a token stream. Implementations must be
// safe to call from the goroutine that feeds the Splitter; the Splitter
// itself never spawns goroutines.
type Sink interface {
	// ReasoningStart fires at most once per turn, when the first
	// enter-reasoning marker is recognized.
	ReasoningStart()
	ReasoningChunk(text string)
	// ReasoningComplete fires on each exit-reasoning marker with the full
	// reasoning text accumulated so far this turn.
	ReasoningComplete(full string)
	ContentChunk(text string)
}

// DefaultFlushThreshold is the buffered byte count above which the splitter
// flushes eagerly instead of waiting for more input.
const DefaultFlushThreshold = 100

type mode int

const (
	outside mode = iota
	inside
)

// Splitter incrementally separates a model's token stream into visible
// content and reasoning delimited by marker pairs, tolerating markers that
// straddle chunk boundaries. Not safe for concurrent use; one Splitter per
// turn.
type Splitter struct {
	sink      Sink
	markers   []MarkerPair
	starts    []string
	ends      []string
	threshold int
	logger    *zap.Logger

	mode      mode
	buf       strings.Builder
	reasoning strings.Builder
	content   strings.Builder
	started   bool
	finished  bool
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithMarkers replaces the default marker vocabulary.
func WithMarkers(pairs []MarkerPair) Option {
	return func(s *Splitter) {
		if len(pairs) > 0 {
			s.markers = pairs
		}
	}
}

// WithFlushThreshold overrides DefaultFlushThreshold.
func WithFlushThreshold(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithLogger attaches a logger for debug traces.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Splitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSplitter creates a splitter that reports to sink.
func NewSplitter(sink Sink, opts ...Option) *Splitter {
	s := &Splitter{
		sink:      sink,
		markers:   DefaultMarkers(),
		threshold: DefaultFlushThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range s.markers {
		s.starts = append(s.starts, p.Start)
		s.ends = append(s.ends, p.End)
	}
	return s
}

// Feed appends chunk to the internal buffer and emits whatever can be
// classified unambiguously. Splitting is chunking-invariant: feeding a
// stream one byte at a time yields the same accumulated output as feeding
// it whole.
func (s *Splitter) Feed(chunk string) {
	if s.finished || chunk == "" {
		return
	}
	s.buf.WriteString(chunk)
	s.process()
}

func (s *Splitter) process() {
	for {
		buf := s.buf.String()
		if buf == "" {
			return
		}
		switch s.mode {
		case outside:
			pos, length := earliest(buf, s.starts)
			if pos >= 0 {
				if pos > 0 {
					s.emitContent(buf[:pos])
				}
				s.buf.Reset()
				s.buf.WriteString(buf[pos+length:])
				s.mode = inside
				if !s.started {
					s.started = true
					s.sink.ReasoningStart()
				}
				continue
			}
			if !s.flushContent(buf) {
				return
			}
		case inside:
			pos, length := earliest(buf, s.ends)
			if pos >= 0 {
				if pos > 0 {
					s.emitReasoning(buf[:pos])
				}
				s.buf.Reset()
				s.buf.WriteString(buf[pos+length:])
				s.mode = outside
				s.sink.ReasoningComplete(s.reasoning.String())
				continue
			}
			if !s.flushReasoning(buf) {
				return
			}
		}
	}
}

// flushContent eagerly emits buffered content once it outgrows the
// threshold, holding back any trailing partial start marker and cutting at
// the last whitespace so words are not split mid-token. Reports whether
// anything was emitted.
func (s *Splitter) flushContent(buf string) bool {
	if len(buf) <= s.threshold {
		return false
	}
	safe := len(buf) - partialSuffix(buf, s.starts)
	cut := strings.LastIndexAny(buf[:safe], " \t\n")
	if cut < 0 {
		return false
	}
	s.emitContent(buf[:cut+1])
	s.buf.Reset()
	s.buf.WriteString(buf[cut+1:])
	return true
}

// flushReasoning emits buffered reasoning in bounded chunks, holding back
// any trailing partial end marker.
func (s *Splitter) flushReasoning(buf string) bool {
	if len(buf) <= s.threshold {
		return false
	}
	safe := len(buf) - partialSuffix(buf, s.ends)
	if safe <= 0 {
		return false
	}
	flushed := false
	for safe > 0 {
		n := safe
		if n > s.threshold {
			n = s.threshold
			// Never cut a multibyte rune in half; observers JSON-encode
			// each chunk independently.
			for n > 0 && !utf8.RuneStart(buf[n]) {
				n--
			}
			if n == 0 {
				break
			}
		}
		s.emitReasoning(buf[:n])
		buf = buf[n:]
		safe -= n
		flushed = true
	}
	s.buf.Reset()
	s.buf.WriteString(buf)
	return flushed
}

func (s *Splitter) emitContent(text string) {
	s.content.WriteString(text)
	s.sink.ContentChunk(text)
}

func (s *Splitter) emitReasoning(text string) {
	s.reasoning.WriteString(text)
	s.sink.ReasoningChunk(text)
}

// Finish drains the buffer, classifying the residue by the current mode.
// An unmatched trailing partial marker is emitted verbatim so no input
// bytes are lost. Further Feed calls are ignored.
func (s *Splitter) Finish() {
	if s.finished {
		return
	}
	s.finished = true
	rest := s.buf.String()
	s.buf.Reset()
	switch s.mode {
	case inside:
		if rest != "" {
			s.emitReasoning(rest)
		}
		s.sink.ReasoningComplete(s.reasoning.String())
	default:
		if rest != "" {
			s.emitContent(rest)
		}
	}
}

// Content returns everything classified as visible content so far.
func (s *Splitter) Content() string { return s.content.String() }

// Reasoning returns everything classified as reasoning so far.
func (s *Splitter) Reasoning() string { return s.reasoning.String() }
