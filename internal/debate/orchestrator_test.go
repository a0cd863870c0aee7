package debate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatearena/debatearena/internal/events"
	"github.com/debatearena/debatearena/internal/llm"
	"github.com/debatearena/debatearena/internal/models"
)

// fakeGenerator scripts ChatStream responses per call. Ping succeeds unless
// pingErr is set.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	pings   int
	pingErr error
	fn      func(call int, req *llm.ChatRequest) ([]string, error)
}

func (g *fakeGenerator) Ping(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pings++
	return g.pingErr
}

func (g *fakeGenerator) ChatStream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.Chunk, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks, err := g.fn(call, req)
	if err != nil {
		return nil, err
	}
	out := make(chan llm.Chunk, len(chunks)+1)
	for _, c := range chunks {
		out <- llm.Chunk{Content: c}
	}
	out <- llm.Chunk{Done: true}
	close(out)
	return out, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func plainGenerator(text string) *fakeGenerator {
	return &fakeGenerator{fn: func(int, *llm.ChatRequest) ([]string, error) {
		return []string{text}, nil
	}}
}

func fastRetry() *llm.RetryConfig {
	return &llm.RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0,
	}
}

func testAgents() []*Agent {
	return []*Agent{
		{Name: "Ada", Role: models.RoleWriter, Stance: models.StanceSupport, Model: "test-model", Temperature: 0.7},
		{Name: "Ben", Role: models.RoleDevil, Stance: models.StanceOppose, Model: "test-model", Temperature: 0.7},
	}
}

func testBroadcaster(sessionID string) *events.Broadcaster {
	return events.NewBroadcaster(sessionID, &events.BroadcasterConfig{
		BufferSize:      4096,
		DeliveryTimeout: time.Second,
		MaxSubscribers:  8,
	}, nil)
}

// collectEvents drains a subscription into a slice until the channel closes.
func collectEvents(sub *events.Subscription) (func() []*events.Event, *sync.WaitGroup) {
	var mu sync.Mutex
	var got []*events.Event
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range sub.Events() {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		}
	}()
	return func() []*events.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]*events.Event(nil), got...)
	}, &wg
}

func TestOrchestratorTranscriptShape(t *testing.T) {
	gen := plainGenerator("The evidence clearly supports my side because the data shows it.")
	b := testBroadcaster("s1")

	o, err := NewOrchestrator(&OrchestratorConfig{
		SessionID: "s1",
		Topic:     "renewable energy adoption",
		Rounds:    2,
		Retry:     fastRetry(),
		Debaters:  testAgents(),
		Seed:      42,
	}, gen, b, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	b.Close()

	// Two debaters over two rounds, plus the moderator's opening, one
	// inter-round summary, and the closing.
	assert.Len(t, result.Arguments, 2*2+1+2)

	moderator, support, oppose := 0, 0, 0
	for _, arg := range result.Arguments {
		switch arg.Stance {
		case models.StanceNeutral:
			moderator++
		case models.StanceSupport:
			support++
		case models.StanceOppose:
			oppose++
		}
		assert.False(t, arg.Fallback)
		assert.NotEmpty(t, arg.Text)
	}
	assert.Equal(t, 3, moderator)
	assert.Equal(t, 2, support)
	assert.Equal(t, 2, oppose)

	assert.Equal(t, result.Arguments[0].Speaker, "Moderator")
	assert.Equal(t, 0, result.Arguments[0].Round)
	last := result.Arguments[len(result.Arguments)-1]
	assert.Equal(t, "Moderator", last.Speaker)
	assert.Equal(t, 3, last.Round)

	assert.Contains(t, []models.Stance{models.StanceSupport, models.StanceOppose, models.StanceNeutral}, result.Winner)
	require.NotNil(t, result.Verdict)
}

func TestOrchestratorEventStream(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, *llm.ChatRequest) ([]string, error) {
		// Reasoning markers split across chunks.
		return []string{"<think>reasoning ", "here</think>final", " answer"}, nil
	}}
	b := testBroadcaster("s2")
	sub, err := b.Subscribe()
	require.NoError(t, err)
	getEvents, wg := collectEvents(sub)

	o, err := NewOrchestrator(&OrchestratorConfig{
		SessionID: "s2",
		Topic:     "topic",
		Rounds:    1,
		Retry:     fastRetry(),
		Debaters:  testAgents(),
		Seed:      1,
	}, gen, b, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	b.Close()
	wg.Wait()

	for _, arg := range result.Arguments {
		assert.Equal(t, "final answer", arg.Text)
		assert.Equal(t, "reasoning here", arg.Reasoning)
	}

	evs := getEvents()
	require.NotEmpty(t, evs)
	assert.Equal(t, events.EventDebateStart, evs[0].Type)
	assert.Equal(t, events.EventDebateComplete, evs[len(evs)-1].Type)

	var lastSeq uint64
	counts := make(map[events.EventType]int)
	for _, ev := range evs {
		assert.Greater(t, ev.Seq, lastSeq, "sequence must be strictly increasing")
		lastSeq = ev.Seq
		counts[ev.Type]++
	}
	assert.Equal(t, 1, counts[events.EventRoundStart])
	assert.Equal(t, 1, counts[events.EventRoundComplete])
	assert.Equal(t, len(result.Arguments), counts[events.EventArgumentComplete])
	assert.NotZero(t, counts[events.EventReasoningStart])
	assert.NotZero(t, counts[events.EventReasoningComplete])
	assert.NotZero(t, counts[events.EventContentChunk])
}

func TestOrchestratorFallbackAfterRetries(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, *llm.ChatRequest) ([]string, error) {
		return nil, llm.ErrTransport
	}}
	b := testBroadcaster("s3")

	o, err := NewOrchestrator(&OrchestratorConfig{
		SessionID: "s3",
		Topic:     "topic",
		Rounds:    1,
		Retry:     fastRetry(),
		Debaters:  testAgents(),
		Seed:      1,
	}, gen, b, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	b.Close()

	require.NotEmpty(t, result.Arguments)
	for _, arg := range result.Arguments {
		assert.True(t, arg.Fallback)
		assert.Equal(t, 0.5, arg.Confidence)
		assert.Equal(t, 0.5, arg.QualityScore)
		assert.NotEmpty(t, arg.Text, "fallback text must stay in character")
	}
	// Every turn exhausted its retry budget.
	turns := len(result.Arguments)
	assert.Equal(t, turns*(fastRetry().MaxRetries+1), gen.callCount())
}

func TestOrchestratorSkipsGenerationWhenBackendDown(t *testing.T) {
	gen := &fakeGenerator{
		pingErr: llm.ErrBackendUnavailable,
		fn: func(int, *llm.ChatRequest) ([]string, error) {
			return []string{"a live answer"}, nil
		},
	}
	b := testBroadcaster("s6")

	o, err := NewOrchestrator(&OrchestratorConfig{
		SessionID: "s6",
		Topic:     "topic",
		Rounds:    1,
		Retry:     fastRetry(),
		Debaters:  testAgents(),
		Seed:      1,
	}, gen, b, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	b.Close()

	require.NotEmpty(t, result.Arguments)
	for _, arg := range result.Arguments {
		assert.True(t, arg.Fallback)
	}
	// The failed probe short-circuits each turn before any stream is opened.
	assert.Zero(t, gen.callCount())
}

func TestOrchestratorEmptyThenRecovered(t *testing.T) {
	gen := &fakeGenerator{fn: func(call int, _ *llm.ChatRequest) ([]string, error) {
		if call%2 == 1 {
			return []string{"   "}, nil // whitespace only: empty response, retried
		}
		return []string{"I think this holds up because the evidence is solid."}, nil
	}}
	b := testBroadcaster("s4")

	o, err := NewOrchestrator(&OrchestratorConfig{
		SessionID: "s4",
		Topic:     "topic",
		Rounds:    1,
		Retry:     fastRetry(),
		Debaters:  testAgents(),
		Seed:      1,
	}, gen, b, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	b.Close()

	for _, arg := range result.Arguments {
		assert.False(t, arg.Fallback)
		assert.Equal(t, "I think this holds up because the evidence is solid.", arg.Text)
	}
}

func TestOrchestratorDeterministicOrderWithSeed(t *testing.T) {
	run := func() []string {
		gen := plainGenerator("a perfectly ordinary argument")
		b := testBroadcaster("seed")
		o, err := NewOrchestrator(&OrchestratorConfig{
			SessionID: "seed",
			Topic:     "topic",
			Rounds:    3,
			Retry:     fastRetry(),
			Debaters:  testAgents(),
			Seed:      99,
		}, gen, b, nil)
		require.NoError(t, err)
		result, err := o.Run(context.Background())
		require.NoError(t, err)
		b.Close()

		var speakers []string
		for _, arg := range result.Arguments {
			speakers = append(speakers, arg.Speaker)
		}
		return speakers
	}

	assert.Equal(t, run(), run())
}

func TestOrchestratorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	gen := &fakeGenerator{fn: func(call int, _ *llm.ChatRequest) ([]string, error) {
		if call > 2 {
			once.Do(cancel)
		}
		return []string{"still talking"}, nil
	}}
	b := testBroadcaster("s5")

	o, err := NewOrchestrator(&OrchestratorConfig{
		SessionID: "s5",
		Topic:     "topic",
		Rounds:    10,
		Retry:     fastRetry(),
		Debaters:  testAgents(),
		Seed:      1,
	}, gen, b, nil)
	require.NoError(t, err)

	_, err = o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	b.Close()
}

func TestNewOrchestratorValidation(t *testing.T) {
	gen := plainGenerator("x")
	b := testBroadcaster("v")
	defer b.Close()

	_, err := NewOrchestrator(&OrchestratorConfig{Topic: "", Debaters: testAgents()}, gen, b, nil)
	assert.Error(t, err)

	onlySupport := []*Agent{
		{Name: "Ada", Role: models.RoleWriter, Stance: models.StanceSupport, Model: "m"},
	}
	_, err = NewOrchestrator(&OrchestratorConfig{Topic: "t", Debaters: onlySupport}, gen, b, nil)
	assert.Error(t, err)

	_, err = NewOrchestrator(&OrchestratorConfig{Topic: "t", Debaters: testAgents()}, nil, b, nil)
	assert.Error(t, err)
}
