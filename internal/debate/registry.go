package debate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/debatearena/debatearena/internal/events"
	"github.com/debatearena/debatearena/internal/metrics"
)

// Status is a session's lifecycle phase.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session is one live or finished debate.
type Session struct {
	ID          string
	Topic       string
	Broadcaster *events.Broadcaster
	StartedAt   time.Time

	mu       sync.RWMutex
	status   Status
	result   *Result
	err      error
	cancel   context.CancelFunc
	finished chan struct{}
}

// Status returns the session's current phase.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Result returns the final outcome, or nil while the debate is running or
// after a failure.
func (s *Session) Result() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Err returns the failure cause, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Done is closed when the debate finishes, for either reason.
func (s *Session) Done() <-chan struct{} { return s.finished }

// Cancel stops the debate early.
func (s *Session) Cancel() { s.cancel() }

func (s *Session) finish(result *Result, err error) {
	s.mu.Lock()
	if err != nil {
		s.status = StatusFailed
		s.err = err
	} else {
		s.status = StatusCompleted
		s.result = result
	}
	s.mu.Unlock()
	close(s.finished)
}

// RegistryConfig bounds the registry.
type RegistryConfig struct {
	MaxConcurrent int
	Broadcast     *events.BroadcasterConfig
}

// DefaultRegistryConfig allows ten simultaneous debates.
func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{MaxConcurrent: 10}
}

// Registry tracks debate sessions and admits new ones only while capacity
// remains. Safe for concurrent use.
type Registry struct {
	config    *RegistryConfig
	generator Generator
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a session registry backed by one completion client.
func NewRegistry(config *RegistryConfig, generator Generator, logger *zap.Logger) *Registry {
	if config == nil {
		config = DefaultRegistryConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		config:    config,
		generator: generator,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// ErrAtCapacity is returned when no debate slot is free.
var ErrAtCapacity = fmt.Errorf("debate: concurrent session limit reached")

// Start admits and launches a new debate. The returned session is already
// registered and running in its own goroutine; subscribe to its
// Broadcaster to follow along.
func (r *Registry) Start(cfg *OrchestratorConfig) (*Session, error) {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}

	r.mu.Lock()
	running := 0
	for _, s := range r.sessions {
		if s.Status() == StatusRunning {
			running++
		}
	}
	if running >= r.config.MaxConcurrent {
		r.mu.Unlock()
		return nil, ErrAtCapacity
	}
	if _, exists := r.sessions[cfg.SessionID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("debate: session %s already exists", cfg.SessionID)
	}

	broadcaster := events.NewBroadcaster(cfg.SessionID, r.config.Broadcast, r.logger)
	orchestrator, err := NewOrchestrator(cfg, r.generator, broadcaster, r.logger)
	if err != nil {
		r.mu.Unlock()
		broadcaster.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		ID:          cfg.SessionID,
		Topic:       cfg.Topic,
		Broadcaster: broadcaster,
		StartedAt:   time.Now(),
		status:      StatusRunning,
		cancel:      cancel,
		finished:    make(chan struct{}),
	}
	r.sessions[session.ID] = session
	r.mu.Unlock()

	go func() {
		defer cancel()
		defer broadcaster.Close()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("debate session panicked",
					zap.String("session_id", session.ID),
					zap.Any("panic", rec),
				)
				metrics.DebateCompleted("panicked")
				session.finish(nil, fmt.Errorf("debate: session panicked: %v", rec))
			}
		}()
		result, runErr := orchestrator.Run(ctx)
		session.finish(result, runErr)
	}()

	r.logger.Info("debate session started",
		zap.String("session_id", session.ID),
		zap.String("topic", session.Topic),
	)
	return session, nil
}

// Get looks a session up by ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// List returns every known session.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Remove cancels a session if needed and forgets it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		session.Cancel()
		<-session.Done()
	}
}

// Shutdown cancels every running session and waits for them to stop.
func (r *Registry) Shutdown() {
	for _, session := range r.List() {
		session.Cancel()
	}
	for _, session := range r.List() {
		<-session.Done()
	}
	r.logger.Info("debate registry shut down")
}
