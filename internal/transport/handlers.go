package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/debatearena/debatearena/internal/debate"
	"github.com/debatearena/debatearena/internal/llm"
	"github.com/debatearena/debatearena/internal/models"
)

// StartDebateRequest is the body of POST /api/debate/start.
type StartDebateRequest struct {
	SessionID string          `json:"session_id,omitempty"`
	Topic     string          `json:"topic"`
	Rounds    int             `json:"rounds,omitempty"`
	Agents    []*debate.Agent `json:"agents"`
	Moderator *debate.Agent   `json:"moderator,omitempty"`
}

// StartDebateResponse acknowledges a started debate.
type StartDebateResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// SessionResponse reports a session's state.
type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Topic     string         `json:"topic"`
	Status    debate.Status  `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	Result    *debate.Result `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backend := "up"
	status := http.StatusOK
	if err := s.client.Ping(r.Context()); err != nil {
		backend = "down"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{
		"status":  "ok",
		"backend": backend,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	names, err := s.client.ListModels(r.Context())
	if err != nil {
		s.logger.Warn("model listing failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "completion backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"models": names})
}

func (s *Server) handleStartDebate(w http.ResponseWriter, r *http.Request) {
	var req StartDebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if len(req.Agents) == 0 {
		writeError(w, http.StatusBadRequest, "at least two agents are required")
		return
	}
	for _, agent := range req.Agents {
		if agent.Model == "" {
			agent.Model = s.cfg.Ollama.DefaultModel
		}
		if agent.Temperature == 0 {
			agent.Temperature = 0.7
		}
		if agent.Role == "" {
			agent.Role = models.RoleWriter
		}
	}

	rounds := req.Rounds
	if rounds <= 0 {
		rounds = s.cfg.Debate.Rounds
	}

	session, err := s.registry.Start(&debate.OrchestratorConfig{
		SessionID:    req.SessionID,
		Topic:        req.Topic,
		Rounds:       rounds,
		TurnTimeout:  s.cfg.Debate.TurnTimeout,
		HistoryLimit: s.cfg.Debate.HistoryLimit,
		Retry: &llm.RetryConfig{
			MaxRetries:   s.cfg.Debate.MaxRetries,
			InitialDelay: s.cfg.Debate.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Debaters:  req.Agents,
		Moderator: req.Moderator,
	})
	if err != nil {
		if errors.Is(err, debate.ErrAtCapacity) {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("debate started",
		zap.String("session_id", session.ID),
		zap.String("topic", session.Topic),
	)
	writeJSON(w, http.StatusOK, StartDebateResponse{
		SessionID: session.ID,
		Status:    string(session.Status()),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	session, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	resp := SessionResponse{
		SessionID: session.ID,
		Topic:     session.Topic,
		Status:    session.Status(),
		StartedAt: session.StartedAt,
		Result:    session.Result(),
	}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
