package transport

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/debatearena/debatearena/internal/config"
	"github.com/debatearena/debatearena/internal/debate"
	"github.com/debatearena/debatearena/internal/llm"
)

// Server is the HTTP and WebSocket front of the debate arena.
type Server struct {
	cfg      *config.Config
	registry *debate.Registry
	client   *llm.Client
	logger   *zap.Logger
	httpSrv  *http.Server
}

// NewServer wires the transport layer together.
func NewServer(cfg *config.Config, registry *debate.Registry, client *llm.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		registry: registry,
		client:   client,
		logger:   logger,
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Routes builds the request multiplexer.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("POST /api/debate/start", s.handleStartDebate)
	mux.HandleFunc("GET /api/debate/{session_id}", s.handleSession)
	mux.HandleFunc("GET /ws/{session_id}", s.handleWebSocket)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.logRequests(mux)
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpSrv.Addr))
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
		)
	})
}
