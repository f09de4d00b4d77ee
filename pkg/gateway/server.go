package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/harun/stockagent/internal/metrics"
	"github.com/harun/stockagent/internal/tracing"
	"github.com/harun/stockagent/pkg/orchestrator"
)

// QueryIDHeader carries the ID assigned to each query
const QueryIDHeader = "X-Query-Id"

// QueryRunner starts a query and returns its event stream
type QueryRunner interface {
	Run(ctx context.Context, query string) <-chan orchestrator.Event
}

// Server exposes the query pipeline over HTTP
type Server struct {
	host           string
	port           int
	streamProgress bool
	pipeline       QueryRunner
	metrics        *metrics.Metrics
	logger         zerolog.Logger

	server         *http.Server
	listener       net.Listener
	isShuttingDown bool
	shutdownMu     sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	StreamProgress bool
	Pipeline       QueryRunner
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
}

// NewServer creates a new server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}

	return &Server{
		host:           cfg.Host,
		port:           cfg.Port,
		streamProgress: cfg.StreamProgress,
		pipeline:       cfg.Pipeline,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger.With().Str("component", "gateway").Logger(),
	}, nil
}

// Handler returns the HTTP handler with all routes and CORS applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{QueryIDHeader},
	})
	return c.Handler(mux)
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, fmt.Sprint(s.port)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting server")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Server error")
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop rejects new queries and waits for in-flight ones until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	if s.server == nil {
		return nil
	}

	s.logger.Info().Msg("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// handleQuery streams the pipeline events for ?q= as plain text, one chunk per line
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShuttingDown {
		s.shutdownMu.RUnlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.shutdownMu.RUnlock()

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Blank queries are rejected; others are passed on exactly as sent
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		http.Error(w, "missing query parameter: q", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	queryID, err := gonanoid.New()
	if err != nil {
		queryID = tracing.NewQueryID()
	}

	ctx := tracing.WithQueryID(r.Context(), queryID)
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set(QueryIDHeader, queryID)
	w.WriteHeader(http.StatusOK)

	chunks := 0
	for ev := range s.pipeline.Run(ctx, query) {
		if ev.Type == orchestrator.EventStage && !s.streamProgress {
			continue
		}
		if _, err := fmt.Fprintln(w, ev.Text); err != nil {
			// Client is gone; returning cancels ctx, which stops the stream
			logger.Warn().Err(err).Msg("Client disconnected")
			return
		}
		flusher.Flush()
		chunks++
	}

	logger.Info().
		Int("chunks", chunks).
		Dur("duration", time.Since(start)).
		Msg("Query streamed")
}
