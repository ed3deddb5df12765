// Package server exposes the agent over a minimal HTTP API: one chat
// endpoint, a health check and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bradyops/brady/pkg/agent"
)

const (
	DefaultMaxSessions     = 1000
	DefaultShutdownTimeout = 10 * time.Second
)

// ErrNoMessage is the client error for a missing or empty message.
const ErrNoMessage = "No message provided"

type Config struct {
	Host            string
	Port            int
	MaxSessions     int
	MaxToolRounds   int
	RateLimit       RateLimitConfig
	ShutdownTimeout time.Duration
}

type Server struct {
	cfg      Config
	engine   *gin.Engine
	executor *agent.Executor
	sessions *sessionStore
	metrics  *Metrics
	logger   zerolog.Logger
}

type Option func(*Server)

// WithLogger sets the logger attached to every request context.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func New(model agent.Model, invoker agent.ToolInvoker, cfg Config, opts ...Option) (*Server, error) {
	if model == nil {
		return nil, errors.New("agent model cannot be nil")
	}
	if invoker == nil {
		return nil, errors.New("tool registry cannot be nil")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	sessions, err := newSessionStore(model, cfg.MaxSessions)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		metrics:  NewMetrics(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.executor = agent.NewExecutor(&instrumentedTools{next: invoker, metrics: s.metrics}, cfg.MaxToolRounds)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.POST("/", rateLimitMiddleware(cfg.RateLimit), s.handleChat)
	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.engine = engine
	return s, nil
}

// Handler returns the HTTP handler, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", srv.Addr).Msg("serving brady")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := s.logger.With().Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		code := c.Writer.Status()
		s.metrics.requestsTotal.WithLabelValues(c.FullPath(), strconv.Itoa(code)).Inc()
		logger.Debug().Int("status", code).Dur("latency", time.Since(start)).Msg("request complete")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrNoMessage})
		return
	}

	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	entry, err := s.sessions.acquire(ctx, req.SessionID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open session")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "agent unavailable"})
		return
	}
	s.metrics.sessionsActive.Set(float64(s.sessions.len()))

	ex := s.executor.ExecuteTurn(ctx, entry.session, req.Message)
	sessionID := entry.session.ID()
	entry.mu.Unlock()

	status := "ok"
	if agent.IsSystemError(ex.Agent) {
		status = "system_error"
		s.metrics.systemErrorsTotal.Inc()
	}
	s.metrics.requestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	logger.Debug().Str("session", sessionID).Int("toolCalls", len(ex.ToolCalls)).Msg("turn complete")

	c.JSON(http.StatusOK, chatResponse{Response: ex.Agent, SessionID: sessionID})
}
