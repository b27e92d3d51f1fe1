// Package server exposes sessions over HTTP.
//
// Routes:
//
//	POST   /v1/sessions              create (or resume) a session
//	GET    /v1/sessions/:id          history and last action
//	POST   /v1/sessions/:id/messages send a message, returns the final text
//	DELETE /v1/sessions/:id          close a session
//	GET    /healthz
//
// Live sessions are kept in an LRU pool. A session leaving the pool, by
// eviction or DELETE, has its transcript saved and is closed. There is no
// interactive confirmer over HTTP, so actions that need confirmation are
// declined unless the factory's sessions pre-authorize them.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/martinemde/execagent/agent"
	"github.com/martinemde/execagent/store"
)

// Config holds the listener and pool settings.
type Config struct {
	Addr           string        `yaml:"addr" json:"addr"`
	MaxSessions    int           `yaml:"max_sessions" json:"max_sessions"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:8080",
		MaxSessions:    100,
		RequestTimeout: 5 * time.Minute,
	}
}

// Merge applies non-zero fields from source onto c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.MaxSessions > 0 {
		c.MaxSessions = source.MaxSessions
	}
	if source.RequestTimeout > 0 {
		c.RequestTimeout = source.RequestTimeout
	}
}

// Factory builds the session for id. history is nil for new sessions.
type Factory func(id string, history []agent.Message) *agent.Session

// Transcripts loads and saves session histories.
type Transcripts interface {
	SaveTranscript(ctx context.Context, sessionID string, history []agent.Message) error
	LoadTranscript(ctx context.Context, sessionID string) ([]agent.Message, error)
}

// Server serves the session API.
type Server struct {
	echo        *echo.Echo
	config      Config
	factory     Factory
	transcripts Transcripts
	sessions    *lru.Cache[string, *agent.Session]
	resumeMu    sync.Mutex // one resume per id at a time
	logger      *slog.Logger
	newID       func() string
}

// New creates a Server. transcripts may be nil, in which case sessions
// cannot be resumed once they leave the pool.
func New(cfg Config, factory Factory, transcripts Transcripts, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig().MaxSessions
	}
	s := &Server{
		config:      cfg,
		factory:     factory,
		transcripts: transcripts,
		logger:      logger,
		newID:       func() string { return uuid.New().String() },
	}

	sessions, err := lru.NewWithEvict(cfg.MaxSessions, s.release)
	if err != nil {
		return nil, fmt.Errorf("session pool: %w", err)
	}
	s.sessions = sessions

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "http request", attrs...)
			return nil
		},
	}))
	s.echo = e
	s.RegisterRoutes(e)
	return s, nil
}

// RegisterRoutes registers the API routes with e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/sessions", s.CreateSession)
	e.GET("/v1/sessions/:id", s.GetSession)
	e.POST("/v1/sessions/:id/messages", s.SendMessage)
	e.DELETE("/v1/sessions/:id", s.DeleteSession)
	e.GET("/healthz", s.Health)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.config.Addr)
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and releases every pooled session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.sessions.Purge()
	return err
}

// release is the pool's eviction callback.
func (s *Server) release(id string, session *agent.Session) {
	if s.transcripts != nil {
		if err := s.transcripts.SaveTranscript(context.Background(), id, session.History()); err != nil {
			s.logger.Error("save transcript on release", "session_id", id, "error", err)
		}
	}
	session.Close()
	s.logger.Debug("session released", "session_id", id)
}

// lookup returns the pooled session for id, resuming it from the
// transcript store if needed. Concurrent lookups of the same id share one
// session.
func (s *Server) lookup(ctx context.Context, id string) (*agent.Session, error) {
	if session, ok := s.sessions.Get(id); ok {
		return session, nil
	}
	if s.transcripts == nil {
		return nil, store.ErrNotFound
	}

	s.resumeMu.Lock()
	defer s.resumeMu.Unlock()
	if session, ok := s.sessions.Get(id); ok {
		return session, nil
	}
	history, err := s.transcripts.LoadTranscript(ctx, id)
	if err != nil {
		return nil, err
	}
	session := s.factory(id, history)
	s.sessions.Add(id, session)
	s.logger.Debug("session resumed", "session_id", id, "messages", len(history))
	return session, nil
}
