// Package server exposes the ingest pipeline and the mastery views over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/wordmine/internal/config"
	"github.com/abhisek/wordmine/internal/gems"
	"github.com/abhisek/wordmine/internal/session"
	"github.com/abhisek/wordmine/internal/store"
)

// Ingester accepts completed sessions.
type Ingester interface {
	Ingest(ctx context.Context, studentID string, sub *session.Submission) (*session.Result, error)
}

// GemReader serves the mastery views.
type GemReader interface {
	Collection(ctx context.Context, studentID string, limit int) ([]gems.Record, error)
	DueForReview(ctx context.Context, studentID string, now time.Time, limit int) ([]gems.Record, error)
}

// Pinger reports database liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the handlers' collaborators.
type Deps struct {
	Collector Ingester
	Sessions  store.SessionRepo
	Ledger    GemReader
	DB        Pinger
	Identity  IdentityResolver
}

// Server is the HTTP front end.
type Server struct {
	echo *echo.Echo
	cfg  config.ServerConfig
	log  logrus.FieldLogger

	collector Ingester
	sessions  store.SessionRepo
	ledger    GemReader
	db        Pinger
	now       func() time.Time
}

func New(deps Deps, cfg *config.Config, log logrus.FieldLogger) (*Server, error) {
	identity := deps.Identity
	if identity == nil {
		var err error
		if identity, err = NewIdentityResolver(cfg.Auth); err != nil {
			return nil, err
		}
	}

	s := &Server{
		echo:      echo.New(),
		cfg:       cfg.Server,
		log:       log,
		collector: deps.Collector,
		sessions:  deps.Sessions,
		ledger:    deps.Ledger,
		db:        deps.DB,
		now:       time.Now,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/healthz", s.handleHealth)

	auth := requireStudent(identity)
	limiter := NewRateLimiter(cfg.RateLimit)
	e.POST("/sessions", s.handleIngest, auth, limiter.middleware())
	e.GET("/sessions", s.handleListSessions, auth)
	e.GET("/gems", s.handleGems, auth)
	e.GET("/reviews/due", s.handleDueReviews, auth)

	return s, nil
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	s.log.WithField("addr", s.cfg.Addr).Info("http server listening")
	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
