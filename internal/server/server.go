package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/plexy44/doplen/internal/config"
	"github.com/plexy44/doplen/internal/domain"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	opener    domain.SessionOpener
	ready     func() bool
	clock     clockwork.Clock
	startTime time.Time
}

// NewServer wires the dispatcher. ready reports whether the shared browser is
// authenticated and is only consulted by the readiness probe.
func NewServer(cfg *config.Config, opener domain.SessionOpener, ready func() bool, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		opener:    opener,
		ready:     ready,
		clock:     clock,
		startTime: clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
