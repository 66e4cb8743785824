package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no rate limiting)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Stream endpoints: each accepted request pins a browser tab, so they get
	// a per-IP rate limit in front.
	limiter := newRateLimiter(s.config.StreamRatePerSecond, s.config.StreamRateBurst)
	s.echo.GET("/stream/:username", s.handleStream, limiter)
	s.echo.GET("/ws/:username", s.handleWebSocket, limiter)
}
