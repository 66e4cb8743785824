package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plexy44/doplen/internal/platform/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "alive",
		"uptime_seconds": int64(s.clock.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	if !s.ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":       "not ready",
			"failed_check": "browser",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
