package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/plexy44/doplen/internal/metrics"
	"github.com/plexy44/doplen/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var errEmptyTarget = errors.New("empty target")

// normalizeTarget strips whitespace and a leading @ from the path parameter.
// Clients paste handles in both forms.
func normalizeTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	target = strings.TrimPrefix(target, "@")
	if target == "" {
		return "", errEmptyTarget
	}
	return target, nil
}

func (s *Server) handleStream(c echo.Context) error {
	target, err := normalizeTarget(c.Param("username"))
	if err != nil {
		return c.String(http.StatusBadRequest, "Username is required in the URL path.")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)

	metrics.ConnectedClients.WithLabelValues("sse").Inc()
	defer metrics.ConnectedClients.WithLabelValues("sse").Dec()

	publisher := stream.NewPublisher(s.opener, target, s.clock)
	publisher.Serve(c.Request().Context(), resp)
	return nil
}

func (s *Server) handleWebSocket(c echo.Context) error {
	target, err := normalizeTarget(c.Param("username"))
	if err != nil {
		return c.String(http.StatusBadRequest, "Username is required in the URL path.")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	metrics.ConnectedClients.WithLabelValues("websocket").Inc()
	defer metrics.ConnectedClients.WithLabelValues("websocket").Dec()

	stream.ServeWS(c.Request().Context(), conn, s.opener, target, s.clock)
	return nil
}
