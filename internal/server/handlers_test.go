package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexy44/doplen/internal/config"
	"github.com/plexy44/doplen/internal/domain"
)

type stubOpener struct {
	err   error
	calls int
}

func (o *stubOpener) OpenSession(_ context.Context, _ string) (domain.LiveSession, error) {
	o.calls++
	return nil, o.err
}

func testServer(opener domain.SessionOpener, ready bool) *Server {
	cfg := &config.Config{
		Port:                 "0",
		MaxSessionsPerTarget: 3,
		StreamRatePerSecond:  1000,
		StreamRateBurst:      1000,
	}
	return NewServer(cfg, opener, func() bool { return ready }, clockwork.NewFakeClock())
}

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain handle", "alice", "alice", false},
		{"at prefix stripped", "@alice", "alice", false},
		{"whitespace trimmed", "  alice  ", "alice", false},
		{"whitespace then prefix", " @alice ", "alice", false},
		{"empty", "", "", true},
		{"only whitespace", "   ", "", true},
		{"only prefix", "@", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeTarget(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleStreamRejectsEmptyTarget(t *testing.T) {
	opener := &stubOpener{}
	srv := testServer(opener, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream/@", nil)
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username is required in the URL path.", rec.Body.String())
	assert.Equal(t, 0, opener.calls, "validation failure must not touch the browser")
}

func TestHandleStreamNotLiveTarget(t *testing.T) {
	opener := &stubOpener{err: domain.ErrNotLive}
	srv := testServer(opener, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream/alice", nil)
	srv.echo.ServeHTTP(rec, req)

	// Headers are already out when the open fails, so it stays a 200 with an
	// in-band error event.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	assert.Equal(t, 1, opener.calls)

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "data: "))

	var ev struct {
		Type string           `json:"type"`
		Data domain.ErrorData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(body, "data: "), "\n\n")), &ev))
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, domain.StreamErrorMessage, ev.Data.Message)
}

func TestHandleWebSocketRejectsEmptyTarget(t *testing.T) {
	opener := &stubOpener{}
	srv := testServer(opener, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/@", nil)
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, opener.calls)
}

func TestHandleLiveness(t *testing.T) {
	srv := testServer(&stubOpener{}, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alive"`)
}

func TestHandleReadiness(t *testing.T) {
	t.Run("browser authenticated", func(t *testing.T) {
		srv := testServer(&stubOpener{}, true)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("browser not ready", func(t *testing.T) {
		srv := testServer(&stubOpener{}, false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		srv.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"browser"`)
	})
}

func TestHandleVersion(t *testing.T) {
	srv := testServer(&stubOpener{}, true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
}
