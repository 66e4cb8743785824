package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/plexy44/doplen/internal/domain"
	"github.com/plexy44/doplen/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	messageBufferSize = 16
)

// connWriter serializes all writes to one websocket connection through a
// single goroutine, with a buffered send channel and periodic pings.
type connWriter struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newConnWriter(connection *websocket.Conn, clock clockwork.Clock) *connWriter {
	cw := &connWriter{
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *connWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg, ok := <-cw.sendChannel:
			if !ok {
				return
			}
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

// trySend enqueues a message without blocking. Returns false when the client
// cannot keep up.
func (cw *connWriter) trySend(msg []byte) bool {
	select {
	case cw.sendChannel <- msg:
		return true
	default:
		return false
	}
}

func (cw *connWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

func (cw *connWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

// ServeWS relays one target's live events over a websocket connection,
// carrying the same JSON payloads as the SSE stream without the SSE framing.
// Blocks until the client disconnects or the upstream dies.
func ServeWS(ctx context.Context, conn *websocket.Conn, opener domain.SessionOpener, target string, clock clockwork.Clock) {
	writer := newConnWriter(conn, clock)
	defer writer.stop()

	sendEvent := func(ev domain.Event) bool {
		raw, err := json.Marshal(ev)
		if err != nil {
			slog.Error("Failed to marshal event", "type", ev.Type, "error", err)
			return true
		}
		metrics.StreamEventsTotal.WithLabelValues(string(ev.Type)).Inc()
		return writer.trySend(raw)
	}

	session, err := opener.OpenSession(ctx, target)
	if err != nil {
		slog.Error("Failed to open live session", "target", target, "error", err)
		sendEvent(domain.ErrorEvent(domain.StreamErrorMessage))
		metrics.StreamErrorsTotal.Inc()
		return
	}
	defer session.Close()

	sendEvent(domain.ConnectedEvent(target, session.Avatar()))

	// Reads are discarded; their only purpose is disconnect detection.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readerDone:
			return
		case ev, ok := <-session.Events():
			if !ok {
				slog.Warn("Live session ended upstream", "target", target)
				sendEvent(domain.ErrorEvent(domain.StreamErrorMessage))
				metrics.StreamErrorsTotal.Inc()
				return
			}
			if !sendEvent(ev) {
				slog.Warn("Disconnecting slow websocket client", "target", target)
				return
			}
		}
	}
}
