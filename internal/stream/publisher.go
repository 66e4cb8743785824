package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/plexy44/doplen/internal/domain"
	"github.com/plexy44/doplen/internal/metrics"
)

// State tracks the publisher lifecycle. Closed is terminal; a publisher is
// never reopened.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateStreaming
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Keeps intermediaries from timing out a quiet stream. Comment frames are
// invisible to EventSource clients.
const heartbeatInterval = 30 * time.Second

// Publisher wraps one page session in a cancellable push channel onto an SSE
// connection.
type Publisher struct {
	opener domain.SessionOpener
	target string
	clock  clockwork.Clock

	mu      sync.Mutex
	state   State
	closed  bool
	session domain.LiveSession

	teardownOnce sync.Once
}

func NewPublisher(opener domain.SessionOpener, target string, clock clockwork.Clock) *Publisher {
	return &Publisher{
		opener: opener,
		target: target,
		clock:  clock,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Serve opens the page session and relays its events onto w until the client
// disconnects (ctx done) or the upstream dies. Open failure produces exactly
// one generic in-band error event; internal detail stays in the logs. Blocks
// for the lifetime of the stream.
func (p *Publisher) Serve(ctx context.Context, w http.ResponseWriter) {
	flusher, _ := w.(http.Flusher)
	p.setState(StateOpening)
	defer p.teardown()

	session, err := p.opener.OpenSession(ctx, p.target)
	if err != nil {
		slog.Error("Failed to open live session", "target", p.target, "error", err)
		p.setState(StateFailed)
		p.send(w, flusher, domain.ErrorEvent(domain.StreamErrorMessage))
		metrics.StreamErrorsTotal.Inc()
		return
	}

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	p.setState(StateStreaming)
	p.send(w, flusher, domain.ConnectedEvent(p.target, session.Avatar()))

	heartbeat := p.clock.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnect is not an error.
			return

		case <-heartbeat.Chan():
			p.write(w, flusher, []byte(": keep-alive\n\n"))

		case ev, ok := <-session.Events():
			if !ok {
				// Upstream died mid-stream: one terminal error, then close.
				slog.Warn("Live session ended upstream", "target", p.target)
				p.send(w, flusher, domain.ErrorEvent(domain.StreamErrorMessage))
				metrics.StreamErrorsTotal.Inc()
				return
			}
			p.send(w, flusher, ev)
		}
	}
}

func (p *Publisher) setState(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

func (p *Publisher) send(w http.ResponseWriter, flusher http.Flusher, ev domain.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal event", "type", ev.Type, "error", err)
		return
	}
	metrics.StreamEventsTotal.WithLabelValues(string(ev.Type)).Inc()

	frame := make([]byte, 0, len(raw)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, raw...)
	frame = append(frame, '\n', '\n')
	p.write(w, flusher, frame)
}

// write pushes one frame, flushed immediately. Writes against a closed
// connection are silently swallowed: the client disconnect race is expected.
func (p *Publisher) write(w http.ResponseWriter, flusher http.Flusher, frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if _, err := w.Write(frame); err != nil {
		p.closed = true
		return
	}
	if flusher != nil {
		flusher.Flush()
	}
}

// teardown releases the page session and seals the connection. Idempotent.
func (p *Publisher) teardown() {
	p.teardownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.state = StateClosed
		session := p.session
		p.mu.Unlock()

		if session != nil {
			session.Close()
		}
	})
}
