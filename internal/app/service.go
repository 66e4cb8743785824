package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/plexy44/doplen/internal/domain"
	"github.com/plexy44/doplen/internal/metrics"
)

const (
	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// Service is the session opener the dispatcher uses: raw opening plus the
// per-target cap and the navigation circuit breaker.
type Service struct {
	opener       domain.SessionOpener
	maxPerTarget int
	breaker      *gobreaker.CircuitBreaker

	mu     sync.Mutex
	active map[string]int
}

func NewService(opener domain.SessionOpener, maxPerTarget int) *Service {
	settings := gobreaker.Settings{
		Name:    "page-open",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Not-live targets and cancelled clients are normal outcomes,
			// not upstream failures.
			return err == nil ||
				errors.Is(err, domain.ErrNotLive) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Page-open circuit state changed", "from", from.String(), "to", to.String())
			metrics.OpenBreakerState.Set(breakerStateValue(to))
		},
	}

	return &Service{
		opener:       opener,
		maxPerTarget: maxPerTarget,
		breaker:      gobreaker.NewCircuitBreaker(settings),
		active:       make(map[string]int),
	}
}

// OpenSession opens an isolated page session for target, subject to the
// per-target cap and the circuit breaker. The returned session releases its
// registry slot on Close.
func (s *Service) OpenSession(ctx context.Context, target string) (domain.LiveSession, error) {
	if !s.reserve(target) {
		metrics.TargetCapRejectionsTotal.Inc()
		slog.Warn("Rejecting stream request: target cap reached", "target", target, "cap", s.maxPerTarget)
		return nil, domain.ErrTargetCapReached
	}

	res, err := s.breaker.Execute(func() (any, error) {
		return s.opener.OpenSession(ctx, target)
	})
	if err != nil {
		s.release(target)
		switch {
		case errors.Is(err, domain.ErrNotLive):
			metrics.PageSessionsOpenedTotal.WithLabelValues("not_live").Inc()
		default:
			metrics.PageSessionsOpenedTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	metrics.PageSessionsOpenedTotal.WithLabelValues("ok").Inc()
	return &trackedSession{
		LiveSession: res.(domain.LiveSession),
		release:     func() { s.release(target) },
	}, nil
}

// ActiveSessions returns the number of open page sessions for target.
func (s *Service) ActiveSessions(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[target]
}

func (s *Service) reserve(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[target] >= s.maxPerTarget {
		return false
	}
	s.active[target]++
	return true
}

func (s *Service) release(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[target] <= 1 {
		delete(s.active, target)
		return
	}
	s.active[target]--
}

// trackedSession gives a registry slot back exactly once, when the owning
// publisher closes the session.
type trackedSession struct {
	domain.LiveSession
	releaseOnce sync.Once
	release     func()
}

func (t *trackedSession) Close() {
	t.LiveSession.Close()
	t.releaseOnce.Do(t.release)
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
