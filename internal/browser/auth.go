package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plexy44/doplen/internal/domain"
	"github.com/plexy44/doplen/internal/metrics"
	"github.com/plexy44/doplen/internal/platform/retry"
)

// AuthState tracks progress through the authentication flow.
type AuthState int

const (
	StateNoSession AuthState = iota
	StateProbing
	StateLoggingIn
	StateAuthenticated
	StateFatal
)

func (s AuthState) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateProbing:
		return "probing"
	case StateLoggingIn:
		return "logging_in"
	case StateAuthenticated:
		return "authenticated"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

const (
	cookieProbeTimeout = 10 * time.Second
	loginProbeTimeout  = 15 * time.Second
	probeAttempts      = 2
	probeRetryBackoff  = 1 * time.Second
)

// authFlow is the authentication state machine, decoupled from chromedp via
// function fields so the transitions are testable without a browser.
type authFlow struct {
	store    domain.CredentialStore
	username string
	password string

	inject func(ctx context.Context, cookies []domain.Cookie) error
	probe  func(ctx context.Context, timeout time.Duration) error
	login  func(ctx context.Context) error
	export func(ctx context.Context) ([]domain.Cookie, error)

	// observe receives every state transition.
	observe func(AuthState)
}

func (f *authFlow) set(state AuthState) {
	slog.Info("Authentication state changed", "state", state.String())
	if f.observe != nil {
		f.observe(state)
	}
}

// run drives NoSession -> Probing -> {Authenticated | LoggingIn} ->
// Authenticated | Fatal. Returns nil only from the Authenticated state.
func (f *authFlow) run(ctx context.Context) error {
	f.set(StateNoSession)

	if f.tryCookieSession(ctx) {
		f.set(StateAuthenticated)
		return nil
	}

	f.set(StateLoggingIn)
	if f.username == "" || f.password == "" {
		f.set(StateFatal)
		return fmt.Errorf("%w: no valid cookie session and no credentials configured", domain.ErrNoAuthPath)
	}

	if err := f.login(ctx); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "fail").Inc()
		f.set(StateFatal)
		return fmt.Errorf("interactive login failed: %w", err)
	}
	if err := f.probe(ctx, loginProbeTimeout); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "fail").Inc()
		f.set(StateFatal)
		return fmt.Errorf("logged-in marker not found after login: %w", err)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	f.persistSession(ctx)

	f.set(StateAuthenticated)
	return nil
}

// tryCookieSession attempts the fast path: load persisted cookies, inject
// them and probe for the logged-in marker. Any failure falls through to the
// login path without being fatal.
func (f *authFlow) tryCookieSession(ctx context.Context) bool {
	cookies, err := f.store.Load()
	if err != nil {
		slog.Info("No reusable cookie session", "error", err)
		return false
	}

	if err := f.inject(ctx, cookies); err != nil {
		slog.Warn("Failed to inject persisted cookies", "error", err)
		metrics.AuthAttemptsTotal.WithLabelValues("cookie", "fail").Inc()
		return false
	}

	f.set(StateProbing)
	_, err = retry.Do(ctx, retry.Policy{
		MaxAttempts:    probeAttempts,
		InitialBackoff: probeRetryBackoff,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Logged-in probe failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}, func() (struct{}, error) {
		return struct{}{}, f.probe(ctx, cookieProbeTimeout)
	})
	if err != nil {
		slog.Info("Cookie session rejected, falling back to login", "error", err)
		metrics.AuthAttemptsTotal.WithLabelValues("cookie", "fail").Inc()
		return false
	}

	metrics.AuthAttemptsTotal.WithLabelValues("cookie", "ok").Inc()
	slog.Info("Cookie session reused")
	return true
}

// persistSession exports the fresh cookie set back to the store so future
// process starts can skip the login. Best-effort: failures are logged only.
func (f *authFlow) persistSession(ctx context.Context) {
	cookies, err := f.export(ctx)
	if err != nil {
		slog.Warn("Failed to export session cookies", "error", err)
		return
	}
	if err := f.store.Save(cookies); err != nil {
		slog.Warn("Failed to persist session cookies", "error", err)
		return
	}
	slog.Info("Session cookies persisted", "count", len(cookies))
}
