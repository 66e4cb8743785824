package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/plexy44/doplen/internal/domain"
	"github.com/plexy44/doplen/internal/metrics"
)

// Options configures the shared browser engine.
type Options struct {
	// Username and Password feed the interactive login fallback. May be empty
	// when a persisted cookie session is expected to carry authentication.
	Username string
	Password string

	// ChromePath overrides the engine binary discovered on PATH.
	ChromePath string
	Headless   bool
}

// Manager owns the process-wide browser instance and its authenticated
// session. Page sessions derive their tabs from the context it hands out.
type Manager struct {
	opts  Options
	store domain.CredentialStore

	mu            sync.Mutex
	state         AuthState
	initErr       error
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

func NewManager(opts Options, store domain.CredentialStore) *Manager {
	return &Manager{
		opts:  opts,
		store: store,
		state: StateNoSession,
	}
}

// Acquire returns the authenticated browser context, launching the engine and
// running the authentication flow on first call. Concurrent first-callers
// serialize on the manager lock, so the engine launches exactly once. A
// failed initialization is sticky: every later call fails fast.
func (m *Manager) Acquire(ctx context.Context) (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateAuthenticated {
		return m.browserCtx, nil
	}
	if m.state == StateFatal {
		return nil, fmt.Errorf("%w: %v", domain.ErrBrowserUnavailable, m.initErr)
	}

	if err := m.initialize(ctx); err != nil {
		m.initErr = err
		m.state = StateFatal
		return nil, fmt.Errorf("%w: %v", domain.ErrBrowserUnavailable, err)
	}
	return m.browserCtx, nil
}

// Ready reports whether the browser is up and authenticated.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated
}

// State returns the current authentication state.
func (m *Manager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close tears down the engine. Best-effort, only called at process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserCancel != nil {
		m.browserCancel()
		m.browserCancel = nil
	}
	if m.allocCancel != nil {
		m.allocCancel()
		m.allocCancel = nil
	}
	slog.Info("Browser engine stopped")
}

// initialize launches the engine and runs the authentication flow. Callers
// hold m.mu.
func (m *Manager) initialize(ctx context.Context) error {
	if m.browserCtx == nil {
		if err := m.launch(); err != nil {
			return fmt.Errorf("failed to launch browser engine: %w", err)
		}
	}

	flow := &authFlow{
		store:    m.store,
		username: m.opts.Username,
		password: m.opts.Password,
		inject:   m.injectCookies,
		probe:    m.probeLoggedIn,
		login:    m.performLogin,
		export:   m.exportCookies,
		observe:  func(s AuthState) { m.state = s },
	}
	return flow.run(ctx)
}

func (m *Manager) launch() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if m.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(m.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force the engine process to start now so launch failures surface here
	// rather than on the first stream request.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return err
	}

	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	m.allocCancel = allocCancel
	metrics.BrowserLaunchesTotal.Inc()
	slog.Info("Browser engine launched", "headless", m.opts.Headless)
	return nil
}
