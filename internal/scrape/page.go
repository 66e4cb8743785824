package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/plexy44/doplen/internal/browser"
	"github.com/plexy44/doplen/internal/domain"
	"github.com/plexy44/doplen/internal/metrics"
)

const (
	liveURLFormat      = "https://www.tiktok.com/@%s/live"
	endedModalSelector = `[data-e2e="live-ended-modal"]`
	avatarSelector     = `[data-e2e="live-user-avatar"] img`
	// Generic modal close button used by the interstitial login prompt.
	interstitialCloseSelector = `[data-e2e="modal-close-inner-button"]`

	navigationTimeout = 30 * time.Second
	// chromedp has no networkidle wait condition; DOM-ready plus a settle
	// delay is the closest equivalent for this page.
	settleDelay      = 3 * time.Second
	interstitialWait = 3 * time.Second

	eventBuffer = 64
)

// PageSession is one isolated, instrumented tab on a target's live page.
// Exclusively owned by the publisher that opened it.
type PageSession struct {
	id     string
	target string
	avatar string

	tabCtx context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	events chan domain.Event

	closeOnce sync.Once
}

// Open creates a fresh tab from the shared browser context, navigates to the
// target's live page and installs the event extractor. Returns
// domain.ErrNotLive when the stream has ended or never existed.
func Open(ctx context.Context, browserCtx context.Context, target string) (*PageSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	s := &PageSession{
		id:     uuid.NewString(),
		target: target,
		tabCtx: tabCtx,
		cancel: cancel,
		events: make(chan domain.Event, eventBuffer),
	}

	if err := s.navigate(); err != nil {
		cancel()
		return nil, err
	}
	if err := s.instrument(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to instrument live page: %w", err)
	}

	metrics.ActivePageSessions.Inc()
	slog.Info("Live page session opened", "target", target, "session_id", s.id)
	return s, nil
}

// Avatar returns the presenter's avatar URL captured at open time.
func (s *PageSession) Avatar() string { return s.avatar }

// Events yields extracted events until the session closes.
func (s *PageSession) Events() <-chan domain.Event { return s.events }

// ID returns the session identifier used in logs.
func (s *PageSession) ID() string { return s.id }

// Close releases the tab and closes the event channel. Idempotent; close
// failures are logged by chromedp, never propagated.
func (s *PageSession) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()

		s.cancel()
		metrics.ActivePageSessions.Dec()
		slog.Info("Live page session closed", "target", s.target, "session_id", s.id)
	})
}

// emit delivers an event to the owner unless the session is closed. Delivery
// is best-effort: when the consumer is behind, the event is dropped.
func (s *PageSession) emit(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *PageSession) navigate() error {
	navCtx, navCancel := context.WithTimeout(s.tabCtx, navigationTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		emulation.SetUserAgentOverride(browser.UserAgent),
		chromedp.Navigate(fmt.Sprintf(liveURLFormat, s.target)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to load live page for @%s: %w", s.target, err)
	}

	s.dismissInterstitial()

	var isLive bool
	err = chromedp.Run(navCtx,
		chromedp.Evaluate(`!document.querySelector('`+endedModalSelector+`')`, &isLive),
	)
	if err != nil {
		return fmt.Errorf("liveness check failed for @%s: %w", s.target, err)
	}
	if !isLive {
		return domain.ErrNotLive
	}

	err = chromedp.Run(navCtx,
		chromedp.Evaluate(`document.querySelector('`+avatarSelector+`')?.src || ''`, &s.avatar),
	)
	if err != nil {
		return fmt.Errorf("avatar extraction failed for @%s: %w", s.target, err)
	}
	return nil
}

// dismissInterstitial closes the login prompt when one renders over the
// stream. Bounded wait; absence is the normal case and only logged at debug.
func (s *PageSession) dismissInterstitial() {
	dctx, dcancel := context.WithTimeout(s.tabCtx, interstitialWait)
	defer dcancel()

	if err := chromedp.Run(dctx, chromedp.Click(interstitialCloseSelector, chromedp.ByQuery)); err != nil {
		slog.Debug("No login interstitial to dismiss", "target", s.target)
	} else {
		slog.Info("Dismissed login interstitial", "target", s.target)
	}
}

// watchTabHealth closes the session when the tab crashes or detaches, so the
// owner observes a closed event channel instead of silence.
func (s *PageSession) watchTabHealth() {
	chromedp.ListenTarget(s.tabCtx, func(ev interface{}) {
		switch ev.(type) {
		case *inspector.EventTargetCrashed, *inspector.EventDetached:
			slog.Warn("Live page tab died", "target", s.target, "session_id", s.id)
			go s.Close()
		}
	})
}
