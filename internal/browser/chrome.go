package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/plexy44/doplen/internal/domain"
)

// UserAgent is the client identification string applied to every tab. The
// default headless UA is a bot fingerprint the platform rejects.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const (
	homeURL  = "https://www.tiktok.com"
	loginURL = "https://www.tiktok.com/login/phone-or-email/email"

	loggedInSelector   = `[data-e2e="header-avatar"]`
	loginUsernameInput = `input[name="username"]`
	loginPasswordInput = `input[name="password"]`
	loginSubmitButton  = `button[data-e2e="login-button"]`

	loginFlowTimeout = 60 * time.Second
	// Closest approximation of a settled network after form submission.
	postSubmitSettle = 3 * time.Second

	// Fallback lifetime for cookies persisted without an expiry.
	defaultCookieTTL = 180 * 24 * time.Hour
)

// injectCookies writes the persisted cookie set into the engine's cookie jar.
// Tabs share the jar, so this happens once per authentication, not per page.
func (m *Manager) injectCookies(ctx context.Context, cookies []domain.Cookie) error {
	tab, cancel := chromedp.NewContext(m.browserCtx)
	defer cancel()

	return chromedp.Run(tab, chromedp.ActionFunc(func(ctx context.Context) error {
		injected := 0
		for _, ck := range cookies {
			expiry := cdp.TimeSinceEpoch(time.Now().Add(defaultCookieTTL))
			if ck.Expires > 0 {
				expiry = cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
			}
			path := ck.Path
			if path == "" {
				path = "/"
			}

			err := network.SetCookie(ck.Name, ck.Value).
				WithDomain(ck.Domain).
				WithPath(path).
				WithSecure(ck.Secure).
				WithHTTPOnly(ck.HTTPOnly).
				WithExpires(&expiry).
				Do(ctx)
			if err != nil {
				slog.Warn("Failed to set cookie", "name", ck.Name, "domain", ck.Domain, "error", err)
				continue
			}
			injected++
		}
		slog.Info("Session cookies injected", "count", injected, "total", len(cookies))
		return nil
	}))
}

// probeLoggedIn opens a scratch tab on the platform home page and waits for
// the DOM marker proving a logged-in state, bounded by timeout.
func (m *Manager) probeLoggedIn(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tab, cancel := chromedp.NewContext(m.browserCtx)
	defer cancel()
	tctx, tcancel := context.WithTimeout(tab, timeout)
	defer tcancel()

	return chromedp.Run(tctx,
		emulation.SetUserAgentOverride(UserAgent),
		chromedp.Navigate(homeURL),
		chromedp.WaitVisible(loggedInSelector, chromedp.ByQuery),
	)
}

// performLogin fills and submits the credential form. The caller verifies the
// resulting session with a probe.
func (m *Manager) performLogin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tab, cancel := chromedp.NewContext(m.browserCtx)
	defer cancel()
	tctx, tcancel := context.WithTimeout(tab, loginFlowTimeout)
	defer tcancel()

	slog.Info("Performing interactive login")
	return chromedp.Run(tctx,
		emulation.SetUserAgentOverride(UserAgent),
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(loginUsernameInput, chromedp.ByQuery),
		chromedp.SendKeys(loginUsernameInput, m.opts.Username, chromedp.ByQuery),
		chromedp.WaitVisible(loginPasswordInput, chromedp.ByQuery),
		chromedp.SendKeys(loginPasswordInput, m.opts.Password, chromedp.ByQuery),
		chromedp.Click(loginSubmitButton, chromedp.ByQuery),
		chromedp.Sleep(postSubmitSettle),
	)
}

// exportCookies reads the engine's cookie jar for persistence.
func (m *Manager) exportCookies(ctx context.Context) ([]domain.Cookie, error) {
	tab, cancel := chromedp.NewContext(m.browserCtx)
	defer cancel()

	var out []domain.Cookie
	err := chromedp.Run(tab, chromedp.ActionFunc(func(ctx context.Context) error {
		cks, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, ck := range cks {
			out = append(out, domain.Cookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Expires:  ck.Expires,
				HTTPOnly: ck.HTTPOnly,
				Secure:   ck.Secure,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}
