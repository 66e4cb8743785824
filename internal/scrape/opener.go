package scrape

import (
	"context"

	"github.com/plexy44/doplen/internal/domain"
)

// BrowserAcquirer hands out the shared, authenticated browser context.
// Satisfied by browser.Manager.
type BrowserAcquirer interface {
	Acquire(ctx context.Context) (context.Context, error)
}

// Opener is the low-level session opener: acquire the shared browser, open
// one instrumented page session on it.
type Opener struct {
	Browser BrowserAcquirer
}

func (o *Opener) OpenSession(ctx context.Context, target string) (domain.LiveSession, error) {
	browserCtx, err := o.Browser.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return Open(ctx, browserCtx, target)
}
