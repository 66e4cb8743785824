package domain

import "context"

// Cookie is one record of the persisted authentication session. The store
// treats the full set as an opaque blob; only the browser layer interprets
// individual fields.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// CredentialStore persists the authentication cookie set between process runs.
type CredentialStore interface {
	Load() ([]Cookie, error)
	Save(cookies []Cookie) error
}

// LiveSession is one isolated, instrumented page on a target's live stream.
// It is exclusively owned by the publisher that opened it.
type LiveSession interface {
	// Avatar returns the presenter's avatar URL captured at open time.
	Avatar() string

	// Events yields extracted events until the session dies. The channel is
	// closed when the underlying page is gone.
	Events() <-chan Event

	// Close releases the browsing context. Idempotent.
	Close()
}

// SessionOpener opens an instrumented live session for a target identifier.
// Returns ErrNotLive when the target is not streaming.
type SessionOpener interface {
	OpenSession(ctx context.Context, target string) (LiveSession, error)
}
