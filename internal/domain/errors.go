package domain

import "errors"

var (
	// ErrNotLive means the target exists but is not currently streaming, or
	// the stream has ended. A normal outcome, not an upstream failure.
	ErrNotLive = errors.New("target is not live")

	// ErrTargetCapReached means the per-target concurrent session limit was hit.
	ErrTargetCapReached = errors.New("too many active sessions for target")

	// ErrBrowserUnavailable means the shared browser could not be acquired.
	ErrBrowserUnavailable = errors.New("browser unavailable")

	// ErrNoAuthPath means neither stored cookies nor configured credentials
	// produced an authenticated session. Fatal at startup.
	ErrNoAuthPath = errors.New("no authentication path available")
)

// StreamErrorMessage is the only diagnostic clients ever see for an upstream
// failure. Internal detail is logged, never surfaced.
const StreamErrorMessage = "User not found or is not live. Please check the username."
