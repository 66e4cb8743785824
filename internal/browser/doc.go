// Package browser owns the shared headless Chrome instance and its
// authenticated session.
//
// One engine serves the whole process. Acquire launches it on first use and
// drives the authentication flow: persisted cookies are probed first, with
// interactive credential login as the fallback. The flow is an explicit state
// machine (auth.go) so fallbacks are auditable rather than implied by error
// nesting. A process with no path to an authenticated browser cannot serve
// anything, so initialization failure is terminal.
package browser
