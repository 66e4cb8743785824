// Package server implements the HTTP server using Echo framework.
//
// Routes: stream (SSE), ws (WebSocket), health, metrics, version. The stream
// handlers normalize and validate the target identifier before any browser
// work happens; a malformed identifier is a plain 400, everything after the
// headers go out is an in-band event.
package server
