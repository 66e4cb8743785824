// Package stream delivers live events to clients.
//
// The SSE publisher (publisher.go) owns one page session for its lifetime and
// serializes events as `data: <json>` frames, flushed per event. The
// websocket relay (ws.go) carries the identical JSON over a per-connection
// write goroutine. Both guarantee the connected acknowledgment precedes all
// other events and that teardown runs exactly once.
package stream
