// Package scrape implements per-request page sessions on a target's live page.
//
// Each session owns one isolated tab derived from the shared browser context.
// Open navigates, verifies liveness and installs the in-page extractor: a 5s
// stats sampler and a mutation observer on the chat container, both relaying
// payloads to Go through a single CDP binding. Raw counter text is normalized
// on the Go side (stats.go) so the parsing is testable.
package scrape
