// Package app composes the stream-opening path.
//
// Service decorates the raw page opener with the per-target session registry
// (bounding how many isolated pages scrape one target) and a circuit breaker
// that fails fast when navigation keeps breaking upstream. A target that is
// simply not live is a normal outcome and never trips the breaker.
package app
