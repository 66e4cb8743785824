// Package domain defines the core domain types and interfaces.
//
// This package contains the live event union (event.go), sentinel errors
// (errors.go) and cross-cutting interfaces (domain.go). No implementation
// code - just contracts. Prevents circular imports by keeping interfaces
// on the consumer side.
package domain
