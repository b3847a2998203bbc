// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports).
//
// Core services depend only on these interfaces; adapters under
// internal/adapters and internal/extractors implement them.
package driven
