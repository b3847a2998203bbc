// Package driving provides interfaces for primary/inbound ports.
//
// These are the operations the UI and CLI layers invoke. The interfaces
// are implemented by core services and consumed by adapters under
// cmd/ and internal/adapters/driving.
package driving
