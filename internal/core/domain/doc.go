// Package domain defines the core business entities for the passage explorer.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Passage: A bounded, boundary-aligned excerpt from a document
//   - Extraction: The ordered text spans produced by a format extractor
//   - IndexingStatus: Per-file indexing state
//   - SessionDate: Calendar-day granularity for selection history
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
