package driven

import (
	"context"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

// Extractor converts one document format into position-addressable text.
// Each extractor handles exactly one domain.FileType; the registry selects
// one per file by extension.
type Extractor interface {
	// FileType returns the single format this extractor handles.
	FileType() domain.FileType

	// Extract reads the file and produces the full text stream, the
	// ordered paragraph spans, and best-effort document metadata.
	// Extraction preserves document order. Long-running extractors
	// (PDF) observe ctx between pages and may return a partial
	// Extraction together with the context's error.
	Extract(ctx context.Context, path string) (*domain.Extraction, error)
}

// ExtractorRegistry routes a file path to the extractor for its format.
type ExtractorRegistry interface {
	// ForPath returns the extractor for the path's extension, or
	// domain.ErrUnsupportedType.
	ForPath(path string) (Extractor, error)

	// Extract is a convenience that dispatches and runs the extractor.
	Extract(ctx context.Context, path string) (*domain.Extraction, error)
}
