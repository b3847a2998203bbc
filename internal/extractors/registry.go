// Package extractors routes files to the extractor matching their
// extension and hosts the concrete format implementations in its
// subpackages.
package extractors

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/passage-cli/internal/extractors/html"
	"github.com/custodia-labs/passage-cli/internal/extractors/markdown"
	"github.com/custodia-labs/passage-cli/internal/extractors/pdf"
	"github.com/custodia-labs/passage-cli/internal/extractors/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction to format-specific extractors. The
// extension-to-format mapping lives in domain.FileTypeForPath so the
// library scan and dispatch cannot drift apart.
type Registry struct {
	byType map[domain.FileType]driven.Extractor
}

// NewRegistry creates a registry over the given extractors. A later
// extractor claiming a format already registered wins.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	byType := make(map[domain.FileType]driven.Extractor)
	for _, e := range extractors {
		byType[e.FileType()] = e
	}
	return &Registry{byType: byType}
}

// Default creates a registry with all built-in extractors registered.
// The timeout applies to PDF extraction only; other formats complete in
// a single pass. pdfTimeout <= 0 keeps the built-in default.
func Default(pdfTimeout time.Duration) *Registry {
	var pdfOpts []pdf.Option
	if pdfTimeout > 0 {
		pdfOpts = append(pdfOpts, pdf.WithTimeout(pdfTimeout))
	}
	return NewRegistry(
		plaintext.New(),
		html.New(),
		markdown.New(),
		pdf.New(pdfOpts...),
	)
}

// ForPath returns the extractor responsible for the given path.
func (r *Registry) ForPath(path string) (driven.Extractor, error) {
	t, err := domain.FileTypeForPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, path)
	}
	e, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, path)
	}
	return e, nil
}

// Extract routes the file to its extractor and runs it.
func (r *Registry) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	e, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, path)
}
