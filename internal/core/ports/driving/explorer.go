package driving

import (
	"context"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

// Explorer is the core-facing API for browsing passages.
type Explorer interface {
	// NextPassage samples a passage not shown within the exclusion
	// window, widening the window once before reporting
	// domain.ErrNoPassagesAvailable. The chosen passage is recorded in
	// today's session history before it is returned.
	NextPassage(ctx context.Context) (*domain.Passage, error)

	// Related returns up to k passages semantically closest to the given
	// passage, drawn from other source files and excluding passages
	// already shown this interactive session. Returns
	// domain.ErrEmbeddingUnavailable when embeddings are disabled.
	Related(ctx context.Context, passageID string, k int) ([]domain.Passage, error)

	// Context widens a passage to roughly targetWords words along
	// paragraph boundaries, capped by the document's own bounds.
	// targetWords <= 0 selects the configured default.
	Context(ctx context.Context, passageID string, targetWords int) (string, error)

	// SavePassage adds a passage to the saved collection.
	SavePassage(ctx context.Context, passageID string) error

	// ResetSessions clears all session history.
	ResetSessions(ctx context.Context) error
}
