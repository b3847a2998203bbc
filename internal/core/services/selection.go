package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driving"
	"github.com/custodia-labs/passage-cli/internal/logger"
)

// Ensure SelectionService implements the interface.
var _ driving.Explorer = (*SelectionService)(nil)

// Default context window in words.
const (
	DefaultContextWords     = 400
	DefaultContextTolerance = 50
)

// DefaultRelatedCount is how many related passages are returned when the
// caller does not ask for a specific number.
const DefaultRelatedCount = 2

// SelectionConfig holds the tunable parts of passage selection.
type SelectionConfig struct {
	// HistoryDays is the exclusion window for recently shown passages
	// (0 = default 30).
	HistoryDays int

	// WidenedHistoryDays is the window used for the single retry when
	// nothing is eligible inside HistoryDays (0 = default 60).
	WidenedHistoryDays int

	// ContextWords is the target context size in words (0 = default 400).
	ContextWords int

	// ContextTolerance is the accepted deviation in words (0 = default 50).
	ContextTolerance int
}

func (c SelectionConfig) withDefaults() SelectionConfig {
	if c.HistoryDays <= 0 {
		c.HistoryDays = domain.DefaultHistoryDays
	}
	if c.WidenedHistoryDays <= 0 {
		c.WidenedHistoryDays = domain.DefaultWidenedHistoryDays
	}
	if c.ContextWords <= 0 {
		c.ContextWords = DefaultContextWords
	}
	if c.ContextTolerance <= 0 {
		c.ContextTolerance = DefaultContextTolerance
	}
	return c
}

// SelectionService serves interactive passage browsing: serendipitous
// selection, similarity lookup, context widening and saving.
type SelectionService struct {
	cfg      SelectionConfig
	passages driven.PassageStore
	sessions driven.SessionStore
	saved    driven.SavedStore
	usage    driven.UsageStore
	registry driven.ExtractorRegistry
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	now      func() time.Time

	mu    sync.Mutex
	shown map[string]struct{}

	degradedOnce sync.Once
}

// NewSelectionService creates the selection service. The embedder and
// vectors are optional; when nil, Related reports
// domain.ErrEmbeddingUnavailable and selection stays structural-only.
func NewSelectionService(
	cfg SelectionConfig,
	passages driven.PassageStore,
	sessions driven.SessionStore,
	saved driven.SavedStore,
	usage driven.UsageStore,
	registry driven.ExtractorRegistry,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
) *SelectionService {
	return &SelectionService{
		cfg:      cfg.withDefaults(),
		passages: passages,
		sessions: sessions,
		saved:    saved,
		usage:    usage,
		registry: registry,
		embedder: embedder,
		vectors:  vectors,
		now:      time.Now,
		shown:    make(map[string]struct{}),
	}
}

// NextPassage uniformly samples a passage not shown within the history
// window, widening the window once before reporting
// domain.ErrNoPassagesAvailable. The chosen passage lands in today's
// session record before it is returned, so a same-day repeat call never
// sees it again.
func (s *SelectionService) NextPassage(ctx context.Context) (*domain.Passage, error) {
	passage, err := s.sample(ctx, s.cfg.HistoryDays)
	if errors.Is(err, domain.ErrNoPassagesAvailable) {
		passage, err = s.sample(ctx, s.cfg.WidenedHistoryDays)
	}
	if err != nil {
		return nil, err
	}

	today := domain.SessionDate(s.now())
	if err := s.sessions.RecordShown(ctx, today, passage.ID); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}
	s.markShown(passage.ID)
	s.recordUsage(ctx, domain.UsageNext, passage.ID)
	return passage, nil
}

// sample draws one passage excluding everything shown within the last
// days calendar days.
func (s *SelectionService) sample(ctx context.Context, days int) (*domain.Passage, error) {
	cutoff := domain.SessionCutoff(s.now(), days)
	recent, err := s.sessions.ShownSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("read session history: %w", err)
	}

	exclude := make(map[string]struct{}, len(recent))
	for _, id := range recent {
		exclude[id] = struct{}{}
	}
	return s.passages.Random(ctx, exclude)
}

// Related returns up to k passages semantically closest to the given
// one, drawn from other source files and excluding passages already
// shown this interactive session. Similarity ties break towards the
// earliest extracted passage.
func (s *SelectionService) Related(ctx context.Context, passageID string, k int) ([]domain.Passage, error) {
	if k <= 0 {
		k = DefaultRelatedCount
	}

	base, err := s.passages.Get(ctx, passageID)
	if err != nil {
		return nil, err
	}

	if s.embedder == nil || s.vectors == nil {
		s.notifyDegraded()
		return nil, domain.ErrEmbeddingUnavailable
	}

	if base.Embedding == nil {
		if err := s.ensureEmbedding(ctx, base); err != nil {
			return nil, err
		}
	}

	// Search the whole index; filtering below discards same-file and
	// already-shown hits.
	hits, err := s.vectors.Search(ctx, base.Embedding, s.vectors.Len())
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	type scored struct {
		passage    domain.Passage
		similarity float64
	}
	candidates := make([]scored, 0, len(hits))
	for _, hit := range hits {
		if hit.PassageID == base.ID {
			continue
		}
		if s.wasShown(hit.PassageID) {
			continue
		}
		p, err := s.passages.Get(ctx, hit.PassageID)
		if errors.Is(err, domain.ErrNotFound) {
			// The index can lag the store after a re-index.
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.SourceFile == base.SourceFile {
			continue
		}
		candidates = append(candidates, scored{passage: *p, similarity: hit.Similarity})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].passage.ExtractedAt.Before(candidates[j].passage.ExtractedAt)
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	related := make([]domain.Passage, len(candidates))
	for i := range candidates {
		related[i] = candidates[i].passage
	}
	s.recordUsage(ctx, domain.UsageRelated, passageID)
	return related, nil
}

// ensureEmbedding lazily computes and persists the embedding for a
// passage indexed before embeddings were available.
func (s *SelectionService) ensureEmbedding(ctx context.Context, p *domain.Passage) error {
	vector, err := s.embedder.Embed(ctx, p.Text)
	if err != nil {
		s.notifyDegraded()
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vector) != s.embedder.Dimensions() {
		return fmt.Errorf("%w: got %d, want %d",
			domain.ErrEmbeddingDimension, len(vector), s.embedder.Dimensions())
	}
	if err := s.passages.SetEmbedding(ctx, p.ID, vector); err != nil {
		return fmt.Errorf("persist embedding: %w", err)
	}
	if err := s.vectors.Add(ctx, p.ID, vector); err != nil {
		return fmt.Errorf("index embedding: %w", err)
	}
	p.Embedding = vector
	return nil
}

// Context widens a passage to roughly targetWords words along the
// paragraph boundaries of its source document, capped by the document's
// own bounds.
func (s *SelectionService) Context(ctx context.Context, passageID string, targetWords int) (string, error) {
	p, err := s.passages.Get(ctx, passageID)
	if err != nil {
		return "", err
	}
	if targetWords <= 0 {
		targetWords = s.cfg.ContextWords
	}
	tolerance := s.cfg.ContextTolerance

	ext, err := s.registry.Extract(ctx, p.SourceFile)
	if err != nil {
		return "", fmt.Errorf("re-extract %s: %w", p.SourceFile, err)
	}

	lo, hi, ok := locateSpans(ext.Spans, p.StartChar, p.EndChar)
	if !ok {
		// The document changed since indexing; stored offsets no longer
		// land on a paragraph. The passage itself is all we can offer.
		logger.Debug("Stale offsets for passage %s in %s", p.ID, p.SourceFile)
		return p.Text, nil
	}

	words := wordCount(ext.Text[ext.Spans[lo].Start:ext.Spans[hi].End])
	for words < targetWords-tolerance {
		grew := false
		if lo > 0 {
			lo--
			words = wordCount(ext.Text[ext.Spans[lo].Start:ext.Spans[hi].End])
			grew = true
			if words >= targetWords-tolerance {
				break
			}
		}
		if hi < len(ext.Spans)-1 {
			hi++
			words = wordCount(ext.Text[ext.Spans[lo].Start:ext.Spans[hi].End])
			grew = true
		}
		if !grew {
			break
		}
	}

	s.recordUsage(ctx, domain.UsageContext, passageID)
	return ext.Text[ext.Spans[lo].Start:ext.Spans[hi].End], nil
}

// SavePassage adds a passage to the saved collection.
func (s *SelectionService) SavePassage(ctx context.Context, passageID string) error {
	if _, err := s.passages.Get(ctx, passageID); err != nil {
		return err
	}
	if err := s.saved.Save(ctx, passageID); err != nil {
		return fmt.Errorf("save passage: %w", err)
	}
	s.recordUsage(ctx, domain.UsageSave, passageID)
	return nil
}

// ResetSessions clears all session history, making every passage
// eligible for selection again.
func (s *SelectionService) ResetSessions(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	s.mu.Lock()
	s.shown = make(map[string]struct{})
	s.mu.Unlock()
	return nil
}

func (s *SelectionService) markShown(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown[id] = struct{}{}
}

func (s *SelectionService) wasShown(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.shown[id]
	return ok
}

// notifyDegraded emits the one-time structural-only notice. After it,
// degraded behaviour proceeds silently.
func (s *SelectionService) notifyDegraded() {
	s.degradedOnce.Do(func() {
		logger.Info("Embeddings unavailable, similarity browsing is disabled")
	})
}

func (s *SelectionService) recordUsage(ctx context.Context, action, passageID string) {
	if s.usage == nil {
		return
	}
	if err := s.usage.Record(context.WithoutCancel(ctx), action, passageID); err != nil {
		logger.Debug("Failed to record usage event %s: %v", action, err)
	}
}

// locateSpans finds the span range covering the offset window
// [start, end) within an ordered span sequence.
func locateSpans(spans []domain.Span, start, end int) (lo, hi int, ok bool) {
	lo, hi = -1, -1
	for i, span := range spans {
		if lo < 0 && start >= span.Start && start < span.End {
			lo = i
		}
		if end > span.Start && end <= span.End {
			hi = i
			break
		}
	}
	if lo < 0 || hi < 0 || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
