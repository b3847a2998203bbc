// Package segmenter turns extracted document spans into bounded,
// boundary-aligned passages.
package segmenter

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
)

// DefaultCoherenceThreshold is the minimum mean pairwise sentence
// similarity for a multi-sentence passage to be accepted when an
// embedding provider is available.
const DefaultCoherenceThreshold = 0.35

// Segmenter splits paragraph spans into passages within configured
// length bounds, never breaking mid-sentence or mid-word.
type Segmenter struct {
	minLength          int
	maxLength          int
	coherenceThreshold float64
	embedder           driven.EmbeddingService
}

// Option configures the segmenter.
type Option func(*Segmenter)

// WithBounds sets the passage length bounds in characters.
func WithBounds(minLength, maxLength int) Option {
	return func(s *Segmenter) {
		if minLength > 0 {
			s.minLength = minLength
		}
		if maxLength > 0 {
			s.maxLength = maxLength
		}
	}
}

// WithCoherenceThreshold sets the minimum coherence score.
func WithCoherenceThreshold(threshold float64) Option {
	return func(s *Segmenter) {
		if threshold > 0 {
			s.coherenceThreshold = threshold
		}
	}
}

// WithEmbedder enables semantic coherence filtering. Without it,
// acceptance uses structural criteria only.
func WithEmbedder(e driven.EmbeddingService) Option {
	return func(s *Segmenter) { s.embedder = e }
}

// New creates a segmenter with the given options.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		minLength:          domain.DefaultMinPassageLength,
		maxLength:          domain.DefaultMaxPassageLength,
		coherenceThreshold: DefaultCoherenceThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Degenerate bounds fall back to defaults
	if s.minLength >= s.maxLength {
		s.minLength = domain.DefaultMinPassageLength
		s.maxLength = domain.DefaultMaxPassageLength
	}

	return s
}

// candidate is a passage-sized slice of the extracted text stream.
type candidate struct {
	text  string
	start int
	end   int
	span  domain.Span
}

// Segment produces passages from an extraction. Candidates outside the
// length bounds, not aligned to word boundaries, overlapping an earlier
// candidate, or below the coherence threshold are dropped.
func (s *Segmenter) Segment(ctx context.Context, ext *domain.Extraction, sourcePath string) ([]domain.Passage, error) {
	if ext == nil {
		return nil, domain.ErrInvalidInput
	}

	var candidates []candidate
	for _, span := range ext.Spans {
		trimmed := strings.TrimSpace(span.Text)
		if len(trimmed) < s.minLength {
			continue
		}

		if len(span.Text) <= s.maxLength {
			candidates = append(candidates, candidate{
				text:  span.Text,
				start: span.Start,
				end:   span.End,
				span:  span,
			})
			continue
		}

		candidates = append(candidates, s.packSentences(span)...)
	}

	lastEnd := -1
	passages := make([]domain.Passage, 0, len(candidates))
	now := time.Now()

	for _, c := range candidates {
		// De-duplicate by offset range; the earlier candidate wins.
		if c.start < lastEnd {
			continue
		}
		if !boundaryAligned(ext.Text, c.start, c.end) {
			continue
		}
		if !s.coherent(ctx, c.text) {
			continue
		}

		passages = append(passages, domain.Passage{
			ID:            uuid.New().String(),
			Text:          c.text,
			SourceFile:    sourcePath,
			FileType:      ext.Meta.FileType,
			PageNumber:    c.span.Page,
			LineNumber:    c.span.Line,
			Section:       c.span.Section,
			DocumentTitle: ext.Meta.Title,
			Author:        ext.Meta.Author,
			StartChar:     c.start,
			EndChar:       c.end,
			ExtractedAt:   now,
		})
		lastEnd = c.end
	}

	return passages, nil
}

// packSentences splits an over-long span into sentence runs that fit
// the length bounds. Offsets are tracked within the span so passage
// text is always an exact slice of the extracted stream.
func (s *Segmenter) packSentences(span domain.Span) []candidate {
	sentences := splitSentences(span.Text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		out    []candidate
		cursor int
		packed = -1 // start offset of the open run, -1 when none
		end    int
	)

	flush := func() {
		if packed < 0 {
			return
		}
		text := span.Text[packed:end]
		if len(text) >= s.minLength && len(text) <= s.maxLength {
			out = append(out, candidate{
				text:  text,
				start: span.Start + packed,
				end:   span.Start + end,
				span:  span,
			})
		}
		packed = -1
	}

	for _, sentence := range sentences {
		idx := strings.Index(span.Text[cursor:], sentence)
		if idx < 0 {
			continue
		}
		sentStart := cursor + idx
		sentEnd := sentStart + len(sentence)
		cursor = sentEnd

		if packed >= 0 && sentEnd-packed > s.maxLength {
			flush()
		}
		if packed < 0 {
			packed = sentStart
		}
		end = sentEnd
	}
	flush()

	return out
}

// sentenceEnd matches terminal punctuation followed by whitespace.
var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// splitSentences splits text on terminal punctuation, keeping the
// punctuation with its sentence.
func splitSentences(text string) []string {
	locs := sentenceEnd.FindAllStringIndex(text, -1)

	var out []string
	prev := 0
	for _, loc := range locs {
		// Slice up to the end of the punctuation run, excluding the
		// trailing whitespace.
		end := loc[1]
		for end > loc[0] && isSpaceByte(text[end-1]) {
			end--
		}
		if s := strings.TrimSpace(text[prev:end]); s != "" {
			out = append(out, s)
		}
		prev = loc[1]
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// boundaryAligned reports whether [start, end) neither starts nor ends
// mid-word within the full text stream.
func boundaryAligned(full string, start, end int) bool {
	if start < 0 || end > len(full) || start >= end {
		return false
	}
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(full[:start])
		if !isBoundaryRune(r) {
			return false
		}
	}
	if end < len(full) {
		r, _ := utf8.DecodeRuneInString(full[end:])
		if !isBoundaryRune(r) {
			return false
		}
	}
	return true
}

// isBoundaryRune reports whether a rune can legitimately border a
// passage: whitespace or punctuation, but never a letter or digit.
func isBoundaryRune(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

// coherent scores a multi-sentence candidate by mean pairwise cosine
// similarity of its sentence embeddings. Single sentences pass, and an
// unavailable embedder degrades to structural acceptance.
func (s *Segmenter) coherent(ctx context.Context, text string) bool {
	if s.embedder == nil {
		return true
	}

	sentences := splitSentences(text)
	if len(sentences) < 2 {
		return true
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, sentences)
	if err != nil || len(embeddings) < 2 {
		return true
	}

	var (
		total float64
		pairs int
	)
	for i := 0; i < len(embeddings); i++ {
		for j := i + 1; j < len(embeddings); j++ {
			total += cosine(embeddings[i], embeddings[j])
			pairs++
		}
	}
	if pairs == 0 {
		return true
	}
	return total/float64(pairs) >= s.coherenceThreshold
}

// cosine computes cosine similarity between two vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
