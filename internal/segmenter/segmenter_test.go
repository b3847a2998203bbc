package segmenter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

// mockEmbedder is a test double for the embedding service. Each call to
// EmbedBatch hands out vectors from the configured list in order.
type mockEmbedder struct {
	vectors [][]float32
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, 0, len(texts))
	for i := range texts {
		out = append(out, m.vectors[i%len(m.vectors)])
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// buildExtraction joins paragraphs into a text stream with span offsets,
// mirroring what the extractors produce.
func buildExtraction(paras ...string) *domain.Extraction {
	var b strings.Builder
	var spans []domain.Span
	for _, p := range paras {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(p)
		spans = append(spans, domain.Span{Text: p, Start: start, End: b.Len()})
	}
	return &domain.Extraction{
		Text:  b.String(),
		Spans: spans,
		Meta:  domain.DocumentMeta{Title: "Test Doc", Author: "A. Writer", FileType: domain.FileTypeText},
	}
}

var midParagraph = "The fox knows many things, but the hedgehog knows one big thing. " +
	"This old saying admits of many interpretations across the centuries of thought."

func TestSegment_ParagraphWithinBounds(t *testing.T) {
	ext := buildExtraction("Too short.", midParagraph)

	passages, err := New().Segment(context.Background(), ext, "/lib/fox.txt")
	require.NoError(t, err)

	require.Len(t, passages, 1)
	p := passages[0]
	assert.Equal(t, midParagraph, p.Text)
	assert.Equal(t, "/lib/fox.txt", p.SourceFile)
	assert.Equal(t, "Test Doc", p.DocumentTitle)
	assert.Equal(t, "A. Writer", p.Author)
	assert.Equal(t, domain.FileTypeText, p.FileType)
	assert.Equal(t, p.Text, ext.Text[p.StartChar:p.EndChar])
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.ExtractedAt.IsZero())
}

func TestSegment_LongParagraphPackedBySentence(t *testing.T) {
	var sentences []string
	for i := 0; i < 12; i++ {
		sentences = append(sentences, "Every long chapter eventually repeats the same quiet observation about time.")
	}
	long := strings.Join(sentences, " ")

	ext := buildExtraction(long)
	passages, err := New().Segment(context.Background(), ext, "/lib/long.txt")
	require.NoError(t, err)

	require.Greater(t, len(passages), 1)
	for _, p := range passages {
		assert.GreaterOrEqual(t, len(p.Text), domain.DefaultMinPassageLength)
		assert.LessOrEqual(t, len(p.Text), domain.DefaultMaxPassageLength)
		assert.Equal(t, p.Text, ext.Text[p.StartChar:p.EndChar])
		// Never mid-sentence: each passage ends at terminal punctuation.
		assert.True(t, strings.HasSuffix(p.Text, "."))
	}

	// Passages cover the paragraph in order without overlap.
	for i := 1; i < len(passages); i++ {
		assert.GreaterOrEqual(t, passages[i].StartChar, passages[i-1].EndChar)
	}
}

func TestSegment_OverlappingCandidatesDeduplicated(t *testing.T) {
	text := midParagraph
	ext := &domain.Extraction{
		Text: text,
		Spans: []domain.Span{
			{Text: text, Start: 0, End: len(text)},
			{Text: text[:len(text)-10], Start: 0, End: len(text) - 10},
		},
		Meta: domain.DocumentMeta{FileType: domain.FileTypeText},
	}

	passages, err := New().Segment(context.Background(), ext, "/lib/dup.txt")
	require.NoError(t, err)

	// The earlier, longer candidate wins.
	require.Len(t, passages, 1)
	assert.Equal(t, text, passages[0].Text)
}

func TestSegment_SpanMetadataPropagated(t *testing.T) {
	ext := buildExtraction(midParagraph)
	ext.Spans[0].Page = 7
	ext.Spans[0].Section = "Chapter One"

	passages, err := New().Segment(context.Background(), ext, "/lib/meta.pdf")
	require.NoError(t, err)

	require.Len(t, passages, 1)
	assert.Equal(t, 7, passages[0].PageNumber)
	assert.Equal(t, "Chapter One", passages[0].Section)
}

func TestSegment_CoherenceRejectsScatteredSentences(t *testing.T) {
	// Orthogonal sentence vectors give a mean pairwise similarity of
	// zero, below any positive threshold.
	embedder := &mockEmbedder{vectors: [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}}

	ext := buildExtraction(midParagraph)
	passages, err := New(WithEmbedder(embedder)).Segment(context.Background(), ext, "/lib/scattered.txt")
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestSegment_CoherenceAcceptsSimilarSentences(t *testing.T) {
	embedder := &mockEmbedder{vectors: [][]float32{{1, 1, 0}}}

	ext := buildExtraction(midParagraph)
	passages, err := New(WithEmbedder(embedder)).Segment(context.Background(), ext, "/lib/coherent.txt")
	require.NoError(t, err)
	assert.Len(t, passages, 1)
}

func TestSegment_EmbedderFailureDegradesToStructural(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("connection refused")}

	ext := buildExtraction(midParagraph)
	passages, err := New(WithEmbedder(embedder)).Segment(context.Background(), ext, "/lib/degraded.txt")
	require.NoError(t, err)
	assert.Len(t, passages, 1)
}

func TestSegment_CustomBounds(t *testing.T) {
	short := "A brief but complete thought lives here."
	ext := buildExtraction(short)

	passages, err := New(WithBounds(10, 100)).Segment(context.Background(), ext, "/lib/short.txt")
	require.NoError(t, err)
	assert.Len(t, passages, 1)

	passages, err = New().Segment(context.Background(), ext, "/lib/short.txt")
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestSegment_BoundaryBesideMultibytePunctuation(t *testing.T) {
	prefix := "An unfinished preamble trails off…"
	para := "A complete thought framed by curly punctuation sits in the middle here."
	full := prefix + para + "”"
	ext := &domain.Extraction{
		Text: full,
		Spans: []domain.Span{
			{Text: para, Start: len(prefix), End: len(prefix) + len(para)},
		},
		Meta: domain.DocumentMeta{FileType: domain.FileTypeText},
	}

	passages, err := New(WithBounds(10, 200)).Segment(context.Background(), ext, "/lib/quotes.txt")
	require.NoError(t, err)

	require.Len(t, passages, 1)
	assert.Equal(t, para, passages[0].Text)
	assert.Equal(t, para, full[passages[0].StartChar:passages[0].EndChar])
}

func TestSegment_NilExtraction(t *testing.T) {
	_, err := New().Segment(context.Background(), nil, "/lib/x.txt")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "simple sentences",
			text:     "First one. Second one! Third one?",
			expected: []string{"First one.", "Second one!", "Third one?"},
		},
		{
			name:     "ellipsis kept together",
			text:     "It trailed off... Then resumed.",
			expected: []string{"It trailed off...", "Then resumed."},
		},
		{
			name:     "no terminal punctuation",
			text:     "a fragment without an end",
			expected: []string{"a fragment without an end"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, splitSentences(tc.text))
		})
	}
}
