package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileType returns the format this extractor handles.
func (e *Extractor) FileType() domain.FileType {
	return domain.FileTypeText
}


// Extract reads a text file and splits it into paragraph spans.
// Paragraphs are separated by blank lines; spans carry 1-based line
// numbers within the extracted stream.
func (e *Extractor) Extract(_ context.Context, path string) (*domain.Extraction, error) {
	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}

	text, spans := paragraphSpans(content)

	return &domain.Extraction{
		Text:  text,
		Spans: spans,
		Meta: domain.DocumentMeta{
			Title:    domain.TitleFromPath(path),
			FileType: domain.FileTypeText,
		},
	}, nil
}

// readTextFile reads a file decoding UTF-8 first and Latin-1 as a
// fallback. Both failing is a decode error; the caller skips the file.
func readTextFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if utf8.Valid(raw) {
		return normaliseNewlines(string(raw)), nil
	}

	// Latin-1 maps every byte to the code point of the same value,
	// so the fallback cannot itself fail; reject control-heavy binary
	// content instead of producing garbage passages.
	if looksBinary(raw) {
		return "", fmt.Errorf("%w: %s", domain.ErrDecode, path)
	}

	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return normaliseNewlines(string(runes)), nil
}

// looksBinary reports whether the content contains NUL bytes, the usual
// marker of non-text data.
func looksBinary(raw []byte) bool {
	for _, b := range raw {
		if b == 0 {
			return true
		}
	}
	return false
}

// normaliseNewlines converts Windows and old Mac line endings to \n.
func normaliseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// paragraphSpans splits content on blank lines and rebuilds a clean text
// stream where each span's offsets are exact.
func paragraphSpans(content string) (string, []domain.Span) {
	var (
		b     strings.Builder
		spans []domain.Span
	)

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(para)

		spans = append(spans, domain.Span{
			Text:  para,
			Line:  lineAt(b.String(), start),
			Start: start,
			End:   b.Len(),
		})
	}

	return b.String(), spans
}

// lineAt returns the 1-based line number of an offset within text.
func lineAt(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return strings.Count(text[:offset], "\n") + 1
}
