package markdown

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileType returns the format this extractor handles.
func (e *Extractor) FileType() domain.FileType {
	return domain.FileTypeMarkdown
}


// Extract converts a markdown file into paragraph spans with formatting
// simplified. Headings label the spans that follow them as their
// section; heading lines do not become spans themselves.
func (e *Extractor) Extract(_ context.Context, path string) (*domain.Extraction, error) {
	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}

	title := extractTitle(content)
	if title == "" {
		title = domain.TitleFromPath(path)
	}

	text, spans := paragraphSpans(content)

	return &domain.Extraction{
		Text:  text,
		Spans: spans,
		Meta: domain.DocumentMeta{
			Title:    title,
			Author:   extractAuthor(content),
			FileType: domain.FileTypeMarkdown,
		},
	}, nil
}

// Pre-compiled regular expressions for markdown stripping.
var (
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`[^`]+`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingLine  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	blockquote   = regexp.MustCompile(`(?m)^>\s*`)
	horizontal   = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	byLine       = regexp.MustCompile(`(?i)^\*{1,2}(?:by\s+)?([^*]+)\*{1,2}$`)
)

// extractTitle returns the first H1 heading, if any.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// extractAuthor looks for an emphasised byline in the lines directly
// after the title heading, e.g. "*by Jane Doe*" or "**Jane Doe**".
func extractAuthor(content string) string {
	lines := strings.Split(content, "\n")
	seenTitle := false
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			seenTitle = true
			continue
		}
		if !seenTitle || i > 10 {
			return ""
		}
		if m := byLine.FindStringSubmatch(line); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
		return ""
	}
	return ""
}

// stripInline removes inline markdown formatting from a paragraph.
func stripInline(s string) string {
	s = inlineCode.ReplaceAllString(s, "")
	s = images.ReplaceAllString(s, "")
	s = links.ReplaceAllString(s, "$1")
	s = blockquote.ReplaceAllString(s, "")
	s = listMarkers.ReplaceAllString(s, "")
	s = numberedList.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "*", "")
	return strings.TrimSpace(s)
}

// paragraphSpans splits markdown into paragraphs, drops code blocks and
// rules, tracks the current section from headings, and rebuilds a clean
// text stream with exact offsets and 1-based line numbers.
func paragraphSpans(content string) (string, []domain.Span) {
	content = codeBlock.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var (
		b       strings.Builder
		spans   []domain.Span
		section string
	)

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// The byline under the title is metadata, not body text.
		if len(spans) == 0 && byLine.MatchString(para) {
			continue
		}

		// A heading may sit on the first line of a paragraph block.
		if first, rest, _ := strings.Cut(para, "\n"); headingLine.MatchString(first) {
			m := headingLine.FindStringSubmatch(first)
			// Sub-headings become section labels; the H1 is the title.
			if len(m[1]) > 1 {
				section = stripInline(m[2])
			}
			para = strings.TrimSpace(rest)
			if para == "" {
				continue
			}
		}

		text := stripInline(para)
		if text == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(text)

		spans = append(spans, domain.Span{
			Text:    text,
			Line:    strings.Count(b.String()[:start], "\n") + 1,
			Section: section,
			Start:   start,
			End:     b.Len(),
		})
	}

	return b.String(), spans
}

// readTextFile reads a file decoding UTF-8 first and Latin-1 as a
// fallback.
func readTextFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if utf8.Valid(raw) {
		return string(raw), nil
	}

	for _, b := range raw {
		if b == 0 {
			return "", fmt.Errorf("%w: %s", domain.ErrDecode, path)
		}
	}

	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes), nil
}
