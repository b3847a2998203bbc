package html

import (
	"context"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileType returns the format this extractor handles.
func (e *Extractor) FileType() domain.FileType {
	return domain.FileTypeHTML
}


// Extract strips markup from an HTML file and yields paragraph spans.
// Headings do not become spans themselves; each heading labels the
// spans that follow it as their section.
func (e *Extractor) Extract(_ context.Context, path string) (*domain.Extraction, error) {
	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}

	title := extractTitle(content)
	if title == "" {
		title = domain.TitleFromPath(path)
	}
	author := extractAuthor(content)
	headings := extractHeadings(content)

	text, spans := paragraphSpans(stripHTML(content), headings)

	return &domain.Extraction{
		Text:  text,
		Spans: spans,
		Meta: domain.DocumentMeta{
			Title:    title,
			Author:   author,
			FileType: domain.FileTypeHTML,
		},
	}, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaAuthor    = regexp.MustCompile(`(?is)<meta[^>]+name=["']author["'][^>]+content=["']([^"']*)["']`)
	metaAuthorRev = regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']*)["'][^>]+name=["']author["']`)
	headingTag    = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockClose    = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	blockOpen     = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags        = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// extractTitle pulls the document title from the <title> tag.
func extractTitle(content string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(allTags.ReplaceAllString(matches[1], "")))
	}
	return ""
}

// extractAuthor pulls the author from a <meta name="author"> tag,
// accepting either attribute order.
func extractAuthor(content string) string {
	if matches := metaAuthor.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(matches[1]))
	}
	if matches := metaAuthorRev.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(matches[1]))
	}
	return ""
}

// extractHeadings returns heading texts in document order.
func extractHeadings(content string) []string {
	var headings []string
	for _, m := range headingTag.FindAllStringSubmatch(content, -1) {
		h := strings.TrimSpace(html.UnescapeString(allTags.ReplaceAllString(m[1], "")))
		if h != "" {
			headings = append(headings, h)
		}
	}
	return headings
}

// stripHTML removes markup and extracts readable text, keeping blank
// lines between block elements so paragraphs survive.
func stripHTML(content string) string {
	// Remove script, style, noscript, head, and svg sections entirely
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")

	// Remove HTML comments
	content = htmlComments.ReplaceAllString(content, "")

	// Block boundaries become paragraph breaks
	content = blockOpen.ReplaceAllString(content, "\n\n")
	content = blockClose.ReplaceAllString(content, "\n\n")

	// Line breaks and rules become single newlines
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	// Strip all remaining HTML tags
	content = allTags.ReplaceAllString(content, "")

	// Decode HTML entities
	content = html.UnescapeString(content)

	// Collapse runs of spaces, then runs of blank lines
	content = multiSpaces.ReplaceAllString(content, " ")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return content
}

// paragraphSpans splits stripped text on blank lines, attaches section
// labels from headings, and rebuilds a clean text stream with exact
// offsets. Paragraphs matching a pending heading update the current
// section instead of becoming spans.
func paragraphSpans(content string, headings []string) (string, []domain.Span) {
	var (
		b       strings.Builder
		spans   []domain.Span
		section string
		next    int
	)

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if next < len(headings) && strings.EqualFold(para, headings[next]) {
			section = headings[next]
			next++
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(para)

		spans = append(spans, domain.Span{
			Text:    para,
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
