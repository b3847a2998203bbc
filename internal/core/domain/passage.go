package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Default passage length bounds in characters.
const (
	DefaultMinPassageLength = 100
	DefaultMaxPassageLength = 420
)

// Passage represents a self-contained excerpt extracted from a document.
// It is the unit of display and the central persisted entity.
// A passage is immutable after creation except for lazy embedding population.
type Passage struct {
	// ID is the unique identifier, generated at creation and never reused.
	ID string

	// Text is the excerpt itself, bounded by the configured length limits.
	Text string

	// SourceFile is the absolute path of the document the passage came from.
	SourceFile string

	// FileType is the format of the source document.
	FileType FileType

	// PageNumber locates the passage within a PDF (1-based, 0 when unset).
	PageNumber int

	// LineNumber locates the passage within a text or Markdown file
	// (1-based, 0 when unset).
	LineNumber int

	// Section is the nearest heading for HTML and Markdown documents.
	Section string

	// Chapter is an optional chapter label.
	Chapter string

	// DocumentTitle is the best-effort title of the source document.
	DocumentTitle string

	// Author is the document author when metadata provides one.
	Author string

	// StartChar and EndChar are offsets within the source's extracted
	// text stream.
	StartChar int
	EndChar   int

	// Embedding is the vector representation, nil until computed.
	Embedding []float32

	// ExtractedAt is when the passage was created.
	ExtractedAt time.Time
}

// LocationMarker renders the single position marker for the passage's
// file type: page for PDFs, line for text and Markdown, section for HTML.
func (p *Passage) LocationMarker() string {
	switch {
	case p.PageNumber > 0:
		return fmt.Sprintf("Page %d", p.PageNumber)
	case p.LineNumber > 0:
		return fmt.Sprintf("Line %d", p.LineNumber)
	case p.Section != "":
		return "Section: " + p.Section
	default:
		return ""
	}
}

// Validate checks the passage invariants that hold independent of
// configuration: absolute source path and an ordered offset range.
func (p *Passage) Validate() error {
	if p.ID == "" || p.Text == "" {
		return ErrInvalidInput
	}
	if !filepath.IsAbs(p.SourceFile) {
		return fmt.Errorf("%w: source file %q is not absolute", ErrInvalidInput, p.SourceFile)
	}
	if p.StartChar >= p.EndChar {
		return fmt.Errorf("%w: offset range [%d, %d)", ErrInvalidInput, p.StartChar, p.EndChar)
	}
	if !p.FileType.IsValid() {
		return ErrUnsupportedType
	}
	return nil
}

// Extraction is the result of running a format extractor over one file.
type Extraction struct {
	// Text is the full extracted text stream. All span and passage
	// offsets are relative to it.
	Text string

	// Spans are the ordered paragraph-level units of the document.
	Spans []Span

	// Meta is the document-level metadata.
	Meta DocumentMeta
}

// Span is one paragraph-bounded unit of extracted text together with
// its location marker and offsets within the extraction's text stream.
type Span struct {
	// Text is the span content.
	Text string

	// Page is the 1-based PDF page the span came from (0 when unset).
	Page int

	// Line is the 1-based line the span starts on (0 when unset).
	Line int

	// Section is the heading the span falls under, when the format
	// exposes headings.
	Section string

	// Start and End are offsets within Extraction.Text.
	Start int
	End   int
}

// DocumentMeta holds best-effort document-level metadata.
type DocumentMeta struct {
	// Title comes from structural metadata, the first heading, or the
	// filename, in that priority order.
	Title string

	// Author comes from document metadata and may be empty.
	Author string

	// FileType is the detected document format.
	FileType FileType
}

// TitleFromPath derives a fallback title from a file name by trimming
// the extension and normalising separators.
func TitleFromPath(path string) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" {
		name = name[:len(name)-len(ext)]
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
