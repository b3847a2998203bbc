// Package pdf extracts text from PDF documents using the pdftotext
// command-line tool (part of poppler-utils), with pdfcpu providing
// page counting and structural validation.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// DefaultTimeout bounds wall-clock time spent on a single PDF.
const DefaultTimeout = 5 * time.Minute

// CommandRunner executes external commands. Abstracted for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands using os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor handles PDF documents page by page, which keeps memory flat
// on large files and lets cancellation and the time budget take effect
// between pages.
type Extractor struct {
	runner  CommandRunner
	timeout time.Duration

	// Injectable for tests.
	now       func() time.Time
	available func() error
	pageCount func(path string) (int, error)
	validate  func(path string) error
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithTimeout replaces the per-file wall-clock budget.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// New creates a new PDF extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		runner:    execRunner{},
		timeout:   DefaultTimeout,
		now:       time.Now,
		available: CheckAvailable,
		pageCount: api.PageCountFile,
		validate:  func(path string) error { return api.ValidateFile(path, nil) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileType returns the format this extractor handles.
func (e *Extractor) FileType() domain.FileType {
	return domain.FileTypePDF
}


// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific install guidance for
// the pdftotext dependency.
func InstallInstructions() string {
	return `pdftotext is required for PDF extraction.

Install it via your package manager:
  macOS:         brew install poppler
  Debian/Ubuntu: sudo apt install poppler-utils
  Fedora:        sudo dnf install poppler-utils`
}

// Extract converts a PDF into paragraph spans tagged with 1-based page
// numbers. When the wall-clock budget runs out or the context is
// cancelled mid-document, the spans gathered so far are returned
// alongside the error so completed pages are not lost.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	if err := e.available(); err != nil {
		return nil, err
	}
	if err := e.validate(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, path, err)
	}

	pages, err := e.pageCount(path)
	if err != nil {
		return nil, fmt.Errorf("%w: counting pages in %s: %v", domain.ErrParse, path, err)
	}

	var (
		b     strings.Builder
		spans []domain.Span
		title string
		start = e.now()
	)

	partial := func() *domain.Extraction {
		if title == "" {
			title = domain.TitleFromPath(path)
		}
		return &domain.Extraction{
			Text:  b.String(),
			Spans: spans,
			Meta:  domain.DocumentMeta{Title: title, FileType: domain.FileTypePDF},
		}
	}

	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return partial(), err
		}
		if elapsed := e.now().Sub(start); elapsed > e.timeout {
			return partial(), domain.NewTimeoutError(path, elapsed, page-1)
		}

		p := strconv.Itoa(page)
		out, err := e.runner.Run(ctx, "pdftotext", "-f", p, "-l", p, "-enc", "UTF-8", path, "-")
		if err != nil {
			return partial(), fmt.Errorf("pdftotext failed on page %d of %s: %w", page, path, err)
		}

		pageText := string(out)
		if title == "" {
			title = firstLine(pageText)
		}

		for _, para := range strings.Split(pageText, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			off := b.Len()
			b.WriteString(para)

			spans = append(spans, domain.Span{
				Text:  para,
				Page:  page,
				Start: off,
				End:   b.Len(),
			})
		}
	}

	return partial(), nil
}

// firstLine returns the first non-empty line of reasonable title length.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) <= 200 {
			return line
		}
	}
	return ""
}
