package pdf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

// mockRunner is a test double for CommandRunner. It serves per-page
// output keyed on the -f argument.
type mockRunner struct {
	pages map[string][]byte
	err   error
	calls int
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for i, a := range args {
		if a == "-f" && i+1 < len(args) {
			return m.pages[args[i+1]], nil
		}
	}
	return nil, errors.New("no page argument")
}

// newTestExtractor builds an extractor with external checks stubbed out.
func newTestExtractor(runner CommandRunner, pages int) *Extractor {
	e := New(WithRunner(runner))
	e.available = func() error { return nil }
	e.validate = func(string) error { return nil }
	e.pageCount = func(string) (int, error) { return pages, nil }
	return e
}

func TestExtract_PagesAndSpans(t *testing.T) {
	runner := &mockRunner{pages: map[string][]byte{
		"1": []byte("A Study in Scarlet\n\nIn the year 1878 I took my degree.\n"),
		"2": []byte("The campaign brought honours to many.\n\nTo me it brought misfortune.\n"),
	}}

	ext, err := newTestExtractor(runner, 2).Extract(context.Background(), "/books/study.pdf")
	require.NoError(t, err)

	require.Len(t, ext.Spans, 4)
	assert.Equal(t, 1, ext.Spans[0].Page)
	assert.Equal(t, 1, ext.Spans[1].Page)
	assert.Equal(t, 2, ext.Spans[2].Page)
	assert.Equal(t, 2, ext.Spans[3].Page)

	for _, s := range ext.Spans {
		assert.Equal(t, s.Text, ext.Text[s.Start:s.End])
	}

	assert.Equal(t, "A Study in Scarlet", ext.Meta.Title)
	assert.Equal(t, domain.FileTypePDF, ext.Meta.FileType)
}

func TestExtract_TitleFallsBackToFilename(t *testing.T) {
	runner := &mockRunner{pages: map[string][]byte{"1": []byte("")}}

	ext, err := newTestExtractor(runner, 1).Extract(context.Background(), "/books/lost_papers.pdf")
	require.NoError(t, err)

	assert.Equal(t, "lost papers", ext.Meta.Title)
}

func TestExtract_TimeoutReturnsPartial(t *testing.T) {
	runner := &mockRunner{pages: map[string][]byte{
		"1": []byte("Page one text goes here.\n"),
		"2": []byte("Page two text goes here.\n"),
		"3": []byte("Page three text goes here.\n"),
	}}

	e := newTestExtractor(runner, 3)
	e.timeout = 10 * time.Second

	// Each clock reading advances six seconds; the budget expires
	// before page three.
	base := time.Now()
	var ticks int
	e.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * 6 * time.Second)
	}

	ext, err := e.Extract(context.Background(), "/books/slow.pdf")
	require.Error(t, err)

	var timeoutErr *domain.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "/books/slow.pdf", timeoutErr.Path)
	assert.Positive(t, timeoutErr.LastPage)
	assert.Less(t, timeoutErr.LastPage, 3)

	// Completed pages survive.
	require.NotNil(t, ext)
	assert.NotEmpty(t, ext.Spans)
}

func TestExtract_CancelledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	runner := &mockRunner{pages: map[string][]byte{
		"1": []byte("First page.\n"),
		"2": []byte("Second page.\n"),
	}}

	e := newTestExtractor(runner, 2)
	orig := e.now
	e.now = func() time.Time {
		cancel() // fires after page one's budget check
		return orig()
	}

	ext, err := e.Extract(ctx, "/books/partial.pdf")
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, ext)
	assert.LessOrEqual(t, len(ext.Spans), 1)
}

func TestExtract_InvalidPDF(t *testing.T) {
	e := newTestExtractor(&mockRunner{}, 1)
	e.validate = func(string) error { return errors.New("corrupt xref table") }

	_, err := e.Extract(context.Background(), "/books/corrupt.pdf")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestExtract_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	_, err := newTestExtractor(runner, 1).Extract(context.Background(), "/books/any.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestExtract_ToolMissing(t *testing.T) {
	e := newTestExtractor(&mockRunner{}, 1)
	e.available = func() error { return ErrPDFToolNotFound }

	_, err := e.Extract(context.Background(), "/books/any.pdf")
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}
