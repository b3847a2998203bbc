package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# The Art of Walking

*by Henry Thoreau*

I wish to speak a word for Nature, for absolute freedom and wildness.

## Sauntering

I have met with but one or two persons who understood the art of
Walking, that is, of taking walks.

Some [references](https://example.org/walking) say the word derives
from **idle people** who roved about the country.

## Fields

` + "```go\nfunc ignored() {}\n```" + `

When we walk, we naturally go to the fields and woods.
`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "walking.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_TitleAndAuthor(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "The Art of Walking", ext.Meta.Title)
	assert.Equal(t, "Henry Thoreau", ext.Meta.Author)
}

func TestExtract_SectionsFromSubheadings(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, sampleDoc))
	require.NoError(t, err)

	require.Len(t, ext.Spans, 4)
	assert.Equal(t, "", ext.Spans[0].Section)
	assert.Equal(t, "Sauntering", ext.Spans[1].Section)
	assert.Equal(t, "Sauntering", ext.Spans[2].Section)
	assert.Equal(t, "Fields", ext.Spans[3].Section)
}

func TestExtract_StripsInlineFormatting(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, sampleDoc))
	require.NoError(t, err)

	assert.Contains(t, ext.Spans[2].Text, "references say")
	assert.Contains(t, ext.Spans[2].Text, "idle people")
	assert.NotContains(t, ext.Text, "https://example.org")
	assert.NotContains(t, ext.Text, "func ignored")
}

func TestExtract_OffsetsAndLines(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, sampleDoc))
	require.NoError(t, err)

	for _, s := range ext.Spans {
		assert.Equal(t, s.Text, ext.Text[s.Start:s.End])
		assert.Positive(t, s.Line)
	}
	assert.Equal(t, 1, ext.Spans[0].Line)
	assert.Greater(t, ext.Spans[1].Line, ext.Spans[0].Line)
}

func TestExtract_TitleFallsBackToFilename(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, "No headings in this file at all.\n"))
	require.NoError(t, err)

	assert.Equal(t, "walking", ext.Meta.Title)
	assert.Equal(t, "", ext.Meta.Author)
}

func TestExtract_HeadingAttachedToParagraph(t *testing.T) {
	doc := "## Chapter One\nThe paragraph starts right under the heading.\n"
	ext, err := New().Extract(context.Background(), writeSample(t, doc))
	require.NoError(t, err)

	require.Len(t, ext.Spans, 1)
	assert.Equal(t, "Chapter One", ext.Spans[0].Section)
	assert.Equal(t, "The paragraph starts right under the heading.", ext.Spans[0].Text)
}
