package html

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>On Solitude &amp; Reading</title>
<meta name="author" content="Michel de Montaigne">
<style>body { color: red; }</style>
<script>console.log("ignored");</script>
</head>
<body>
<h1>Of Solitude</h1>
<p>We must reserve a back shop all our own, entirely free, in which to
establish our real liberty and principal retreat.</p>
<p>The greatest thing in the world is to know how to belong to oneself.</p>
<h2>Of Books</h2>
<p>I seek in books only to give myself pleasure by honest amusement.</p>
<!-- navigation -->
</body>
</html>`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "essays.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_Metadata(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, samplePage))
	require.NoError(t, err)

	assert.Equal(t, "On Solitude & Reading", ext.Meta.Title)
	assert.Equal(t, "Michel de Montaigne", ext.Meta.Author)
}

func TestExtract_SectionsFromHeadings(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, samplePage))
	require.NoError(t, err)

	require.Len(t, ext.Spans, 3)
	assert.Equal(t, "Of Solitude", ext.Spans[0].Section)
	assert.Equal(t, "Of Solitude", ext.Spans[1].Section)
	assert.Equal(t, "Of Books", ext.Spans[2].Section)
	assert.Contains(t, ext.Spans[2].Text, "honest amusement")
}

func TestExtract_OffsetsMatchText(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, samplePage))
	require.NoError(t, err)

	for _, s := range ext.Spans {
		assert.Equal(t, s.Text, ext.Text[s.Start:s.End])
	}
}

func TestExtract_StripsScriptAndStyle(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, samplePage))
	require.NoError(t, err)

	assert.NotContains(t, ext.Text, "console.log")
	assert.NotContains(t, ext.Text, "color: red")
	assert.NotContains(t, ext.Text, "navigation")
}

func TestExtract_TitleFallsBackToFilename(t *testing.T) {
	ext, err := New().Extract(context.Background(), writeSample(t, "<body><p>No title here at all.</p></body>"))
	require.NoError(t, err)

	assert.Equal(t, "essays", ext.Meta.Title)
}

func TestExtract_MetaAuthorReversedAttributes(t *testing.T) {
	page := `<head><meta content="M. Aurelius" name="author"></head><body><p>Text.</p></body>`
	ext, err := New().Extract(context.Background(), writeSample(t, page))
	require.NoError(t, err)

	assert.Equal(t, "M. Aurelius", ext.Meta.Author)
}
