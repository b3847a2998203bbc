package extractors

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

func TestForPath_RoutesByExtension(t *testing.T) {
	registry := Default(time.Minute)

	tests := []struct {
		path     string
		fileType domain.FileType
	}{
		{"/lib/essay.txt", domain.FileTypeText},
		{"/lib/notes.TEXT", domain.FileTypeText},
		{"/lib/page.html", domain.FileTypeHTML},
		{"/lib/page.htm", domain.FileTypeHTML},
		{"/lib/readme.md", domain.FileTypeMarkdown},
		{"/lib/guide.markdown", domain.FileTypeMarkdown},
		{"/lib/book.pdf", domain.FileTypePDF},
		{"/lib/Book.PDF", domain.FileTypePDF},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			e, err := registry.ForPath(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.fileType, e.FileType())
		})
	}
}

func TestForPath_CoversAllSupportedExtensions(t *testing.T) {
	registry := Default(time.Minute)

	for _, ext := range domain.SupportedExtensions() {
		e, err := registry.ForPath("/lib/doc" + ext)
		require.NoError(t, err, ext)
		assert.NotNil(t, e)
	}
}

func TestForPath_UnsupportedExtension(t *testing.T) {
	registry := Default(time.Minute)

	_, err := registry.ForPath("/lib/image.png")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = registry.ForPath("/lib/no-extension")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestExtract_EndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte("A single paragraph of text."), 0o644))

	ext, err := Default(time.Minute).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ext.Spans, 1)
	assert.Equal(t, "A single paragraph of text.", ext.Spans[0].Text)
}

func TestExtract_UnsupportedFile(t *testing.T) {
	_, err := Default(time.Minute).Extract(context.Background(), "/lib/archive.zip")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
