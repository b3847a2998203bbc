package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestExtract_Paragraphs(t *testing.T) {
	path := writeTemp(t, "essay.txt", []byte("First paragraph here.\n\nSecond paragraph\nspans two lines.\n\n\n\nThird."))

	ext, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, ext.Spans, 3)
	assert.Equal(t, "First paragraph here.", ext.Spans[0].Text)
	assert.Equal(t, "Second paragraph\nspans two lines.", ext.Spans[1].Text)
	assert.Equal(t, "Third.", ext.Spans[2].Text)

	// Offsets index into the returned text stream.
	for _, s := range ext.Spans {
		assert.Equal(t, s.Text, ext.Text[s.Start:s.End])
	}

	assert.Equal(t, 1, ext.Spans[0].Line)
	assert.Equal(t, 3, ext.Spans[1].Line)
	assert.Equal(t, 6, ext.Spans[2].Line)
}

func TestExtract_TitleFromFilename(t *testing.T) {
	path := writeTemp(t, "meditations_book-two.txt", []byte("Begin the morning by saying."))

	ext, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "meditations book two", ext.Meta.Title)
	assert.Equal(t, domain.FileTypeText, ext.Meta.FileType)
}

func TestExtract_WindowsLineEndings(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("One.\r\n\r\nTwo."))

	ext, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, ext.Spans, 2)
	assert.Equal(t, "One.", ext.Spans[0].Text)
	assert.Equal(t, "Two.", ext.Spans[1].Text)
}

func TestExtract_Latin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 but invalid as a standalone UTF-8 byte.
	path := writeTemp(t, "accents.txt", []byte{'c', 'a', 'f', 0xE9})

	ext, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, ext.Spans, 1)
	assert.Equal(t, "café", ext.Spans[0].Text)
}

func TestExtract_BinaryContent(t *testing.T) {
	path := writeTemp(t, "blob.txt", []byte{0xFF, 0x00, 0x01, 0x02})

	_, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
