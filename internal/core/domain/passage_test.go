package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPassage() Passage {
	return Passage{
		ID:            "p-1",
		Text:          "A passage long enough to be interesting.",
		SourceFile:    "/library/essay.txt",
		FileType:      FileTypeText,
		LineNumber:    12,
		DocumentTitle: "Essay",
		StartChar:     100,
		EndChar:       140,
		ExtractedAt:   time.Now(),
	}
}

func TestPassage_Validate(t *testing.T) {
	t.Run("valid passage", func(t *testing.T) {
		p := validPassage()
		require.NoError(t, p.Validate())
	})

	t.Run("relative source path rejected", func(t *testing.T) {
		p := validPassage()
		p.SourceFile = "library/essay.txt"
		assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
	})

	t.Run("inverted offsets rejected", func(t *testing.T) {
		p := validPassage()
		p.StartChar, p.EndChar = 140, 100
		assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
	})

	t.Run("equal offsets rejected", func(t *testing.T) {
		p := validPassage()
		p.StartChar, p.EndChar = 100, 100
		assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
	})

	t.Run("missing id rejected", func(t *testing.T) {
		p := validPassage()
		p.ID = ""
		assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
	})

	t.Run("unknown file type rejected", func(t *testing.T) {
		p := validPassage()
		p.FileType = FileType("docx")
		assert.ErrorIs(t, p.Validate(), ErrUnsupportedType)
	})
}

func TestPassage_LocationMarker(t *testing.T) {
	tests := []struct {
		name     string
		passage  Passage
		expected string
	}{
		{
			name:     "pdf uses page",
			passage:  Passage{FileType: FileTypePDF, PageNumber: 7},
			expected: "Page 7",
		},
		{
			name:     "text uses line",
			passage:  Passage{FileType: FileTypeText, LineNumber: 42},
			expected: "Line 42",
		},
		{
			name:     "html uses section",
			passage:  Passage{FileType: FileTypeHTML, Section: "Chapter One"},
			expected: "Section: Chapter One",
		},
		{
			name:     "page wins when several set",
			passage:  Passage{PageNumber: 3, LineNumber: 9, Section: "Intro"},
			expected: "Page 3",
		},
		{
			name:     "empty when nothing set",
			passage:  Passage{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.passage.LocationMarker())
		})
	}
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "meditations marcus aurelius", TitleFromPath("/lib/meditations-marcus_aurelius.txt"))
	assert.Equal(t, "notes", TitleFromPath("notes.md"))
	assert.Equal(t, "README", TitleFromPath("/x/README"))
}
