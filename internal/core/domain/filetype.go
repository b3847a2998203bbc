package domain

import (
	"path/filepath"
	"strings"
)

// FileType identifies the format of a library document.
// The set is closed: extraction dispatches over exactly these variants.
type FileType string

// Supported file types.
const (
	// FileTypeText is a plain text document.
	FileTypeText FileType = "text"

	// FileTypeHTML is an HTML document.
	FileTypeHTML FileType = "html"

	// FileTypeMarkdown is a Markdown document.
	FileTypeMarkdown FileType = "markdown"

	// FileTypePDF is a PDF document.
	FileTypePDF FileType = "pdf"
)

// IsValid returns true if the file type is recognised.
func (t FileType) IsValid() bool {
	switch t {
	case FileTypeText, FileTypeHTML, FileTypeMarkdown, FileTypePDF:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t FileType) String() string {
	return string(t)
}

// fileTypeByExtension maps lower-case file extensions to their type.
var fileTypeByExtension = map[string]FileType{
	".txt":      FileTypeText,
	".text":     FileTypeText,
	".html":     FileTypeHTML,
	".htm":      FileTypeHTML,
	".md":       FileTypeMarkdown,
	".markdown": FileTypeMarkdown,
	".pdf":      FileTypePDF,
}

// FileTypeForPath determines the file type from a path's extension.
// Returns ErrUnsupportedType for extensions outside the closed set.
func FileTypeForPath(path string) (FileType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	t, ok := fileTypeByExtension[ext]
	if !ok {
		return "", ErrUnsupportedType
	}
	return t, nil
}

// SupportedExtensions returns the extensions recognised during a library scan.
func SupportedExtensions() []string {
	return []string{".txt", ".text", ".html", ".htm", ".md", ".markdown", ".pdf"}
}
