package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet_RoundTrip(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("library_path", "/home/user/books"))
	require.NoError(t, store.Set("max_passage_length", int64(420)))
	require.NoError(t, store.Set("coherence_threshold", 0.35))
	require.NoError(t, store.Set("verbose", true))

	assert.Equal(t, "/home/user/books", store.GetString("library_path"))
	assert.Equal(t, 420, store.GetInt("max_passage_length"))
	assert.Equal(t, 0.35, store.GetFloat("coherence_threshold"))
	assert.True(t, store.GetBool("verbose"))
}

func TestGet_MissingAndMistyped(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "", store.GetString("absent"))
	assert.Equal(t, 0, store.GetInt("absent"))
	assert.Equal(t, 0.0, store.GetFloat("absent"))
	assert.False(t, store.GetBool("absent"))

	require.NoError(t, store.Set("library_path", "/books"))
	assert.Equal(t, 0, store.GetInt("library_path"))
}

func TestGetFloat_FromInteger(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("threshold", int64(2)))
	assert.Equal(t, 2.0, store.GetFloat("threshold"))
}

func TestLoad_FlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := "[embedding]\nmodel = \"nomic-embed-text\"\nbase_url = \"http://localhost:11434\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.Equal(t, "http://localhost:11434", store.GetString("embedding.base_url"))
}

func TestSet_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("session_history_days", int64(30)))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 30, reloaded.GetInt("session_history_days"))
}
