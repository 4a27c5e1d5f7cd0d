package contentstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveText_WritesFileAndReturnsPath(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	path, ok, err := s.SaveText("https://example.com/a", "hello world")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, PathForURL(dir, "https://example.com/a"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestSaveText_EmptyTextYieldsNull(t *testing.T) {
	s := New(t.TempDir())

	path, ok, err := s.SaveText("https://example.com/a", "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, path)
}

func TestPathForURL_IsDeterministicAndShardless(t *testing.T) {
	dir := "/data"
	p1 := PathForURL(dir, "https://example.com/a")
	p2 := PathForURL(dir, "https://example.com/a")
	require.Equal(t, p1, p2)
	require.Equal(t, filepath.Join(dir, "content"), filepath.Dir(p1))

	p3 := PathForURL(dir, "https://example.com/b")
	require.NotEqual(t, p1, p3)
}
