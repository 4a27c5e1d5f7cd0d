package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadLines_SkipsBlanksAndComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seeds.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://a.example/\n\n# comment\n  https://b.example/  \n"), 0o644))

	lines, err := readLines(path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example/", "https://b.example/"}, lines)
}

func TestReadLines_MissingFileYieldsEmptyNoError(t *testing.T) {
	lines, err := readLines(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	require.Nil(t, lines)
}

func TestReadLines_EmptyPathYieldsEmptyNoError(t *testing.T) {
	lines, err := readLines("")
	require.NoError(t, err)
	require.Nil(t, lines)
}
