package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobridge/crawlcore/internal/config"
	"github.com/arlobridge/crawlcore/internal/constants"
)

func TestLoad_AppliesDefaultsFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"seed_file: seeds.txt\nemail: ops@example.com\ndata_dir: "+dir+"\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "seeds.txt", cfg.SeedFile)
	require.Equal(t, "ops@example.com", cfg.Email)
	require.Equal(t, constants.DefaultWorkerCount, cfg.MaxWorkers)
	require.Equal(t, constants.DefaultParserProcessCount, cfg.ParserProcesses)
	require.Contains(t, cfg.UserAgent(), "ops@example.com")
}

func TestLoad_MissingSeedFileFailsValidationUnlessResuming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("email: ops@example.com\ndata_dir: "+dir+"\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(
		"email: ops@example.com\ndata_dir: "+dir+"\nresume: true\n"), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Resume)
}

func TestLoad_MissingEmailFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed_file: seeds.txt\ndata_dir: "+dir+"\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestParserTaskCount_DefaultsWhenUnset(t *testing.T) {
	cfg := &config.Config{}
	require.Equal(t, constants.DefaultParserWorkerCount, cfg.ParserTaskCount())

	cfg.ParserWorkers = 7
	require.Equal(t, 7, cfg.ParserTaskCount())
}
