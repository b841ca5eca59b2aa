package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProfileDir)
	assert.Equal(t, time.Second, cfg.FlushWindow())
	assert.Equal(t, int64(100), cfg.FetchPageSize)
	assert.Equal(t, 8, cfg.MaxAttempts)
	assert.Equal(t, filepath.Join(dir, "mail.db"), cfg.SnapshotPath())
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "account: me@example.com\nflush_window_ms: 250\nfetch_page_size: 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", cfg.Account)
	assert.Equal(t, 250*time.Millisecond, cfg.FlushWindow())
	assert.Equal(t, int64(10), cfg.FetchPageSize)
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte(":\n\t- broken"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoad_SanitizesNonPositiveValues(t *testing.T) {
	dir := t.TempDir()
	content := "flush_window_ms: -5\nfetch_page_size: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.FlushWindow())
	assert.Equal(t, int64(100), cfg.FetchPageSize)
}
