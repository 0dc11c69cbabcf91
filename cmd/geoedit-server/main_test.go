package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , "))
	assert.Equal(t, []string{"a.json", "b.json"}, splitList("a.json, ,b.json "))
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("GEOEDIT_TEST_VALUE", "")
	assert.Equal(t, "fallback", envOrDefault("GEOEDIT_TEST_VALUE", "fallback"))

	t.Setenv("GEOEDIT_TEST_VALUE", "set")
	assert.Equal(t, "set", envOrDefault("GEOEDIT_TEST_VALUE", "fallback"))
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nlisten = \":9999\"\n"), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Listen)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_LoggingFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"debug\"\nlog_format = \"text\"\n"), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfig_NoFileLogsJSON(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "127.0.0.1:8730", cfg.Server.Listen)
}
