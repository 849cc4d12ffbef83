package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
)

func writeConfig(t *testing.T, doc map[string]any) string {
	t.Helper()

	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "toygrep.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, map[string]any{})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"log": map[string]any{"level": "DEBUG", "format": "json"},
		"run": map[string]any{
			"workers":       2,
			"op":            "wordcount",
			"pattern":       "love",
			"overlap":       true,
			"poll_interval": "5ms",
			"journal_path":  "runs.db",
		},
		"transport": map[string]any{"codec": "json", "dial_timeout": "1s"},
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Run.Workers)
	assert.Equal(t, "wordcount", cfg.Run.Op)
	assert.Equal(t, "love", cfg.Run.Pattern)
	assert.True(t, cfg.Run.Overlap)
	assert.Equal(t, 5*time.Millisecond, cfg.Run.PollInterval)
	assert.Equal(t, "runs.db", cfg.Run.JournalPath)
	assert.Equal(t, "json", cfg.Transport.Codec)
	assert.Equal(t, time.Second, cfg.Transport.DialTimeout)
	// untouched keys keep their defaults
	assert.Equal(t, "-", cfg.Run.Input)
	assert.Equal(t, ":7878", cfg.Transport.Listen)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"run": map[string]any{"workers": 2},
	})
	t.Setenv("TOYGREP_RUN_WORKERS", "7")
	t.Setenv("TOYGREP_TRANSPORT_MASTER_ADDR", "10.0.0.1:9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Run.Workers)
	assert.Equal(t, "10.0.0.1:9000", cfg.Transport.MasterAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
	}{
		{"log level", map[string]any{"log": map[string]any{"level": "loud"}}},
		{"op", map[string]any{"run": map[string]any{"op": "sort"}}},
		{"workers", map[string]any{"run": map[string]any{"workers": 0}}},
		{"limit", map[string]any{"run": map[string]any{"limit": -1}}},
		{"codec", map[string]any{"transport": map[string]any{"codec": "xml"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_NoWorkers(t *testing.T) {
	_, err := Load(writeConfig(t, map[string]any{"run": map[string]any{"workers": 0}}))
	assert.ErrorIs(t, err, toygrep.ErrNoWorkers)

	cfg := Default()
	cfg.Run.Workers = -2
	assert.ErrorIs(t, cfg.Validate(), toygrep.ErrNoWorkers)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toygrep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run: [unclosed"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "read config")
}
