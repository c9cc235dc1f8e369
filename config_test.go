package gstview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gstview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.MaxFPS)
	assert.Equal(t, "pattern", cfg.Backend)
	assert.Equal(t, SinkConfig{
		Format:     PixelFormatRGBA32,
		Drop:       true,
		Sync:       true,
		QoS:        true,
		MaxBuffers: 1,
	}, cfg.Sink)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
max_fps: 60
backend: gst
library_path: /opt/gstreamer/lib
sink:
  format: bgra
  sync: false
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.MaxFPS)
	assert.Equal(t, "gst", cfg.Backend)
	assert.Equal(t, "/opt/gstreamer/lib", cfg.LibraryPath)
	assert.Equal(t, PixelFormatBGRA32, cfg.Sink.Format)
	assert.False(t, cfg.Sink.Sync)
	assert.True(t, cfg.Sink.Drop, "unset fields keep defaults")
	assert.Equal(t, 1, cfg.Sink.MaxBuffers)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"fps too high":   "max_fps: 1001",
		"fps zero":       "max_fps: 0",
		"bad format":     "sink: {format: YUY9}",
		"bad buffers":    "sink: {max_buffers: 0}",
		"empty backend":  "backend: ''",
		"bad log level":  "log_level: chatty",
		"malformed yaml": "max_fps: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPixelFormatYAML(t *testing.T) {
	out, err := yaml.Marshal(SinkConfig{Format: PixelFormatRGBA32, MaxBuffers: 1})
	require.NoError(t, err)
	assert.Contains(t, string(out), "format: RGBA")

	var sc SinkConfig
	require.NoError(t, yaml.Unmarshal(out, &sc))
	assert.Equal(t, PixelFormatRGBA32, sc.Format)
}

func TestConfigApply(t *testing.T) {
	t.Setenv(LibPathEnv, "")
	defer SetLibraryPath("")
	level := log.Level()
	defer log.SetLevel(level)

	cfg := DefaultConfig()
	cfg.LibraryPath = "/usr/local/lib/gstreamer"
	cfg.LogLevel = "debug"
	require.NoError(t, cfg.Apply())
	assert.Equal(t, "/usr/local/lib/gstreamer", NewNativeLoader().SearchDir)
	assert.Equal(t, "Debug", log.Level().String())

	assert.Error(t, SetLogLevel("loud"))
}

func TestConfigOpenPlayer(t *testing.T) {
	cfg := DefaultConfig()
	player, err := cfg.OpenPlayer()
	require.NoError(t, err)
	assert.Equal(t, StateReady, player.Pipeline().State())
	assert.NoError(t, player.Close())

	cfg.Backend = "nope"
	_, err = cfg.OpenPlayer()
	assert.ErrorIs(t, err, ErrBackendNotRegistered)
}
