package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_PortArgument(t *testing.T) {
	cfg, err := loadConfig("", []string{"19350"})
	require.Nil(t, err)
	require.Equal(t, 19350, cfg.Server.Port)

	cfg, err = loadConfig("", nil)
	require.Nil(t, err)
	require.Equal(t, 1935, cfg.Server.Port)
}

func TestLoadConfig_BadPort(t *testing.T) {
	for _, arg := range []string{"0", "65536", "-5", "rtmp"} {
		_, err := loadConfig("", []string{arg})
		require.NotNil(t, err, arg)
	}
}

func TestLoadConfig_ArgumentOverridesFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "rtmpd.yaml")
	require.Nil(t, os.WriteFile(name, []byte("server:\n  port: 2935\nsession:\n  chunk_size: 4096\n"), 0o644))

	cfg, err := loadConfig(name, []string{"3935"})
	require.Nil(t, err)
	require.Equal(t, 3935, cfg.Server.Port)
	require.Equal(t, 4096, cfg.Session.ChunkSize)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "rtmpd.yaml")
	require.Nil(t, os.WriteFile(name, []byte("session:\n  chunk_size: 0\n  max_streams: 1\n"), 0o644))

	_, err := loadConfig(name, nil)
	require.NotNil(t, err)
}
