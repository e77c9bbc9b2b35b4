package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bugVanisher/rtmpd/common/errs"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.Nil(t, err)
	require.Equal(t, 1935, cfg.Server.Port)
	require.Equal(t, 511, cfg.Server.Backlog)
	require.Equal(t, 60*time.Second, cfg.Session.Timeout)
	require.Equal(t, 128, cfg.Session.ChunkSize)
	require.Equal(t, uint32(5000000), cfg.Session.AckWindow)
	require.Equal(t, 256, cfg.Session.OutQueue)
	require.Equal(t, 3000*time.Millisecond, cfg.Session.BufLen)
	require.Equal(t, 20, cfg.Hook.Workers)
	require.Nil(t, cfg.Validate())
	require.Equal(t, 12, len(cfg.Options()))
}

func TestParse_Values(t *testing.T) {
	data := []byte(`
server:
  port: 19350
session:
  timeout: 10s
  ping: 30s
  chunk_size: 4096
  out_queue: 512
  out_cork: 64
hook:
  url: http://127.0.0.1:8080/hook
debug:
  enable: true
  dir: /tmp
`)
	cfg, err := Parse(data)
	require.Nil(t, err)
	require.Equal(t, 19350, cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.Session.Timeout)
	require.Equal(t, 30*time.Second, cfg.Session.Ping)
	require.Equal(t, 4096, cfg.Session.ChunkSize)
	require.Equal(t, 512, cfg.Session.OutQueue)
	require.Equal(t, "http://127.0.0.1:8080/hook", cfg.Hook.URL)
	require.True(t, cfg.Debug.Enable)
	require.Equal(t, "/tmp", cfg.Debug.Dir)
	require.Equal(t, 60*time.Second, cfg.Debug.Duration)
	require.Nil(t, cfg.Validate())
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("server:\n  prot: 1935\n"))
	require.NotNil(t, err)
}

func TestLoad(t *testing.T) {
	name := filepath.Join(t.TempDir(), "rtmpd.yaml")
	require.Nil(t, os.WriteFile(name, []byte("server:\n  port: 2935\n"), 0o644))

	cfg, err := Load(name)
	require.Nil(t, err)
	require.Equal(t, 2935, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"negative port", func(c *Config) { c.Server.Port = -1 }},
		{"chunk size too large", func(c *Config) { c.Session.ChunkSize = 10485761 }},
		{"too few streams", func(c *Config) { c.Session.MaxStreams = 2 }},
		{"cork above queue", func(c *Config) { c.Session.OutCork = 1000 }},
		{"tiny read buffer", func(c *Config) { c.Session.ReadBufferSize = 4 }},
		{"negative arena limit", func(c *Config) { c.Session.ArenaLimit = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.NotNil(t, err)
			require.Equal(t, int32(errs.CodeConfig), errs.Code(err))
		})
	}
}

func TestValidatePort(t *testing.T) {
	require.Nil(t, ValidatePort(1))
	require.Nil(t, ValidatePort(65535))
	require.NotNil(t, ValidatePort(0))
	require.NotNil(t, ValidatePort(65536))
}
