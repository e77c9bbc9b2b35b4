// Package config loads the rtmpd YAML configuration.
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/bugVanisher/rtmpd/media/protocol/rtmp"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Hook    HookConfig    `yaml:"hook"`
	Debug   DebugConfig   `yaml:"debug"`
}

type ServerConfig struct {
	Port    int `yaml:"port"`
	Backlog int `yaml:"backlog"`
}

// SessionConfig mirrors rtmp.Options. Zero values take the rtmp defaults.
type SessionConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	Ping           time.Duration `yaml:"ping"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	ChunkSize      int           `yaml:"chunk_size"`
	AckWindow      uint32        `yaml:"ack_window"`
	MaxStreams     int           `yaml:"max_streams"`
	MaxMessage     int           `yaml:"max_message"`
	OutQueue       int           `yaml:"out_queue"`
	OutCork        int           `yaml:"out_cork"`
	BufLen         time.Duration `yaml:"buflen"`
	ReadBufferSize int           `yaml:"read_buffer_size"`
	ArenaBlockSize int           `yaml:"arena_block_size"`
	ArenaLimit     int           `yaml:"arena_limit"`
}

// HookConfig enables the HTTP lifecycle hook when URL is set.
type HookConfig struct {
	URL      string `yaml:"url,omitempty"`
	Workers  int    `yaml:"workers"`
	QueueLen int    `yaml:"queue_len"`
}

type DebugConfig struct {
	Enable   bool          `yaml:"enable"`
	Dir      string        `yaml:"dir"`
	Duration time.Duration `yaml:"duration"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads configuration from a YAML file. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	def := rtmp.NewOptions()

	if c.Server.Port == 0 {
		c.Server.Port = 1935
	}
	if c.Server.Backlog == 0 {
		c.Server.Backlog = def.Backlog
	}

	s := &c.Session
	if s.Timeout == 0 {
		s.Timeout = def.Timeout
	}
	if s.Ping == 0 {
		s.Ping = def.Ping
	}
	if s.PingTimeout == 0 {
		s.PingTimeout = def.PingTimeout
	}
	if s.ChunkSize == 0 {
		s.ChunkSize = def.ChunkSize
	}
	if s.AckWindow == 0 {
		s.AckWindow = def.AckWindow
	}
	if s.MaxStreams == 0 {
		s.MaxStreams = def.MaxStreams
	}
	if s.MaxMessage == 0 {
		s.MaxMessage = def.MaxMessage
	}
	if s.OutQueue == 0 {
		s.OutQueue = def.OutQueue
	}
	if s.OutCork == 0 {
		s.OutCork = def.OutCork
	}
	if s.BufLen == 0 {
		s.BufLen = def.BufLen
	}
	if s.ReadBufferSize == 0 {
		s.ReadBufferSize = def.ReadBufferSize
	}
	if s.ArenaBlockSize == 0 {
		s.ArenaBlockSize = def.ArenaBlockSize
	}

	if c.Hook.Workers == 0 {
		c.Hook.Workers = rtmp.HookEventWorkerNum
	}
	if c.Hook.QueueLen == 0 {
		c.Hook.QueueLen = rtmp.HookEventQueueLen
	}

	if c.Debug.Dir == "" {
		c.Debug.Dir = def.DebugDir
	}
	if c.Debug.Duration == 0 {
		c.Debug.Duration = def.DebugDuration
	}
}

// Options converts the session settings to server options.
func (c *Config) Options() []rtmp.Option {
	s := c.Session
	return []rtmp.Option{
		rtmp.WithBacklog(c.Server.Backlog),
		rtmp.WithTimeout(s.Timeout),
		rtmp.WithPing(s.Ping, s.PingTimeout),
		rtmp.WithChunkSize(s.ChunkSize),
		rtmp.WithAckWindow(s.AckWindow),
		rtmp.WithMaxStreams(s.MaxStreams),
		rtmp.WithMaxMessage(s.MaxMessage),
		rtmp.WithOutQueue(s.OutQueue, s.OutCork),
		rtmp.WithBufLen(s.BufLen),
		rtmp.WithReadBufferSize(s.ReadBufferSize),
		rtmp.WithArena(s.ArenaBlockSize, s.ArenaLimit),
		rtmp.WithEnableDebug(c.Debug.Enable, c.Debug.Dir, c.Debug.Duration),
	}
}
