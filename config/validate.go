package config

import (
	"github.com/bugVanisher/rtmpd/common/errs"
	"github.com/bugVanisher/rtmpd/media/protocol/rtmp"
	"github.com/pkg/errors"
)

// Validate returns the first out-of-range value found.
func (c *Config) Validate() error {
	if err := ValidatePort(c.Server.Port); err != nil {
		return errors.Wrap(err, "server config")
	}
	if c.Server.Backlog < 0 {
		return errs.Newf(errs.CodeConfig, "server config: backlog must not be negative, got %d", c.Server.Backlog)
	}
	if err := c.Session.Validate(); err != nil {
		return errors.Wrap(err, "session config")
	}
	if c.Hook.Workers < 0 || c.Hook.QueueLen < 0 {
		return errs.Newf(errs.CodeConfig, "hook config: workers and queue_len must not be negative")
	}
	return nil
}

// ValidatePort checks a TCP port given in a file or on the command line.
func ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return errs.Newf(errs.CodeConfig, "port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// Validate checks session values.
func (s *SessionConfig) Validate() error {
	if s.ChunkSize < 1 || s.ChunkSize > rtmp.MaxChunkSize {
		return errs.Newf(errs.CodeConfig, "chunk_size must be between 1 and %d, got %d", rtmp.MaxChunkSize, s.ChunkSize)
	}
	if s.MaxStreams < 3 || s.MaxStreams > 65600 {
		return errs.Newf(errs.CodeConfig, "max_streams must be between 3 and 65600, got %d", s.MaxStreams)
	}
	if s.MaxMessage < 1 || s.MaxMessage > 0xFFFFFF {
		return errs.Newf(errs.CodeConfig, "max_message must be between 1 and %d, got %d", 0xFFFFFF, s.MaxMessage)
	}
	if s.OutQueue < 1 || s.OutCork < 0 || s.OutCork > s.OutQueue {
		return errs.Newf(errs.CodeConfig, "out_queue must be positive and out_cork within it, got %d/%d", s.OutQueue, s.OutCork)
	}
	if s.Timeout < 0 || s.Ping < 0 || s.PingTimeout < 0 {
		return errs.Newf(errs.CodeConfig, "timeouts must not be negative")
	}
	if s.ReadBufferSize < rtmp.MaxChunkHeader {
		return errs.Newf(errs.CodeConfig, "read_buffer_size must be at least %d, got %d", rtmp.MaxChunkHeader, s.ReadBufferSize)
	}
	if s.ArenaLimit < 0 {
		return errs.Newf(errs.CodeConfig, "arena_limit must not be negative, got %d", s.ArenaLimit)
	}
	return nil
}
