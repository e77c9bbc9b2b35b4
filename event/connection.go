package event

import (
	"io"

	"github.com/bugVanisher/rtmpd/arena"
	"github.com/pkg/errors"
)

// Socket is the raw transport under a Connection. Read returns io.EOF when
// the peer closed and ErrAgain when it would block; Write returns ErrAgain
// when the send buffer is full.
type Socket interface {
	Fd() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Connection is a non-blocking socket with its read/write events and the
// arena owning every allocation made on its behalf.
type Connection struct {
	Read  *Event
	Write *Event

	id         uint64
	sock       Socket
	arena      *arena.Arena
	remoteAddr string
	handler    Handler
	reactor    *Reactor

	received uint64
	sent     uint64

	destroyed bool
}

// NewConnection wraps sock. The socket must already be non-blocking.
func NewConnection(sock Socket, a *arena.Arena, remoteAddr string) *Connection {
	c := &Connection{
		sock:       sock,
		arena:      a,
		remoteAddr: remoteAddr,
	}
	c.Read = &Event{conn: c, index: -1, handle: c.onRead}
	c.Write = &Event{conn: c, Write: true, index: -1, handle: c.onWrite}
	return c
}

func (c *Connection) onRead(ev *Event) {
	if c.destroyed || c.handler == nil {
		return
	}
	c.handler.OnReadable(c)
}

func (c *Connection) onWrite(ev *Event) {
	if c.destroyed || c.handler == nil {
		return
	}
	c.handler.OnWritable(c)
}

func (c *Connection) sibling(ev *Event) *Event {
	if ev == c.Read {
		return c.Write
	}
	return c.Read
}

// SetHandler selects who receives readiness.
func (c *Connection) SetHandler(h Handler) {
	c.handler = h
}

// ID is assigned by Reactor.Register.
func (c *Connection) ID() uint64 {
	return c.id
}

func (c *Connection) Arena() *arena.Arena {
	return c.arena
}

func (c *Connection) RemoteAddr() string {
	return c.remoteAddr
}

func (c *Connection) Socket() Socket {
	return c.sock
}

func (c *Connection) Reactor() *Reactor {
	return c.reactor
}

func (c *Connection) Destroyed() bool {
	return c.destroyed
}

// Received returns the bytes read so far.
func (c *Connection) Received() uint64 {
	return c.received
}

// Sent returns the bytes written so far.
func (c *Connection) Sent() uint64 {
	return c.sent
}

// Receive reads into the free region of b.
func (c *Connection) Receive(b *arena.Buf) (int, error) {
	if c.destroyed {
		return 0, ErrClosed
	}
	p := b.Free()
	if len(p) == 0 {
		return 0, nil
	}

	n, err := c.sock.Read(p)
	if n > 0 && err == nil {
		b.Commit(n)
		c.received += uint64(n)
		return n, nil
	}

	c.Read.Ready = false
	switch {
	case err == nil || err == io.EOF:
		c.Read.EOF = true
		return 0, io.EOF
	case errors.Is(err, ErrAgain):
		return 0, ErrAgain
	default:
		c.Read.Error = true
		return 0, errors.Wrap(err, "recv")
	}
}

// Send writes the unread region of b and advances it.
func (c *Connection) Send(b *arena.Buf) (int, error) {
	if c.destroyed {
		return 0, ErrClosed
	}
	p := b.Bytes()
	if len(p) == 0 {
		return 0, nil
	}

	n, err := c.sock.Write(p)
	if n > 0 {
		b.Advance(n)
		c.sent += uint64(n)
	}
	switch {
	case err == nil && n > 0:
		return n, nil
	case err == nil || errors.Is(err, ErrAgain):
		c.Write.Ready = false
		if n > 0 {
			return n, nil
		}
		return 0, ErrAgain
	default:
		c.Write.Error = true
		return n, errors.Wrap(err, "send")
	}
}

// SendChain sends the buffers of in, in order, up to limit bytes (0 means no
// limit). It returns the chain starting at the first buffer that was not
// fully sent, or nil when everything went out.
func (c *Connection) SendChain(in arena.Chain, limit int) (arena.Chain, error) {
	if c.destroyed {
		return nil, ErrClosed
	}
	sent := 0
	for i := 0; i < len(in); {
		b := in[i]
		if b.Len() == 0 {
			i++
			continue
		}
		p := b.Bytes()
		if limit > 0 {
			if sent >= limit {
				return in[i:], nil
			}
			if len(p) > limit-sent {
				p = p[:limit-sent]
			}
		}

		n, err := c.sock.Write(p)
		if n > 0 {
			b.Advance(n)
			sent += n
			c.sent += uint64(n)
		}
		if err != nil && !errors.Is(err, ErrAgain) {
			c.Write.Error = true
			return nil, errors.Wrap(err, "send chain")
		}
		if err != nil || n == 0 {
			c.Write.Ready = false
			return in[i:], nil
		}
	}
	return nil, nil
}

// Close deregisters the connection and closes the socket. Only the first call
// has an effect.
func (c *Connection) Close() error {
	if c.destroyed {
		return nil
	}
	c.destroyed = true

	var err error
	if c.reactor != nil {
		err = c.reactor.Deregister(c)
	}
	if cerr := c.sock.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
