// Package event implements the single-threaded, edge-triggered reactor that
// drives every connection, plus the non-blocking Connection wrapper.
//
// Readiness is reported once per transition. A handler must keep reading or
// writing until the socket reports ErrAgain, otherwise the notification is
// lost until new data arrives.
package event

import (
	"time"

	"github.com/bugVanisher/rtmpd/common/errs"
)

var (
	// ErrAgain is returned by sockets when an operation would block.
	ErrAgain = errs.ErrAgain
	// ErrClosed is returned by I/O on a closed Connection.
	ErrClosed = errs.ErrConnClosed
	// ErrNotSupported is returned by the poller and sockets on platforms
	// without epoll.
	ErrNotSupported = errs.ErrNotSupported
)

// Handler receives readiness of a Connection.
type Handler interface {
	OnReadable(c *Connection)
	OnWritable(c *Connection)
}

// Event is one registration: the read or write side of a Connection, or a
// standalone timer.
type Event struct {
	Write bool

	// Active is true while the event is registered with the poller.
	Active bool
	// Ready is set on readiness and cleared when I/O reports ErrAgain.
	Ready bool
	// Timedout is set when the event's timer expired.
	Timedout bool
	// Error is set on socket error or hangup, before the handler runs.
	Error bool
	// EOF is set when the peer closed its side.
	EOF bool

	conn   *Connection
	handle func(ev *Event)

	timerSet bool
	deadline time.Time
	index    int
}

// NewTimer creates a standalone timer event. fn runs on expiry with
// Timedout set.
func NewTimer(fn func(ev *Event)) *Event {
	return &Event{handle: fn, index: -1}
}

// Connection returns the owner of a read/write event, nil for timers.
func (ev *Event) Connection() *Connection {
	return ev.conn
}

// TimerSet reports whether a deadline is pending.
func (ev *Event) TimerSet() bool {
	return ev.timerSet
}

// Deadline returns the pending deadline, zero if none.
func (ev *Event) Deadline() time.Time {
	if !ev.timerSet {
		return time.Time{}
	}
	return ev.deadline
}

func (ev *Event) interest() Interest {
	if ev.Write {
		return InterestWrite
	}
	return InterestRead
}
