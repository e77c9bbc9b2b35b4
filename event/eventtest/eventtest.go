// Package eventtest provides in-memory doubles for the event package: a
// poller whose readiness is scripted by the test and a socket fed with
// bounded segments.
package eventtest

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/bugVanisher/rtmpd/event"
)

// FakePoller records registrations and returns pushed events from Wait.
type FakePoller struct {
	interest map[int]event.Interest
	tokens   map[int]uint64
	pending  []event.PollEvent

	// Ops lists every call as "add fd=3 read", "mod ...", "del fd=3".
	Ops []string
	// WaitErr is returned by the next Wait calls when set.
	WaitErr error
	// Timeouts records the timeout of every Wait.
	Timeouts []time.Duration
	Closed   bool
}

func NewFakePoller() *FakePoller {
	return &FakePoller{
		interest: make(map[int]event.Interest),
		tokens:   make(map[int]uint64),
	}
}

func (p *FakePoller) Add(fd int, token uint64, in event.Interest) error {
	if _, ok := p.interest[fd]; ok {
		return fmt.Errorf("fd %d already added", fd)
	}
	p.interest[fd] = in
	p.tokens[fd] = token
	p.Ops = append(p.Ops, fmt.Sprintf("add fd=%d %s", fd, in))
	return nil
}

func (p *FakePoller) Modify(fd int, token uint64, in event.Interest) error {
	if _, ok := p.interest[fd]; !ok {
		return fmt.Errorf("fd %d not added", fd)
	}
	p.interest[fd] = in
	p.tokens[fd] = token
	p.Ops = append(p.Ops, fmt.Sprintf("mod fd=%d %s", fd, in))
	return nil
}

func (p *FakePoller) Delete(fd int) error {
	if _, ok := p.interest[fd]; !ok {
		return fmt.Errorf("fd %d not added", fd)
	}
	delete(p.interest, fd)
	delete(p.tokens, fd)
	p.Ops = append(p.Ops, fmt.Sprintf("del fd=%d", fd))
	return nil
}

// Wait returns the pushed events without blocking.
func (p *FakePoller) Wait(events []event.PollEvent, timeout time.Duration) (int, error) {
	p.Timeouts = append(p.Timeouts, timeout)
	if p.WaitErr != nil {
		return 0, p.WaitErr
	}
	n := copy(events, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *FakePoller) Close() error {
	p.Closed = true
	return nil
}

// Interest returns the armed interest of fd.
func (p *FakePoller) Interest(fd int) (event.Interest, bool) {
	in, ok := p.interest[fd]
	return in, ok
}

// Push queues raw events for the next Wait.
func (p *FakePoller) Push(evs ...event.PollEvent) {
	p.pending = append(p.pending, evs...)
}

// Trigger queues readiness for a registered fd.
func (p *FakePoller) Trigger(fd int, readable, writable, failed bool) {
	p.Push(event.PollEvent{
		Token:    p.tokens[fd],
		Readable: readable,
		Writable: writable,
		Error:    failed,
	})
}

// FakeSocket is a Socket whose inbound data is a list of segments. Each Read
// returns at most one segment; once they run out Read reports ErrAgain, or
// io.EOF when PeerClosed is set.
type FakeSocket struct {
	FD         int
	PeerClosed bool
	ReadErr    error
	WriteErr   error
	CloseCalls int
	Reads      int

	segments    [][]byte
	out         bytes.Buffer
	writeBudget int
}

func NewFakeSocket(fd int) *FakeSocket {
	return &FakeSocket{FD: fd, writeBudget: -1}
}

// Feed appends inbound segments.
func (s *FakeSocket) Feed(segments ...[]byte) {
	for _, seg := range segments {
		s.segments = append(s.segments, append([]byte(nil), seg...))
	}
}

// FeedChunked splits p into segments of at most size bytes.
func (s *FakeSocket) FeedChunked(p []byte, size int) {
	for len(p) > 0 {
		n := size
		if n > len(p) {
			n = len(p)
		}
		s.Feed(p[:n])
		p = p[n:]
	}
}

// Pending is the number of inbound bytes not read yet.
func (s *FakeSocket) Pending() int {
	n := 0
	for _, seg := range s.segments {
		n += len(seg)
	}
	return n
}

// SetWriteBudget limits the bytes accepted before writes report ErrAgain.
// A negative budget means unlimited.
func (s *FakeSocket) SetWriteBudget(n int) {
	s.writeBudget = n
}

// Written returns everything written so far.
func (s *FakeSocket) Written() []byte {
	return s.out.Bytes()
}

// Drain returns and forgets everything written so far.
func (s *FakeSocket) Drain() []byte {
	p := append([]byte(nil), s.out.Bytes()...)
	s.out.Reset()
	return p
}

func (s *FakeSocket) Fd() int {
	return s.FD
}

func (s *FakeSocket) Read(p []byte) (int, error) {
	s.Reads++
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	if len(s.segments) == 0 {
		if s.PeerClosed {
			return 0, io.EOF
		}
		return 0, event.ErrAgain
	}
	seg := s.segments[0]
	n := copy(p, seg)
	if n < len(seg) {
		s.segments[0] = seg[n:]
	} else {
		s.segments = s.segments[1:]
	}
	return n, nil
}

func (s *FakeSocket) Write(p []byte) (int, error) {
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	if s.writeBudget == 0 {
		return 0, event.ErrAgain
	}
	n := len(p)
	if s.writeBudget > 0 {
		if n > s.writeBudget {
			n = s.writeBudget
		}
		s.writeBudget -= n
	}
	s.out.Write(p[:n])
	return n, nil
}

func (s *FakeSocket) Close() error {
	s.CloseCalls++
	return nil
}
