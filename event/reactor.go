package event

import (
	"container/heap"
	"time"

	"github.com/bugVanisher/rtmpd/common/errs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxWait bounds a single RunOnce when no timer is nearer.
	DefaultMaxWait = time.Second

	maxEvents = 512
)

// Reactor multiplexes readiness of registered connections and runs timers.
// All methods must be called from the goroutine that calls RunOnce.
type Reactor struct {
	poller Poller
	conns  map[uint64]*Connection
	nextID uint64
	timers timerHeap
	events []PollEvent
	now    func() time.Time
	closed bool
}

// ReactorOption configures a Reactor.
type ReactorOption func(*Reactor)

// WithClock replaces time.Now, used by timer bookkeeping.
func WithClock(now func() time.Time) ReactorOption {
	return func(r *Reactor) {
		r.now = now
	}
}

// NewReactor creates a reactor over the given poller.
func NewReactor(p Poller, opts ...ReactorOption) *Reactor {
	r := &Reactor{
		poller: p,
		conns:  make(map[uint64]*Connection),
		events: make([]PollEvent, maxEvents),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the reactor's clock.
func (r *Reactor) Now() time.Time {
	return r.now()
}

// Register attaches c to the reactor. No interest is armed until AddEvent.
func (r *Reactor) Register(c *Connection) error {
	if r.closed {
		return errs.New(errs.CodeReactor, "reactor closed")
	}
	if c.reactor != nil {
		return errs.Newf(errs.CodeReactor, "connection %d already registered", c.id)
	}
	r.nextID++
	c.id = r.nextID
	c.reactor = r
	r.conns[c.id] = c
	return nil
}

// Deregister removes every trace of c: poller interest, timers and the
// registry entry.
func (r *Reactor) Deregister(c *Connection) error {
	if c.reactor != r {
		return nil
	}
	var err error
	if c.Read.Active || c.Write.Active {
		err = r.poller.Delete(c.sock.Fd())
	}
	c.Read.Active = false
	c.Write.Active = false
	r.DelTimer(c.Read)
	r.DelTimer(c.Write)
	delete(r.conns, c.id)
	c.reactor = nil
	return err
}

// AddEvent arms ev's interest, merging it with the sibling event of the same
// connection.
func (r *Reactor) AddEvent(ev *Event) error {
	c := ev.conn
	if c == nil || c.reactor != r {
		return errs.New(errs.CodeReactor, "event not bound to this reactor")
	}
	if ev.Active {
		return nil
	}
	other := c.sibling(ev)
	in := ev.interest()
	var err error
	if other.Active {
		err = r.poller.Modify(c.sock.Fd(), c.id, in|other.interest())
	} else {
		err = r.poller.Add(c.sock.Fd(), c.id, in)
	}
	if err != nil {
		return errors.Wrapf(err, "[event] add %s event conn=%d", in, c.id)
	}
	ev.Active = true
	return nil
}

// DelEvent disarms ev, keeping the sibling's interest.
func (r *Reactor) DelEvent(ev *Event) error {
	c := ev.conn
	if c == nil || c.reactor != r || !ev.Active {
		return nil
	}
	other := c.sibling(ev)
	var err error
	if other.Active {
		err = r.poller.Modify(c.sock.Fd(), c.id, other.interest())
	} else {
		err = r.poller.Delete(c.sock.Fd())
	}
	ev.Active = false
	if err != nil {
		return errors.Wrapf(err, "[event] del %s event conn=%d", ev.interest(), c.id)
	}
	return nil
}

// AddTimer arms (or re-arms) the deadline of ev d from now and clears its
// Timedout flag.
func (r *Reactor) AddTimer(ev *Event, d time.Duration) {
	ev.Timedout = false
	ev.deadline = r.now().Add(d)
	if ev.timerSet {
		heap.Fix(&r.timers, ev.index)
		return
	}
	ev.timerSet = true
	heap.Push(&r.timers, ev)
}

// DelTimer cancels the pending deadline of ev, if any.
func (r *Reactor) DelTimer(ev *Event) {
	if !ev.timerSet {
		return
	}
	heap.Remove(&r.timers, ev.index)
	ev.timerSet = false
}

// Timers returns the number of pending deadlines.
func (r *Reactor) Timers() int {
	return len(r.timers)
}

// Connections returns the number of registered connections.
func (r *Reactor) Connections() int {
	return len(r.conns)
}

func (r *Reactor) nextTimeout(maxWait time.Duration) time.Duration {
	if len(r.timers) == 0 {
		return maxWait
	}
	d := r.timers[0].deadline.Sub(r.now())
	if d < 0 {
		d = 0
	}
	if d < maxWait {
		return d
	}
	return maxWait
}

// RunOnce waits for readiness for at most maxWait (less when a timer is due
// earlier), dispatches handlers and then expires due timers. A returned error
// means the poller itself failed.
func (r *Reactor) RunOnce(maxWait time.Duration) error {
	if r.closed {
		return errs.New(errs.CodeReactor, "reactor closed")
	}

	n, err := r.poller.Wait(r.events, r.nextTimeout(maxWait))
	if err != nil {
		return errs.Wrapf(err, "[event] poller wait")
	}

	for i := 0; i < n; i++ {
		pe := r.events[i]
		c, ok := r.conns[pe.Token]
		if !ok {
			continue
		}

		if pe.Error {
			c.Read.Error = true
			c.Write.Error = true
		}

		if (pe.Readable || pe.Error) && c.Read.Active {
			c.Read.Ready = true
			c.Read.handle(c.Read)
		}

		// the read handler may have closed the connection
		if c.reactor != r {
			continue
		}

		if (pe.Writable || pe.Error) && c.Write.Active {
			c.Write.Ready = true
			c.Write.handle(c.Write)
		}
	}

	r.expireTimers()
	return nil
}

func (r *Reactor) expireTimers() {
	now := r.now()
	for len(r.timers) > 0 {
		ev := r.timers[0]
		if ev.deadline.After(now) {
			return
		}
		heap.Pop(&r.timers)
		ev.timerSet = false
		ev.Timedout = true
		ev.handle(ev)
	}
}

// Close closes every registered connection and the poller.
func (r *Reactor) Close() error {
	if r.closed {
		return nil
	}
	for _, c := range r.conns {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Uint64("conn", c.id).Msg("[event] close connection")
		}
	}
	r.closed = true
	for _, ev := range r.timers {
		ev.timerSet = false
		ev.index = -1
	}
	r.timers = nil
	return r.poller.Close()
}
