//go:build linux
// +build linux

package event

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type epollPoller struct {
	epfd int
	raw  []unix.EpollEvent
}

// NewPoller creates the epoll based poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll create")
	}
	return &epollPoller{epfd: epfd}, nil
}

func epollEvents(in Interest) uint32 {
	events := uint32(unix.EPOLLET | unix.EPOLLRDHUP)
	if in&InterestRead != 0 {
		events |= unix.EPOLLIN
	}
	if in&InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func (p *epollPoller) ctl(op int, fd int, token uint64, in Interest) error {
	ev := unix.EpollEvent{
		Events: epollEvents(in),
		Fd:     int32(uint32(token)),
		Pad:    int32(uint32(token >> 32)),
	}
	return unix.EpollCtl(p.epfd, op, fd, &ev)
}

func (p *epollPoller) Add(fd int, token uint64, in Interest) error {
	if err := p.ctl(unix.EPOLL_CTL_ADD, fd, token, in); err != nil {
		return errors.Wrapf(err, "epoll add fd=%d", fd)
	}
	return nil
}

func (p *epollPoller) Modify(fd int, token uint64, in Interest) error {
	if err := p.ctl(unix.EPOLL_CTL_MOD, fd, token, in); err != nil {
		return errors.Wrapf(err, "epoll mod fd=%d", fd)
	}
	return nil
}

func (p *epollPoller) Delete(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return errors.Wrapf(err, "epoll del fd=%d", fd)
	}
	return nil
}

func (p *epollPoller) Wait(events []PollEvent, timeout time.Duration) (int, error) {
	if len(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
		if msec == 0 && timeout > 0 {
			msec = 1
		}
	}

	n, err := unix.EpollWait(p.epfd, p.raw[:len(events)], msec)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, errors.Wrap(err, "epoll wait")
	}

	for i := 0; i < n; i++ {
		ev := p.raw[i]
		events[i] = PollEvent{
			Token:    uint64(uint32(ev.Fd)) | uint64(uint32(ev.Pad))<<32,
			Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Error:    ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
	}
	return n, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
