//go:build linux
// +build linux

package event

import (
	"io"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type fdSocket struct {
	fd int
}

// NewSocket puts fd into non-blocking mode and wraps it. It takes ownership
// of fd, which is closed on failure.
func NewSocket(fd int) (Socket, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "set nonblock fd=%d", fd)
	}
	// not a TCP socket for socketpair tests
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &fdSocket{fd: fd}, nil
}

func (s *fdSocket) Fd() int {
	return s.fd
}

func (s *fdSocket) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		switch err {
		case nil:
			if n == 0 && len(p) > 0 {
				return 0, io.EOF
			}
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrAgain
		}
		return 0, err
	}
}

func (s *fdSocket) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrAgain
		}
		return 0, err
	}
}

func (s *fdSocket) Close() error {
	return unix.Close(s.fd)
}

// Listener is a non-blocking TCP listening socket. It satisfies Socket so it
// can be registered with the Reactor; Read and Write are not supported.
type Listener struct {
	fd   int
	port int
}

// Listen opens a TCP listener on all IPv4 addresses. Port 0 picks a free
// port.
func Listen(port int, backlog int) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "setsockopt SO_REUSEADDR")
	}
	if err = unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind port %d", port)
	}
	if err = unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "listen")
	}

	l := &Listener{fd: fd, port: port}
	if sa, err := unix.Getsockname(fd); err == nil {
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			l.port = in4.Port
		}
	}
	return l, nil
}

// Accept returns the next pending connection as a non-blocking descriptor.
// It returns ErrAgain when the backlog is empty.
func (l *Listener) Accept() (int, string, error) {
	for {
		fd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch err {
		case nil:
			return fd, sockaddrString(sa), nil
		case unix.EINTR, unix.ECONNABORTED:
			continue
		case unix.EAGAIN:
			return -1, "", ErrAgain
		}
		return -1, "", errors.Wrap(err, "accept")
	}
}

func (l *Listener) Port() int {
	return l.port
}

func (l *Listener) Fd() int {
	return l.fd
}

func (l *Listener) Read(p []byte) (int, error) {
	return 0, ErrNotSupported
}

func (l *Listener) Write(p []byte) (int, error) {
	return 0, ErrNotSupported
}

func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrUnix:
		return a.Name
	}
	return ""
}
