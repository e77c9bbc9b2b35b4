//go:build !linux
// +build !linux

package event

// NewPoller is only implemented on Linux.
func NewPoller() (Poller, error) {
	return nil, ErrNotSupported
}

func NewSocket(fd int) (Socket, error) {
	return nil, ErrNotSupported
}

type Listener struct{}

func Listen(port int, backlog int) (*Listener, error) {
	return nil, ErrNotSupported
}

func (l *Listener) Accept() (int, string, error) {
	return -1, "", ErrNotSupported
}

func (l *Listener) Port() int {
	return 0
}

func (l *Listener) Fd() int {
	return -1
}

func (l *Listener) Read(p []byte) (int, error) {
	return 0, ErrNotSupported
}

func (l *Listener) Write(p []byte) (int, error) {
	return 0, ErrNotSupported
}

func (l *Listener) Close() error {
	return nil
}
