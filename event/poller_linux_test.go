//go:build linux
// +build linux

package event_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/event"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEpoll_SocketpairRoundTrip(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.Nil(t, err)
	defer unix.Close(fds[1])

	p, err := event.NewPoller()
	require.Nil(t, err)
	r := event.NewReactor(p)
	defer r.Close()

	sock, err := event.NewSocket(fds[0])
	require.Nil(t, err)
	c := event.NewConnection(sock, arena.New(), "pair")

	var got []byte
	var sawEOF bool
	buf := arena.NewBuf(make([]byte, 4))
	h := &recorder{onRead: func(c *event.Connection) {
		for {
			_, err := c.Receive(buf)
			if errors.Is(err, event.ErrAgain) {
				return
			}
			if err == io.EOF {
				sawEOF = true
				return
			}
			require.Nil(t, err)
			got = append(got, buf.Bytes()...)
			buf.Reset()
		}
	}}
	c.SetHandler(h)
	require.Nil(t, r.Register(c))
	require.Nil(t, r.AddEvent(c.Read))

	_, err = unix.Write(fds[1], []byte("hello, reactor"))
	require.Nil(t, err)
	require.Nil(t, r.RunOnce(time.Second))
	require.Equal(t, "hello, reactor", string(got))

	_, err = unix.Write(fds[1], []byte("!"))
	require.Nil(t, err)
	require.Nil(t, unix.Shutdown(fds[1], unix.SHUT_WR))
	require.Nil(t, r.RunOnce(time.Second))
	require.Equal(t, "hello, reactor!", string(got))
	require.True(t, sawEOF)
}

func TestEpoll_WaitTimesOut(t *testing.T) {
	p, err := event.NewPoller()
	require.Nil(t, err)
	defer p.Close()

	start := time.Now()
	n, err := p.Wait(make([]event.PollEvent, 4), 20*time.Millisecond)
	require.Nil(t, err)
	require.Equal(t, 0, n)
	require.True(t, time.Since(start) >= 15*time.Millisecond)
}
