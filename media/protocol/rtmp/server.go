package rtmp

import (
	"context"
	"fmt"

	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/event"
	"github.com/bugVanisher/rtmpd/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server accepts RTMP connections and runs their sessions on one reactor.
type Server struct {
	opts     Options
	reactor  *event.Reactor
	listener *event.Listener
	lconn    *event.Connection
	sessions map[uint64]*Session
}

// NewServer 创建rtmp服务端
func NewServer(r *event.Reactor, opt ...Option) *Server {
	opts := NewOptions()
	for _, o := range opt {
		o(&opts)
	}
	opts.normalize()
	return &Server{
		opts:     opts,
		reactor:  r,
		sessions: make(map[uint64]*Session),
	}
}

// Listen binds port (0 picks one) and starts accepting on the reactor.
func (srv *Server) Listen(port int) error {
	l, err := event.Listen(port, srv.opts.Backlog)
	if err != nil {
		return errors.Wrapf(err, "[server] listen port %d", port)
	}
	c := event.NewConnection(l, nil, fmt.Sprintf(":%d", l.Port()))
	c.SetHandler(acceptor{srv: srv})
	if err = srv.reactor.Register(c); err != nil {
		l.Close()
		return err
	}
	if err = srv.reactor.AddEvent(c.Read); err != nil {
		c.Close()
		return err
	}
	srv.listener = l
	srv.lconn = c
	log.Info().Int("port", l.Port()).Msg("[server] listening")
	return nil
}

// Port returns the bound port, 0 before Listen.
func (srv *Server) Port() int {
	if srv.listener == nil {
		return 0
	}
	return srv.listener.Port()
}

type acceptor struct {
	srv *Server
}

func (a acceptor) OnReadable(c *event.Connection) {
	for {
		fd, addr, err := a.srv.listener.Accept()
		if err != nil {
			if !errors.Is(err, event.ErrAgain) {
				log.Error().Err(err).Msg("[server] accept")
			}
			return
		}
		sock, err := event.NewSocket(fd)
		if err != nil {
			log.Error().Err(err).Str("remote", addr).Msg("[server] new socket")
			continue
		}
		if _, err = a.srv.InitConnection(sock, addr); err != nil {
			log.Error().Err(err).Str("remote", addr).Msg("[server] init connection")
		}
	}
}

func (a acceptor) OnWritable(c *event.Connection) {}

// InitConnection creates the arena, connection and session of an accepted
// socket and starts the handshake. The session may already be closed when it
// is returned.
func (srv *Server) InitConnection(sock event.Socket, remoteAddr string) (*Session, error) {
	a := arena.New(arena.WithBlockSize(srv.opts.ArenaBlockSize), arena.WithLimit(srv.opts.ArenaLimit))
	c := event.NewConnection(sock, a, remoteAddr)
	if err := srv.reactor.Register(c); err != nil {
		a.Destroy()
		sock.Close()
		return nil, err
	}

	s := newSession(c, &srv.opts)
	s.onClose = srv.remove
	srv.sessions[s.id] = s
	c.SetHandler(s)

	log.Info().Uint64("session", s.id).Str("remote", remoteAddr).Msg("[rtmp] session accepted")
	s.start()
	return s, nil
}

func (srv *Server) remove(s *Session) {
	delete(srv.sessions, s.id)
}

// Session looks up a live session.
func (srv *Server) Session(id uint64) *Session {
	return srv.sessions[id]
}

// Sessions returns the number of live sessions.
func (srv *Server) Sessions() int {
	return len(srv.sessions)
}

// Run drives the reactor until ctx is done, then shuts down.
func (srv *Server) Run(ctx context.Context) error {
	defer srv.Shutdown()
	for !utils.ContextDone(ctx) {
		if err := srv.reactor.RunOnce(event.DefaultMaxWait); err != nil {
			return err
		}
	}
	log.Info().Int("sessions", len(srv.sessions)).Msg("[server] stopping")
	return nil
}

// Shutdown closes every session, the listener and the reactor.
func (srv *Server) Shutdown() {
	for _, s := range srv.sessions {
		s.Close("shutdown")
	}
	if srv.lconn != nil {
		if err := srv.lconn.Close(); err != nil {
			log.Warn().Err(err).Msg("[server] close listener")
		}
		srv.lconn = nil
	}
	if err := srv.reactor.Close(); err != nil {
		log.Warn().Err(err).Msg("[server] close reactor")
	}
}
