package rtmp

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/common/errs"
	"github.com/bugVanisher/rtmpd/event"
	"github.com/bugVanisher/rtmpd/protocol/common"
	"github.com/bugVanisher/rtmpd/statistics"
	"github.com/eapache/queue"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type State uint8

const (
	StateAccepted State = iota
	StateHandshaking
	StateActive
	StateClosed
)

func (st State) String() string {
	switch st {
	case StateAccepted:
		return "accepted"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ConnectInfo carries the connect command parameters, filled in by the
// message handler once it has decoded them.
type ConnectInfo struct {
	App      string
	Args     string
	FlashVer string
	SwfURL   string
	TcURL    string
	PageURL  string
	ACodecs  float64
	VCodecs  float64
}

// Session is one RTMP connection. All methods must be called from the
// reactor goroutine.
type Session struct {
	id      uint64
	opts    *Options
	conn    *event.Connection
	reactor *event.Reactor
	arena   *arena.Arena
	state   State
	epoch   time.Time
	hs      *handshake
	connect ConnectInfo
	onClose func(s *Session)

	// input
	in          *arena.Buf
	inArena     *arena.Arena
	inFree      []*arena.Buf
	inGen       uint32
	inChunkSize uint32
	streams     []chunkStream
	cur         *chunkStream
	curBuf      *arena.Buf
	curLeft     uint32

	inBytes   uint32
	inLastAck uint32
	ackSize   uint32
	bandwidth uint32
	limitType uint8
	buflen    uint32

	// output
	outChunkSize uint32
	outStreams   map[uint32]outChunkStream
	outFree      []*arena.Buf
	outq         *queue.Queue

	ping       *event.Event
	pingActive bool
	pingReset  bool

	flow    *statistics.Flow
	debuger *Debuger
}

func newSession(c *event.Connection, opts *Options) *Session {
	s := &Session{
		id:           c.ID(),
		opts:         opts,
		conn:         c,
		reactor:      c.Reactor(),
		arena:        c.Arena(),
		state:        StateAccepted,
		epoch:        c.Reactor().Now(),
		inChunkSize:  DefaultChunkSize,
		outChunkSize: DefaultChunkSize,
		ackSize:      opts.AckWindow,
		buflen:       uint32(opts.BufLen / time.Millisecond),
		outStreams:   make(map[uint32]outChunkStream),
		outq:         queue.New(),
		flow:         statistics.NewFlow(),
	}
	s.ping = event.NewTimer(s.onPing)
	return s
}

// start runs the connect hook and begins the handshake.
func (s *Session) start() {
	if s.opts.EnableDebug {
		s.debuger = NewDebuger(fmt.Sprintf("session-%d", s.id))
		name := filepath.Join(s.opts.DebugDir, fmt.Sprintf("rtmp-%d-%d.log", s.id, s.epoch.Unix()))
		if err := s.debuger.StartDebug(name, s.opts.DebugDuration); err != nil {
			log.Warn().Err(err).Uint64("session", s.id).Msg("[rtmp] start debug")
		}
	}

	if s.opts.Hook != nil {
		if err := s.opts.Hook.OnConnect(s.Info()); err != nil {
			s.finalize("connect rejected", errs.Wrapf(errs.ErrConnectRejected, "%v", err))
			return
		}
	}
	if err := s.startHandshake(); err != nil {
		s.finalize("handshake init", err)
	}
}

func (s *Session) handshakeDone() {
	s.hs = nil

	in, err := s.arena.NewBuf(s.opts.ReadBufferSize)
	if err != nil {
		s.finalize("alloc read buffer", err)
		return
	}
	s.in = in
	s.inArena = s.newInArena()
	s.streams = make([]chunkStream, s.opts.MaxStreams)
	s.state = StateActive

	log.Info().Uint64("session", s.id).Str("remote", s.conn.RemoteAddr()).Msg("[rtmp] handshake done")
	if s.opts.Hook != nil {
		s.opts.Hook.OnHandshakeDone(s.Info())
		if s.state != StateActive {
			return
		}
	}

	if err = s.sendGreeting(); err != nil {
		s.finalize("greeting", err)
		return
	}
	s.resetPing()
	s.recv()
}

// sendGreeting announces the server side window and chunk size.
func (s *Session) sendGreeting() error {
	if err := s.SendAckSize(s.opts.AckWindow); err != nil {
		return err
	}
	if err := s.SendBandwidth(s.opts.AckWindow, LimitDynamic); err != nil {
		return err
	}
	if s.opts.ChunkSize != DefaultChunkSize {
		return s.SendChunkSize(s.opts.ChunkSize)
	}
	return nil
}

// OnReadable implements event.Handler.
func (s *Session) OnReadable(c *event.Connection) {
	switch s.state {
	case StateHandshaking:
		if s.hs.stage == hsRecvC0C1 || s.hs.stage == hsRecvC2 {
			s.handshakeRecv()
		}
	case StateActive:
		s.recv()
	}
}

// OnWritable implements event.Handler.
func (s *Session) OnWritable(c *event.Connection) {
	switch s.state {
	case StateHandshaking:
		if s.hs.stage == hsSendS0S1S2 {
			s.handshakeSend()
		}
	case StateActive:
		if c.Write.Timedout {
			s.finalize("send timeout", nil)
			return
		}
		s.flush()
	}
}

// recv reads until the socket would block, parsing as it goes.
func (s *Session) recv() {
	c := s.conn
	for s.state == StateActive {
		if err := s.parse(); err != nil {
			s.finalize("protocol", err)
			return
		}
		if s.state != StateActive {
			return
		}

		if s.in.Len() == 0 {
			s.in.Reset()
		} else {
			s.in.Compact()
		}

		n, err := c.Receive(s.in)
		if err != nil {
			switch {
			case errors.Is(err, event.ErrAgain):
			case err == io.EOF:
				s.finalize("disconnect", nil)
			default:
				s.finalize("recv", err)
			}
			return
		}

		s.flow.StatIn(n)
		s.pingReset = true
		if err = s.countInBytes(n); err != nil {
			s.finalize("ack", err)
			return
		}
	}
}

func (s *Session) countInBytes(n int) error {
	if s.inBytes >= maxInBytes {
		s.inBytes = 0
		s.inLastAck = 0
	}
	s.inBytes += uint32(n)

	if s.ackSize == 0 || s.inBytes-s.inLastAck < s.ackSize {
		return nil
	}
	s.inLastAck = s.inBytes
	if err := s.SendAck(s.inBytes); err != nil && !errors.Is(err, errs.ErrOutQueueFull) {
		return err
	}
	return nil
}

func (s *Session) resetPing() {
	s.pingActive = false
	s.pingReset = false
	if s.opts.Ping > 0 {
		s.reactor.AddTimer(s.ping, s.opts.Ping)
	}
}

func (s *Session) onPing(ev *event.Event) {
	if s.state != StateActive {
		return
	}
	if s.pingReset {
		s.resetPing()
		return
	}
	if s.pingActive {
		s.finalize("ping timeout", nil)
		return
	}

	ts := s.timestamp()
	s.debug("send ping_request timestamp=%d", ts)
	if err := s.SendPingRequest(ts); err != nil {
		if s.state == StateClosed {
			return
		}
		log.Warn().Err(err).Uint64("session", s.id).Msg("[rtmp] ping request")
	}
	s.pingActive = true
	s.reactor.AddTimer(s.ping, s.opts.PingTimeout)
}

// timestamp is the session time in milliseconds.
func (s *Session) timestamp() uint32 {
	return uint32(s.reactor.Now().Sub(s.epoch) / time.Millisecond)
}

// Close finalizes the session. Only the first call has an effect.
func (s *Session) Close(reason string) {
	s.finalize(reason, nil)
}

func (s *Session) finalize(reason string, err error) {
	if s.state == StateClosed {
		return
	}
	prev := s.state
	s.state = StateClosed

	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Uint64("session", s.id).
		Str("remote", s.conn.RemoteAddr()).
		Str("state", prev.String()).
		Str("reason", reason).
		Str("in", s.flow.In.String()).
		Str("out", s.flow.Out.String()).
		Msg("[rtmp] session closed")
	s.debug("close state=%s reason=%s err=%v", prev, reason, err)

	s.reactor.DelTimer(s.ping)
	if s.opts.Hook != nil {
		s.opts.Hook.OnDisconnect(s.Info())
	}
	if cerr := s.conn.Close(); cerr != nil {
		log.Warn().Err(cerr).Uint64("session", s.id).Msg("[rtmp] close connection")
	}

	if s.inArena != nil {
		s.inArena.Destroy()
	}
	s.arena.Destroy()
	s.hs = nil
	s.in = nil
	s.cur, s.curBuf = nil, nil
	s.streams = nil
	s.inFree = nil
	s.outFree = nil
	for s.outq.Length() > 0 {
		s.outq.Remove()
	}

	s.debuger.StopDebug()
	if s.onClose != nil {
		s.onClose(s)
	}
}

func (s *Session) debug(format string, args ...interface{}) {
	if !s.debuger.Enabled() {
		return
	}
	s.debuger.Debug(format, args...)
}

func (s *Session) ID() uint64 {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Connection() *event.Connection {
	return s.conn
}

// InChunkSize is the chunk size the peer sends with.
func (s *Session) InChunkSize() uint32 {
	return s.inChunkSize
}

// OutChunkSize is the chunk size used for sending.
func (s *Session) OutChunkSize() uint32 {
	return s.outChunkSize
}

// AckSize is the acknowledgement window requested by the peer.
func (s *Session) AckSize() uint32 {
	return s.ackSize
}

// BufLen is the client buffer length in milliseconds.
func (s *Session) BufLen() uint32 {
	return s.buflen
}

// Bandwidth returns the peer bandwidth and limit type last announced.
func (s *Session) Bandwidth() (uint32, uint8) {
	return s.bandwidth, s.limitType
}

func (s *Session) Flow() *statistics.Flow {
	return s.flow
}

func (s *Session) SetConnectInfo(ci ConnectInfo) {
	s.connect = ci
}

func (s *Session) ConnectInfo() ConnectInfo {
	return s.connect
}

// Info snapshots the session for hooks and logs.
func (s *Session) Info() common.Info {
	return common.Info{
		ID:         s.id,
		RemoteAddr: s.conn.RemoteAddr(),
		App:        s.connect.App,
		Args:       s.connect.Args,
		FlashVer:   s.connect.FlashVer,
		SwfURL:     s.connect.SwfURL,
		TcURL:      s.connect.TcURL,
		PageURL:    s.connect.PageURL,
		ACodecs:    s.connect.ACodecs,
		VCodecs:    s.connect.VCodecs,
		State:      s.state.String(),
		InBytes:    s.conn.Received(),
		OutBytes:   s.conn.Sent(),
		Epoch:      s.epoch.UnixMilli(),
	}
}
