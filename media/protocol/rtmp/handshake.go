package rtmp

import (
	"crypto/rand"
	"io"

	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/common/errs"
	"github.com/bugVanisher/rtmpd/event"
	"github.com/bugVanisher/rtmpd/utils/bits/pio"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type hsStage uint8

const (
	hsRecvC0C1 hsStage = iota
	hsSendS0S1S2
	hsRecvC2
	hsDone
)

func (st hsStage) String() string {
	switch st {
	case hsRecvC0C1:
		return "recv_c0c1"
	case hsSendS0S1S2:
		return "send_s0s1s2"
	case hsRecvC2:
		return "recv_c2"
	case hsDone:
		return "done"
	}
	return "unknown"
}

// handshake holds the scratch buffers of the plain handshake. Both live in
// the session arena.
type handshake struct {
	stage hsStage
	raw   []byte     // C0C1 storage, reused for C2
	in    *arena.Buf // bytes of the current inbound stage
	out   *arena.Buf // S0S1S2
}

func (s *Session) startHandshake() error {
	raw, err := s.arena.Alloc(1 + HandshakeSize)
	if err != nil {
		return errs.Wrapf(err, "alloc C0C1")
	}
	out, err := s.arena.NewBuf(1 + 2*HandshakeSize)
	if err != nil {
		return errs.Wrapf(err, "alloc S0S1S2")
	}
	s.hs = &handshake{
		stage: hsRecvC0C1,
		raw:   raw,
		in:    arena.NewBuf(raw),
		out:   out,
	}
	s.state = StateHandshaking
	if err = s.reactor.AddEvent(s.conn.Read); err != nil {
		return err
	}
	s.handshakeRecv()
	return nil
}

// fillResponse writes S0, S1 (time, zero, random) and S2 (echo of C1).
func (hs *handshake) fillResponse(c1 []byte, epoch uint32) error {
	p := hs.out.Free()[:1+2*HandshakeSize]

	//  0 1 2 3 4 5 6 7
	// +-+-+-+-+-+-+-+-+
	// |    version    |
	// +-+-+-+-+-+-+-+-+
	//
	//  Figure 2 C0 and S0 bits
	p[0] = Version

	//  0                   1                   2                   3
	//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |                        time (4 bytes)                         |
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |                        zero (4 bytes)                         |
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |                        random bytes                           |
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//
	//  Figure 3 C1 and S1 bits
	s1 := p[1 : 1+HandshakeSize]
	pio.PutU32BE(s1[0:4], epoch)
	pio.PutU32BE(s1[4:8], 0)
	if _, err := rand.Read(s1[8:]); err != nil {
		return errors.Wrap(err, "random S1")
	}

	s2 := p[1+HandshakeSize:]
	if len(c1) == HandshakeSize {
		copy(s2, c1)
	} else {
		clear(s2)
	}
	hs.out.Commit(len(p))
	return nil
}

func (s *Session) handshakeRecv() {
	c := s.conn
	hs := s.hs

	if c.Read.Timedout {
		s.finalize("handshake recv timeout", nil)
		return
	}
	s.reactor.DelTimer(c.Read)

	for !hs.in.Full() {
		if _, err := c.Receive(hs.in); err != nil {
			switch {
			case errors.Is(err, event.ErrAgain):
				s.reactor.AddTimer(c.Read, s.opts.Timeout)
			case err == io.EOF:
				s.finalize("peer closed during handshake", nil)
			default:
				s.finalize("handshake recv", err)
			}
			return
		}
	}

	switch hs.stage {
	case hsRecvC0C1:
		p := hs.in.Bytes()
		if p[0] != Version {
			s.finalize("handshake", errs.Newf(errs.CodeHandshake, "unsupported rtmp version %d", p[0]))
			return
		}
		s.debug("recv C0C1 version=%d time=%d", p[0], pio.U32BE(p[1:5]))
		hs.stage = hsSendS0S1S2
		if err := hs.fillResponse(p[1:], uint32(s.reactor.Now().Unix())); err != nil {
			s.finalize("handshake", err)
			return
		}
		// C1 is copied into S2, the storage now takes C2
		hs.in = arena.NewBuf(hs.raw[:HandshakeSize])
		s.handshakeSend()

	case hsRecvC2:
		s.debug("recv C2")
		hs.stage = hsDone
		s.handshakeDone()

	default:
		log.Warn().Uint64("session", s.id).Str("stage", hs.stage.String()).Msg("[rtmp] unexpected handshake read")
	}
}

func (s *Session) handshakeSend() {
	c := s.conn
	hs := s.hs

	if c.Write.Timedout {
		s.finalize("handshake send timeout", nil)
		return
	}
	s.reactor.DelTimer(c.Write)

	for hs.out.Len() > 0 {
		if _, err := c.Send(hs.out); err != nil {
			if !errors.Is(err, event.ErrAgain) {
				s.finalize("handshake send", err)
				return
			}
			if err = s.reactor.AddEvent(c.Write); err != nil {
				s.finalize("handshake send", err)
				return
			}
			s.reactor.AddTimer(c.Write, s.opts.Timeout)
			return
		}
	}

	if err := s.reactor.DelEvent(c.Write); err != nil {
		s.finalize("handshake send", err)
		return
	}
	s.debug("sent S0S1S2")
	hs.stage = hsRecvC2
	// C2 may already be waiting; no new edge will report it
	s.handshakeRecv()
}
