package rtmp

import (
	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/common/errs"
	"github.com/bugVanisher/rtmpd/utils/bits/pio"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func shortMessage(h Header, n, need int) error {
	return errs.Newf(errs.CodeProtocol, "%s message too short, %d < %d", MessageTypeName(h.Type), n, need)
}

// handleControl applies protocol control messages (types 1 to 6).
func (s *Session) handleControl(h Header, in arena.Chain) error {
	var b [10]byte
	n := in.CopyTo(b[:])

	switch h.Type {
	case msgtypeidSetChunkSize:
		if n < 4 {
			return shortMessage(h, n, 4)
		}
		size := pio.U32BE(b[:])
		if err := s.setInChunkSize(size); err != nil {
			log.Warn().Err(err).Uint64("session", s.id).Uint32("size", size).Msg("[rtmp] ignore chunk size")
			return nil
		}
		s.debug("in chunk size=%d", size)

	case msgtypeidAbort:
		if n < 4 {
			return shortMessage(h, n, 4)
		}
		csid := pio.U32BE(b[:])
		s.abortStream(csid)
		s.debug("abort csid=%d", csid)

	case msgtypeidAck:
		if n < 4 {
			return shortMessage(h, n, 4)
		}
		s.debug("ack seq=%d", pio.U32BE(b[:]))

	case msgtypeidUserControl:
		return s.handleUserControl(h, b[:n])

	case msgtypeidWindowAckSize:
		if n < 4 {
			return shortMessage(h, n, 4)
		}
		s.ackSize = pio.U32BE(b[:])
		s.debug("ack size=%d", s.ackSize)

	case msgtypeidSetPeerBandwidth:
		if n < 5 {
			return shortMessage(h, n, 5)
		}
		s.bandwidth = pio.U32BE(b[:])
		s.limitType = b[4]
		s.debug("bandwidth=%d limit=%d", s.bandwidth, s.limitType)
	}
	return nil
}

func (s *Session) handleUserControl(h Header, p []byte) error {
	if len(p) < 2 {
		return shortMessage(h, len(p), 2)
	}
	evt := pio.U16BE(p)
	p = p[2:]

	switch evt {
	case eventtypeSetBufferLength:
		if len(p) < 8 {
			return shortMessage(h, len(p)+2, 10)
		}
		s.buflen = pio.U32BE(p[4:])
		s.debug("user %s msid=%d buflen=%d", UserEventName(evt), pio.U32BE(p), s.buflen)

	case eventtypePingRequest:
		if len(p) < 4 {
			return shortMessage(h, len(p)+2, 6)
		}
		ts := pio.U32BE(p)
		s.debug("user ping_request timestamp=%d", ts)
		if err := s.SendPingResponse(ts); err != nil && !errors.Is(err, errs.ErrOutQueueFull) {
			return err
		}

	case eventtypePingResponse:
		if len(p) < 4 {
			return shortMessage(h, len(p)+2, 6)
		}
		s.pingActive = false
		s.debug("user ping_response timestamp=%d", pio.U32BE(p))

	default:
		if len(p) >= 4 {
			s.debug("user %s msid=%d", UserEventName(evt), pio.U32BE(p))
		} else {
			s.debug("user %s", UserEventName(evt))
		}
	}
	return nil
}

func (s *Session) sendControl(typ uint8, payload []byte) error {
	return s.SendMessage(Header{Csid: csidControl, Type: typ, Msid: msidControl}, payload, 0)
}

// SendChunkSize announces size and chunks every later message with it.
func (s *Session) SendChunkSize(size int) error {
	if size < 1 || size > MaxChunkSize {
		return errs.Wrapf(errs.ErrChunkSize, "%d", size)
	}
	var b [4]byte
	pio.PutU32BE(b[:], uint32(size))
	if err := s.sendControl(msgtypeidSetChunkSize, b[:]); err != nil {
		return err
	}
	if uint32(size) != s.outChunkSize {
		s.outChunkSize = uint32(size)
		s.outFree = nil
	}
	return nil
}

func (s *Session) SendAbort(csid uint32) error {
	var b [4]byte
	pio.PutU32BE(b[:], csid)
	return s.sendControl(msgtypeidAbort, b[:])
}

// SendAck acknowledges seq received bytes.
func (s *Session) SendAck(seq uint32) error {
	var b [4]byte
	pio.PutU32BE(b[:], seq)
	return s.sendControl(msgtypeidAck, b[:])
}

func (s *Session) SendAckSize(size uint32) error {
	var b [4]byte
	pio.PutU32BE(b[:], size)
	return s.sendControl(msgtypeidWindowAckSize, b[:])
}

func (s *Session) SendBandwidth(size uint32, limit uint8) error {
	var b [5]byte
	pio.PutU32BE(b[:], size)
	b[4] = limit
	return s.sendControl(msgtypeidSetPeerBandwidth, b[:])
}

func (s *Session) sendUserControl(evt uint16, args ...uint32) error {
	var b [10]byte
	pio.PutU16BE(b[:], evt)
	n := 2
	for _, v := range args {
		pio.PutU32BE(b[n:], v)
		n += 4
	}
	return s.sendControl(msgtypeidUserControl, b[:n])
}

func (s *Session) SendStreamBegin(msid uint32) error {
	return s.sendUserControl(eventtypeStreamBegin, msid)
}

func (s *Session) SendStreamEOF(msid uint32) error {
	return s.sendUserControl(eventtypeStreamEOF, msid)
}

func (s *Session) SendStreamDry(msid uint32) error {
	return s.sendUserControl(eventtypeStreamDry, msid)
}

func (s *Session) SendSetBufferLength(msid, buflen uint32) error {
	return s.sendUserControl(eventtypeSetBufferLength, msid, buflen)
}

func (s *Session) SendRecorded(msid uint32) error {
	return s.sendUserControl(eventtypeStreamIsRecorded, msid)
}

func (s *Session) SendPingRequest(timestamp uint32) error {
	return s.sendUserControl(eventtypePingRequest, timestamp)
}

func (s *Session) SendPingResponse(timestamp uint32) error {
	return s.sendUserControl(eventtypePingResponse, timestamp)
}
