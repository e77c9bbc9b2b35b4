package rtmp

import (
	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/common/errs"
	"github.com/bugVanisher/rtmpd/utils/bits/pio"
	"github.com/rs/zerolog/log"
)

const maxPriority = 3

// outChunkStream remembers the last header sent on a chunk stream id so the
// next one can be compressed.
type outChunkStream struct {
	hdr   Header
	dtime uint32
	ext   bool
}

type outMsg struct {
	chain arena.Chain // unsent part
	bufs  arena.Chain // every buffer, for recycling
}

// SendMessage chunks payload and queues it for sending. priority goes from 0
// (most important) to 3; low priority messages are dropped first when the
// queue fills up and may wait until enough of them are queued.
func (s *Session) SendMessage(h Header, payload []byte, priority int) error {
	switch s.state {
	case StateActive:
	case StateClosed:
		return errs.ErrSessionClosed
	default:
		return errs.Newf(errs.CodeProtocol, "session %d not active, state=%s", s.id, s.state)
	}

	if priority > maxPriority {
		priority = maxPriority
	}
	if priority < 0 {
		priority = 0
	}

	nmsg := s.outq.Length() + 1
	if nmsg+priority*s.opts.OutQueue/4 >= s.opts.OutQueue {
		s.debug("drop message %s priority=%d queued=%d", h, priority, nmsg-1)
		return errs.ErrOutQueueFull
	}

	chain, err := s.prepareMessage(h, payload)
	if err != nil {
		return err
	}
	s.outq.Add(&outMsg{chain: chain, bufs: chain})

	if priority > 0 && nmsg < s.opts.OutCork {
		return nil
	}
	if !s.conn.Write.Active {
		s.flush()
	}
	return nil
}

// prepareMessage serializes one message into chunks, choosing the smallest
// header the receiver can expand from the previous message on the same csid.
func (s *Session) prepareMessage(h Header, payload []byte) (arena.Chain, error) {
	if h.Csid < csidControl || h.Csid > 65599 {
		return nil, errs.Newf(errs.CodeProtocol, "invalid csid %d", h.Csid)
	}
	h.Mlen = uint32(len(payload))

	lh, seen := s.outStreams[h.Csid]
	fmtv := uint8(0)
	ts := h.Timestamp
	if seen && h.Msid == lh.hdr.Msid {
		fmtv = 1
		ts = h.Timestamp - lh.hdr.Timestamp
		if h.Type == lh.hdr.Type && h.Mlen > 0 && h.Mlen == lh.hdr.Mlen {
			fmtv = 2
			if ts == lh.dtime {
				fmtv = 3
			}
		}
	}

	ext := lh.ext
	if fmtv < 3 {
		ext = ts >= FlvTimestampMax
	}

	var chain arena.Chain
	size := int(s.outChunkSize)
	for off, f := 0, fmtv; off < len(payload) || chain == nil; f = 3 {
		b, err := s.allocOutBuf()
		if err != nil {
			return nil, err
		}
		n := fillChunkHeader(b.Free(), f, h, ts, ext)
		b.Commit(n)

		end := off + size
		if end > len(payload) {
			end = len(payload)
		}
		b.Write(payload[off:end])
		off = end
		chain = append(chain, b)
	}

	lh.hdr = h
	lh.ext = ext
	if fmtv == 0 {
		lh.dtime = 0
	} else {
		lh.dtime = ts
	}
	s.outStreams[h.Csid] = lh

	s.debug("send message fmt=%d %s chunks=%d", fmtv, h, len(chain))
	return chain, nil
}

// fillChunkHeader writes the basic header, the fmt-sized message header and
// the extended timestamp into b. It returns the header length.
func fillChunkHeader(b []byte, fmtv uint8, h Header, ts uint32, ext bool) int {
	n := 0
	switch {
	case h.Csid < 64:
		b[0] = fmtv<<6 | byte(h.Csid)
		n = 1
	case h.Csid < 64+256:
		b[0] = fmtv << 6
		b[1] = byte(h.Csid - 64)
		n = 2
	default:
		b[0] = fmtv<<6 | 1
		b[1] = byte(h.Csid - 64)
		b[2] = byte((h.Csid - 64) >> 8)
		n = 3
	}

	//  0                   1                   2                   3
	//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |                   timestamp                   |message length |
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |     message length (cont)     |message type id| msg stream id |
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |           message stream id (cont)            |
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//
	//       Figure 9 Chunk Message Header - Type 0
	if fmtv <= 2 {
		if ext {
			pio.PutU24BE(b[n:], FlvTimestampMax)
		} else {
			pio.PutU24BE(b[n:], ts)
		}
		n += 3
		if fmtv <= 1 {
			pio.PutU24BE(b[n:], h.Mlen)
			b[n+3] = h.Type
			n += 4
			if fmtv == 0 {
				pio.PutU32LE(b[n:], h.Msid)
				n += 4
			}
		}
	}
	if ext {
		pio.PutU32BE(b[n:], ts)
		n += 4
	}
	return n
}

func (s *Session) outBufSize() int {
	return int(s.outChunkSize) + MaxChunkHeader
}

func (s *Session) allocOutBuf() (*arena.Buf, error) {
	if n := len(s.outFree); n > 0 {
		b := s.outFree[n-1]
		s.outFree = s.outFree[:n-1]
		b.Reset()
		return b, nil
	}
	b, err := s.arena.NewBuf(s.outBufSize())
	if err != nil {
		return nil, errs.Wrapf(err, "alloc out chunk")
	}
	return b, nil
}

func (s *Session) recycleOut(bufs arena.Chain) {
	size := s.outBufSize()
	for _, b := range bufs {
		if b.Cap() == size {
			s.outFree = append(s.outFree, b)
		}
	}
}

// flush writes queued messages until the queue drains or the socket blocks.
// A blocked flush waits for writability under the send timeout.
func (s *Session) flush() {
	c := s.conn
	sent := c.Sent()
	defer func() {
		s.flow.StatOut(int(c.Sent() - sent))
	}()

	for s.outq.Length() > 0 {
		m := s.outq.Peek().(*outMsg)
		rest, err := c.SendChain(m.chain, 0)
		if err != nil {
			s.finalize("send", err)
			return
		}
		if len(rest) > 0 {
			m.chain = rest
			if err = s.reactor.AddEvent(c.Write); err != nil {
				s.finalize("send", err)
				return
			}
			s.reactor.AddTimer(c.Write, s.opts.Timeout)
			return
		}
		s.outq.Remove()
		s.recycleOut(m.bufs)
	}

	s.reactor.DelTimer(c.Write)
	if err := s.reactor.DelEvent(c.Write); err != nil {
		log.Warn().Err(err).Uint64("session", s.id).Msg("[rtmp] disarm write")
	}
}

// Queued returns the number of messages waiting to be sent.
func (s *Session) Queued() int {
	if s.outq == nil {
		return 0
	}
	return s.outq.Length()
}
