package rtmp

import (
	"fmt"

	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/common/errs"
	"github.com/bugVanisher/rtmpd/utils/bits/pio"
)

// Header describes one RTMP message. Timestamp is absolute, in milliseconds.
type Header struct {
	Csid      uint32
	Timestamp uint32
	Mlen      uint32
	Type      uint8
	Msid      uint32
}

func (h Header) String() string {
	return fmt.Sprintf("csid=%d timestamp=%d mlen=%d type=%s msid=%d",
		h.Csid, h.Timestamp, h.Mlen, MessageTypeName(h.Type), h.Msid)
}

// chunkStream is the inbound state of one chunk stream id.
type chunkStream struct {
	hdr   Header
	dtime uint32 // delta applied when the message completes
	len   uint32 // payload bytes received for the message in progress
	ext   bool   // last 0/1/2 header carried an extended timestamp
	in    arena.Chain
}

// message header sizes by fmt
var chunkHeaderSizes = [4]int{11, 7, 3, 0}

// parse consumes as much of the read buffer as forms complete chunk headers
// and payload. A returned error is fatal for the session.
func (s *Session) parse() error {
	for s.state == StateActive {
		if s.cur == nil {
			n, err := s.readChunkHeader(s.in.Bytes())
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
			s.in.Advance(n)
			continue
		}

		p := s.in.Bytes()
		if len(p) == 0 {
			return nil
		}
		if uint32(len(p)) > s.curLeft {
			p = p[:s.curLeft]
		}
		s.curBuf.Write(p)
		s.in.Advance(len(p))
		s.curLeft -= uint32(len(p))
		s.cur.len += uint32(len(p))
		if s.curLeft > 0 {
			return nil
		}

		st := s.cur
		s.cur, s.curBuf = nil, nil
		if st.len == st.hdr.Mlen {
			if err := s.receiveMessage(st); err != nil {
				return err
			}
		}
	}
	return nil
}

// readChunkHeader decodes a chunk header at the start of p. It returns 0
// when p does not hold a complete header yet; nothing is consumed then.
func (s *Session) readChunkHeader(p []byte) (int, error) {
	if len(p) < 1 {
		return 0, nil
	}

	//  0 1 2 3 4 5 6 7
	// +-+-+-+-+-+-+-+-+
	// |fmt|   cs id   |
	// +-+-+-+-+-+-+-+-+
	//
	//  0                   1
	//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |fmt|     0     |  cs id - 64   |
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//
	//  0                   1                   2
	//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	// |fmt|     1     |          cs id - 64           |
	// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	fmtv := p[0] >> 6
	csid := uint32(p[0] & 0x3f)
	n := 1
	switch csid {
	case 0:
		if len(p) < 2 {
			return 0, nil
		}
		csid = 64 + uint32(p[1])
		n = 2
	case 1:
		if len(p) < 3 {
			return 0, nil
		}
		csid = 64 + uint32(p[1]) + uint32(p[2])<<8
		n = 3
	}

	if int(csid) >= len(s.streams) {
		return 0, errs.Newf(errs.CodeProtocol, "csid=%d out of range, max=%d", csid, len(s.streams)-1)
	}
	st := &s.streams[csid]

	hsize := chunkHeaderSizes[fmtv]
	if len(p) < n+hsize {
		return 0, nil
	}
	if fmtv != 3 && st.len != 0 {
		return 0, errs.Newf(errs.CodeProtocol, "csid=%d fmt=%d header inside a message, %d/%d bytes received",
			csid, fmtv, st.len, st.hdr.Mlen)
	}

	h := st.hdr
	ext := st.ext
	var ts uint32
	if fmtv <= 2 {
		ts = pio.U24BE(p[n:])
		ext = ts == FlvTimestampMax
		if fmtv <= 1 {
			h.Mlen = pio.U24BE(p[n+3:])
			h.Type = p[n+6]
			if fmtv == 0 {
				h.Msid = pio.U32LE(p[n+7:])
			}
		}
	}
	n += hsize
	if ext {
		if len(p) < n+4 {
			return 0, nil
		}
		ts = pio.U32BE(p[n:])
		n += 4
	}

	if int(h.Mlen) > s.opts.MaxMessage {
		return 0, errs.Newf(errs.CodeProtocol, "csid=%d message too long %d > %d", csid, h.Mlen, s.opts.MaxMessage)
	}

	h.Csid = csid
	st.ext = ext
	if st.len == 0 {
		switch {
		case fmtv == 0:
			h.Timestamp = ts
			st.dtime = 0
		case fmtv < 3 || ext:
			st.dtime = ts
		}
	}
	st.hdr = h

	s.debug("recv chunk fmt=%d %s dtime=%d len=%d", fmtv, h, st.dtime, st.len)

	left := h.Mlen - st.len
	if left > s.inChunkSize {
		left = s.inChunkSize
	}
	if left == 0 {
		return n, s.receiveMessage(st)
	}

	b, err := s.allocInBuf()
	if err != nil {
		return 0, err
	}
	st.in = append(st.in, b)
	s.cur, s.curBuf, s.curLeft = st, b, left
	return n, nil
}

func (s *Session) inBufSize() int {
	if int(s.inChunkSize) > s.opts.MaxMessage {
		return s.opts.MaxMessage
	}
	return int(s.inChunkSize)
}

func (s *Session) allocInBuf() (*arena.Buf, error) {
	if n := len(s.inFree); n > 0 {
		b := s.inFree[n-1]
		s.inFree = s.inFree[:n-1]
		b.Reset()
		return b, nil
	}
	b, err := s.inArena.NewBuf(s.inBufSize())
	if err != nil {
		return nil, errs.Wrapf(err, "alloc chunk buffer")
	}
	return b, nil
}

func (s *Session) recycleIn(in arena.Chain) {
	size := s.inBufSize()
	for _, b := range in {
		if b.Cap() == size {
			s.inFree = append(s.inFree, b)
		}
	}
}

// receiveMessage hands a completed message to its consumer and returns the
// chunk buffers to the free list.
func (s *Session) receiveMessage(st *chunkStream) error {
	st.hdr.Timestamp += st.dtime
	h := st.hdr
	in := st.in
	st.in = nil
	st.len = 0

	s.debug("recv message %s", h)

	gen := s.inGen
	var err error
	switch {
	case h.Type >= msgtypeidSetChunkSize && h.Type <= msgtypeidSetPeerBandwidth:
		err = s.handleControl(h, in)
	case s.opts.Handler != nil:
		err = s.opts.Handler.OnMessage(s, h, in)
	}

	// buffers of a rotated arena are gone with it
	if s.state != StateClosed && gen == s.inGen {
		s.recycleIn(in)
		if st.in == nil {
			st.in = in[:0]
		}
	}
	if err != nil {
		return errs.Wrapf(err, "%s message", MessageTypeName(h.Type))
	}
	return nil
}

// setInChunkSize switches the inbound chunk size. Chunk buffers are sized
// from it, so partially received messages move into a fresh arena and the
// old one is released.
func (s *Session) setInChunkSize(size uint32) error {
	if size < 1 || size > MaxChunkSize {
		return errs.Wrapf(errs.ErrChunkSize, "%d", size)
	}

	na := s.newInArena()
	for i := range s.streams {
		st := &s.streams[i]
		if st.len == 0 {
			continue
		}
		b, err := na.NewBuf(int(st.len))
		if err != nil {
			na.Destroy()
			return errs.Wrapf(err, "move csid=%d", i)
		}
		for _, x := range st.in {
			b.Write(x.Bytes())
		}
		st.in = arena.Chain{b}
	}

	s.inArena.Destroy()
	s.inArena = na
	s.inFree = nil
	s.inGen++
	s.inChunkSize = size
	return nil
}

func (s *Session) newInArena() *arena.Arena {
	return arena.New(arena.WithBlockSize(s.opts.ArenaBlockSize), arena.WithLimit(s.opts.ArenaLimit))
}

// abortStream drops the partial message of csid.
func (s *Session) abortStream(csid uint32) {
	if int(csid) >= len(s.streams) {
		return
	}
	st := &s.streams[csid]
	s.recycleIn(st.in)
	st.in = nil
	st.len = 0
}
