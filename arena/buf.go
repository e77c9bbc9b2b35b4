package arena

// Buf is a byte region with a read cursor (pos) and a write cursor (last).
// 0 <= pos <= last <= len(data) always holds.
type Buf struct {
	data []byte
	pos  int
	last int
}

// NewBuf wraps p as an empty Buf.
func NewBuf(p []byte) *Buf {
	return &Buf{data: p}
}

// BufFrom wraps p as a Buf whose content is all of p.
func BufFrom(p []byte) *Buf {
	return &Buf{data: p, last: len(p)}
}

// Bytes returns the unread region.
func (b *Buf) Bytes() []byte {
	return b.data[b.pos:b.last]
}

// Free returns the writable region after last.
func (b *Buf) Free() []byte {
	return b.data[b.last:]
}

// Len is the number of unread bytes.
func (b *Buf) Len() int {
	return b.last - b.pos
}

func (b *Buf) Cap() int {
	return len(b.data)
}

func (b *Buf) Full() bool {
	return b.last == len(b.data)
}

// Advance marks n unread bytes as consumed.
func (b *Buf) Advance(n int) {
	if n > b.Len() {
		n = b.Len()
	}
	b.pos += n
}

// Commit marks n bytes of the free region as written.
func (b *Buf) Commit(n int) {
	if n > len(b.data)-b.last {
		n = len(b.data) - b.last
	}
	b.last += n
}

// Write copies as much of p as fits and returns the count.
func (b *Buf) Write(p []byte) int {
	n := copy(b.data[b.last:], p)
	b.last += n
	return n
}

// Compact moves the unread region to the start of the buffer.
func (b *Buf) Compact() {
	if b.pos == 0 {
		return
	}
	n := copy(b.data, b.data[b.pos:b.last])
	b.pos = 0
	b.last = n
}

func (b *Buf) Reset() {
	b.pos = 0
	b.last = 0
}

// Chain is an ordered sequence of buffers forming one logical payload. Bufs
// may be shared between chains.
type Chain []*Buf

// Len returns the unread bytes of the whole chain.
func (c Chain) Len() int {
	n := 0
	for _, b := range c {
		n += b.Len()
	}
	return n
}

// CopyTo copies the unread bytes of the chain into dst without consuming
// them and returns the count.
func (c Chain) CopyTo(dst []byte) int {
	n := 0
	for _, b := range c {
		if n == len(dst) {
			break
		}
		n += copy(dst[n:], b.Bytes())
	}
	return n
}

// Bytes returns a flat copy of the chain.
func (c Chain) Bytes() []byte {
	p := make([]byte, c.Len())
	c.CopyTo(p)
	return p
}
