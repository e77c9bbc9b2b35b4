// Package arena provides the per-connection bump allocator and the Buf/Chain
// types built on top of it. Everything allocated from an Arena is released
// together by Destroy.
package arena

import (
	"github.com/bugVanisher/rtmpd/common/errs"
)

const (
	// Alignment of every small allocation.
	Alignment = 16
	// DefaultBlockSize is the size of each chained block.
	DefaultBlockSize = 4096

	// a block that failed this many times is skipped by later allocations
	maxBlockFailures = 4
)

var (
	ErrExhausted = errs.ErrArenaExhausted
	ErrDestroyed = errs.ErrArenaDestroyed
)

type block struct {
	data   []byte
	off    int
	failed int
}

// Arena is a bump allocator with chained blocks. It is not safe for
// concurrent use.
type Arena struct {
	blockSize int
	limit     int

	blocks  []*block
	current int
	large   [][]byte

	cleanups []func()

	reserved  int // bytes held by blocks and large allocations
	allocated int // bytes handed out since the last Reset

	destroyed bool
}

// Option configures an Arena.
type Option func(*Arena)

// WithBlockSize sets the size of each chained block.
func WithBlockSize(size int) Option {
	return func(a *Arena) {
		if size > 0 {
			a.blockSize = size
		}
	}
}

// WithLimit caps the total bytes the arena may reserve. 0 means no cap.
func WithLimit(limit int) Option {
	return func(a *Arena) {
		if limit >= 0 {
			a.limit = limit
		}
	}
}

// New creates an arena. The first block is reserved lazily.
func New(opts ...Option) *Arena {
	a := &Arena{
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

func (a *Arena) reserve(n int) error {
	if a.limit > 0 && a.reserved+n > a.limit {
		return errs.Wrapf(ErrExhausted, "reserve %d bytes (reserved=%d limit=%d)", n, a.reserved, a.limit)
	}
	a.reserved += n
	return nil
}

// Alloc returns n bytes from the arena. The content is unspecified after a
// Reset; use Calloc for zeroed memory. The returned slice has its capacity
// capped at n.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if a.destroyed {
		return nil, ErrDestroyed
	}
	if n < 0 {
		return nil, errs.Newf(errs.CodeUnknown, "arena: negative allocation size %d", n)
	}
	if n >= a.blockSize {
		return a.allocLarge(n)
	}
	return a.allocSmall(n)
}

func (a *Arena) allocSmall(n int) ([]byte, error) {
	for i := a.current; i < len(a.blocks); i++ {
		b := a.blocks[i]
		off := align(b.off)
		if off+n <= len(b.data) {
			b.off = off + n
			a.allocated += n
			return b.data[off : off+n : off+n], nil
		}
	}
	return a.allocBlock(n)
}

// allocBlock links a fresh block and serves n bytes from it. Every block that
// was searched without success gets a failure mark.
func (a *Arena) allocBlock(n int) ([]byte, error) {
	if err := a.reserve(a.blockSize); err != nil {
		return nil, err
	}
	for i := a.current; i < len(a.blocks); i++ {
		a.blocks[i].failed++
		if a.blocks[i].failed > maxBlockFailures && i == a.current {
			a.current++
		}
	}
	b := &block{data: make([]byte, a.blockSize)}
	b.off = n
	a.blocks = append(a.blocks, b)
	a.allocated += n
	return b.data[0:n:n], nil
}

func (a *Arena) allocLarge(n int) ([]byte, error) {
	if err := a.reserve(n); err != nil {
		return nil, err
	}
	p := make([]byte, n)
	a.large = append(a.large, p)
	a.allocated += n
	return p[:n:n], nil
}

// Calloc is Alloc with the returned bytes zeroed.
func (a *Arena) Calloc(n int) ([]byte, error) {
	p, err := a.Alloc(n)
	if err != nil {
		return nil, err
	}
	clear(p)
	return p, nil
}

// NewBuf allocates a Buf with capacity n.
func (a *Arena) NewBuf(n int) (*Buf, error) {
	p, err := a.Alloc(n)
	if err != nil {
		return nil, err
	}
	return NewBuf(p), nil
}

// AddCleanup registers fn to run on Destroy. Cleanups run last-in first-out.
func (a *Arena) AddCleanup(fn func()) error {
	if a.destroyed {
		return ErrDestroyed
	}
	a.cleanups = append(a.cleanups, fn)
	return nil
}

// Reset drops large allocations and rewinds every block. Regions handed out
// earlier must not be used afterwards.
func (a *Arena) Reset() {
	if a.destroyed {
		return
	}
	for _, p := range a.large {
		a.reserved -= len(p)
	}
	a.large = nil
	for _, b := range a.blocks {
		b.off = 0
		b.failed = 0
	}
	a.current = 0
	a.allocated = 0
}

// Destroy runs the cleanups and releases all memory. It is safe to call more
// than once.
func (a *Arena) Destroy() {
	if a.destroyed {
		return
	}
	a.destroyed = true
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
	a.blocks = nil
	a.large = nil
	a.current = 0
	a.reserved = 0
	a.allocated = 0
}

// Destroyed reports whether Destroy has been called.
func (a *Arena) Destroyed() bool {
	return a.destroyed
}

// Size returns the bytes currently reserved by blocks and large allocations.
func (a *Arena) Size() int {
	return a.reserved
}

// Allocated returns the bytes handed out since the last Reset.
func (a *Arena) Allocated() int {
	return a.allocated
}

// Blocks returns the number of chained blocks.
func (a *Arena) Blocks() int {
	return len(a.blocks)
}
