package arena

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type region struct {
	start uintptr
	size  int
}

func addr(p []byte) uintptr {
	if cap(p) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&p[:1][0]))
}

func TestArena_NoOverlap(t *testing.T) {
	a := New()
	r := rand.New(rand.NewSource(1))
	var regions []region
	for i := 0; i < 2000; i++ {
		size := 1 + r.Intn(300)
		if i%97 == 0 {
			size = DefaultBlockSize + r.Intn(1000)
		}
		p, err := a.Alloc(size)
		require.Nil(t, err)
		require.Equal(t, size, len(p))
		require.Equal(t, size, cap(p))
		for j := range p {
			p[j] = byte(i)
		}
		regions = append(regions, region{start: addr(p), size: size})
	}
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			x, y := regions[i], regions[j]
			overlap := x.start < y.start+uintptr(y.size) && y.start < x.start+uintptr(x.size)
			require.False(t, overlap, "regions %d and %d overlap", i, j)
		}
	}
}

func TestArena_Alignment(t *testing.T) {
	a := New()
	for _, size := range []int{1, 3, 17, 100, 15, 33} {
		p, err := a.Alloc(size)
		require.Nil(t, err)
		b := a.blocks[len(a.blocks)-1]
		base := addr(b.data)
		require.Equal(t, uintptr(0), (addr(p)-base)%Alignment)
	}
}

func TestArena_LargeAllocationsAreTracked(t *testing.T) {
	a := New()
	p, err := a.Alloc(DefaultBlockSize)
	require.Nil(t, err)
	require.Equal(t, DefaultBlockSize, len(p))
	require.Equal(t, 1, len(a.large))
	require.Equal(t, 0, a.Blocks())

	_, err = a.Alloc(10)
	require.Nil(t, err)
	require.Equal(t, 1, a.Blocks())
	require.Equal(t, 2*DefaultBlockSize, a.Size())
}

func TestArena_ChainsNewBlock(t *testing.T) {
	a := New(WithBlockSize(256))
	_, err := a.Alloc(200)
	require.Nil(t, err)
	_, err = a.Alloc(200)
	require.Nil(t, err)
	require.Equal(t, 2, a.Blocks())
	require.Equal(t, 400, a.Allocated())
}

func TestArena_CurrentAdvancesAfterFailures(t *testing.T) {
	a := New(WithBlockSize(128))
	_, err := a.Alloc(120)
	require.Nil(t, err)
	for i := 0; i < maxBlockFailures+1; i++ {
		_, err = a.Alloc(100)
		require.Nil(t, err)
	}
	require.True(t, a.current > 0)
}

func TestArena_Calloc(t *testing.T) {
	a := New(WithBlockSize(64))
	p, err := a.Alloc(32)
	require.Nil(t, err)
	for i := range p {
		p[i] = 0xff
	}
	a.Reset()
	z, err := a.Calloc(32)
	require.Nil(t, err)
	require.Equal(t, make([]byte, 32), z)
}

func TestArena_Limit(t *testing.T) {
	a := New(WithBlockSize(64), WithLimit(128))
	_, err := a.Alloc(60)
	require.Nil(t, err)
	_, err = a.Alloc(60)
	require.Nil(t, err)
	_, err = a.Alloc(60)
	require.NotNil(t, err)
	require.True(t, errors.Is(err, ErrExhausted))

	_, err = a.Alloc(1000)
	require.True(t, errors.Is(err, ErrExhausted))
}

func TestArena_ResetReusesBlocks(t *testing.T) {
	a := New()
	_, err := a.Alloc(5000)
	require.Nil(t, err)
	_, err = a.Alloc(100)
	require.Nil(t, err)
	a.Reset()
	require.Equal(t, 0, a.Allocated())
	require.Equal(t, DefaultBlockSize, a.Size())
	_, err = a.Alloc(100)
	require.Nil(t, err)
	require.Equal(t, 1, a.Blocks())
}

func TestArena_Destroy(t *testing.T) {
	a := New()
	var order []int
	require.Nil(t, a.AddCleanup(func() { order = append(order, 1) }))
	require.Nil(t, a.AddCleanup(func() { order = append(order, 2) }))
	_, err := a.Alloc(10)
	require.Nil(t, err)

	a.Destroy()
	a.Destroy()
	require.Equal(t, []int{2, 1}, order)
	require.True(t, a.Destroyed())
	require.Equal(t, 0, a.Size())

	_, err = a.Alloc(1)
	require.True(t, errors.Is(err, ErrDestroyed))
	_, err = a.NewBuf(1)
	require.True(t, errors.Is(err, ErrDestroyed))
	require.True(t, errors.Is(a.AddCleanup(func() {}), ErrDestroyed))
}
