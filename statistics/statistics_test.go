package statistics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	sec int64
}

func (c *fakeClock) now() int64 {
	return c.sec
}

func TestPeriodicStatistic_RollingWindow(t *testing.T) {
	clk := &fakeClock{sec: 1000}
	s := NewPeriodicStatistic(5, 1)
	s.now = clk.now

	for i := 0; i < 6; i++ {
		s.Stat(100)
		clk.sec++
	}
	clk.sec--
	// five completed cells of 100 plus the current one
	require.Equal(t, int64(600), s.Sum())
	require.Equal(t, int64(100), s.Avg())
	require.Equal(t, int64(100), s.Max())
	require.Equal(t, int64(100), s.Min())

	// skipping two cells drops them from the sum
	clk.sec += 3
	s.Stat(50)
	require.Equal(t, int64(350), s.Sum())
}

func TestPeriodicStatistic_Expires(t *testing.T) {
	clk := &fakeClock{sec: 1000}
	s := NewPeriodicStatistic(5, 1)
	s.now = clk.now

	s.Stat(10)
	require.Equal(t, int64(10), s.Sum())
	clk.sec += 100
	require.Equal(t, int64(0), s.Sum())
	require.Equal(t, int64(0), s.Avg())

	s.Stat(7)
	require.Equal(t, int64(7), s.Sum())
	require.Equal(t, int64(7), s.Max())
}

func TestFlow(t *testing.T) {
	f := NewFlow()
	f.StatIn(1024)
	f.StatIn(0)
	f.StatOut(10)
	require.Equal(t, uint64(1024), f.In.Bytes())
	require.Equal(t, uint64(10), f.Out.Bytes())
	require.Equal(t, uint64(8192), f.In.GetBitTotal())
	require.Equal(t, "0kb/s", f.Out.String())
}
