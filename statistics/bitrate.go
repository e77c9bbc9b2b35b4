package statistics

import (
	"fmt"
)

// Bitrate 码率统计对象, 输入为字节数, 统计单位为bit
type Bitrate struct {
	statistic *PeriodicStatistic
	total     uint64
}

// NewBitrate ...
func NewBitrate() *Bitrate {
	return &Bitrate{
		statistic: NewPeriodicStatistic(DefaultStatGridNum, 1),
	}
}

// Add records n bytes.
func (b *Bitrate) Add(n int) {
	if n <= 0 {
		return
	}
	b.total += uint64(n)
	b.statistic.Stat(int64(n) * 8)
}

// GetBitrate returns bits per second over the window.
func (b *Bitrate) GetBitrate() uint64 {
	return uint64(b.statistic.Avg())
}

// GetBitTotal returns the bits inside the window.
func (b *Bitrate) GetBitTotal() uint64 {
	return uint64(b.statistic.Sum())
}

// Bytes returns every byte recorded since creation.
func (b *Bitrate) Bytes() uint64 {
	return b.total
}

func (b *Bitrate) String() string {
	return fmt.Sprintf("%dkb/s", b.statistic.Avg()/1024)
}
