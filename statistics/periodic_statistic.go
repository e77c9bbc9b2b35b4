package statistics

import (
	"fmt"
	"time"
)

/*
Rolling statistics over a window of gridNum cells, each gridPeriod seconds
wide. The cell being written is excluded from the average.

TODO the average is too low until the first full window has elapsed
*/

// PeriodicStatistic 周期统计工具,滚动统计周期内数据的最大、最小、平均值
type PeriodicStatistic struct {
	gridNum    int64
	gridPeriod int64
	dataGrid   []int64

	avg int64
	max int64
	min int64
	sum int64

	lastIdx      int64
	lastStatTime int64

	now func() int64
}

const (
	DefaultStatGridNum = int64(5)
)

func unixNow() int64 {
	return time.Now().Unix()
}

// NewPeriodicStatistic 创建周期统计对象, gridNum统计格子数量, gridPeriod格子时间长度,单位秒
func NewPeriodicStatistic(gridNum, gridPeriod int64) *PeriodicStatistic {
	if gridPeriod <= 0 {
		gridPeriod = 1
	}
	return &PeriodicStatistic{
		gridNum:    gridNum + 1,
		gridPeriod: gridPeriod,
		dataGrid:   make([]int64, gridNum+1),
		now:        unixNow,
	}
}

func (rcv *PeriodicStatistic) window() int64 {
	return rcv.gridNum * rcv.gridPeriod
}

func (rcv *PeriodicStatistic) expired(now int64) bool {
	return now > rcv.lastStatTime+rcv.window()
}

func (rcv *PeriodicStatistic) restart(now, idx, val int64) {
	for i := range rcv.dataGrid {
		rcv.dataGrid[i] = 0
	}
	rcv.dataGrid[idx] = val
	rcv.sum = val
	rcv.max = val
	rcv.min = val
	rcv.lastIdx = idx
	rcv.lastStatTime = now
	rcv.avg = rcv.calcAvg()
}

// Stat 添加统计值
func (rcv *PeriodicStatistic) Stat(val int64) {
	now := rcv.now()
	idx := now % rcv.window() / rcv.gridPeriod

	if now >= rcv.lastStatTime+rcv.window() {
		rcv.restart(now, idx, val)
		return
	}

	if idx != rcv.lastIdx || now-rcv.lastStatTime > rcv.gridPeriod {
		// clear the cells skipped since the last sample
		end := idx
		if end <= rcv.lastIdx {
			end += rcv.gridNum
		}
		for i := rcv.lastIdx + 1; i <= end; i++ {
			pos := i % rcv.gridNum
			rcv.sum -= rcv.dataGrid[pos]
			rcv.dataGrid[pos] = 0
		}
		rcv.lastIdx = idx
	}

	rcv.dataGrid[idx] += val
	rcv.sum += val
	if val > rcv.max {
		rcv.max = val
	}
	if val < rcv.min {
		rcv.min = val
	}
	rcv.avg = rcv.calcAvg()
	rcv.lastStatTime = now
}

func (rcv *PeriodicStatistic) calcAvg() int64 {
	return (rcv.sum - rcv.dataGrid[rcv.lastIdx]) / (rcv.gridNum - 1)
}

func (rcv *PeriodicStatistic) String() string {
	return fmt.Sprintf("grid=%v sum=%d avg=%d", rcv.dataGrid, rcv.sum, rcv.avg)
}

// Avg 统计平均值
func (rcv *PeriodicStatistic) Avg() int64 {
	if rcv.expired(rcv.now()) {
		return 0
	}
	return rcv.avg
}

// Max 统计最大值
func (rcv *PeriodicStatistic) Max() int64 {
	if rcv.expired(rcv.now()) {
		return 0
	}
	return rcv.max
}

// Min 统计最小值
func (rcv *PeriodicStatistic) Min() int64 {
	if rcv.expired(rcv.now()) {
		return 0
	}
	return rcv.min
}

// Sum 统计总数
func (rcv *PeriodicStatistic) Sum() int64 {
	if rcv.expired(rcv.now()) {
		return 0
	}
	return rcv.sum
}
