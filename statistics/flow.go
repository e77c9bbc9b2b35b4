package statistics

// Flow 会话流量统计, 分别统计收发方向
type Flow struct {
	In  *Bitrate
	Out *Bitrate
}

// NewFlow 创建Flow实例
func NewFlow() *Flow {
	return &Flow{
		In:  NewBitrate(),
		Out: NewBitrate(),
	}
}

// StatIn 统计收到的字节
func (f *Flow) StatIn(n int) {
	f.In.Add(n)
}

// StatOut 统计发出的字节
func (f *Flow) StatOut(n int) {
	f.Out.Add(n)
}
