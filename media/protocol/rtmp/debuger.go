package rtmp

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Debuger debug对象，把单个会话的协议细节写入独立文件
type Debuger struct {
	taskID    string
	enabled   bool          //debug模式开关, 为true时开启
	fileName  string        //debug信息保存文件
	duration  time.Duration //debug时长, 0表示直到会话结束
	startTime time.Time     //debug开始时间
	file      *os.File      //debug文件
	logger    zerolog.Logger
	lock      sync.Mutex
}

// NewDebuger 创建debuger
func NewDebuger(taskID string) *Debuger {
	return &Debuger{
		taskID: taskID,
		logger: zerolog.Nop(),
	}
}

// Enabled debug开关是否打开
func (t *Debuger) Enabled() bool {
	if t == nil {
		return false
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.enabled
}

// StartDebug 开启debug功能, 需要设定输出文件和debug时长, 如果已经在debug模式则忽略本次调用
func (t *Debuger) StartDebug(fileName string, duration time.Duration) error {
	if t == nil {
		return nil
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.enabled {
		return nil
	}

	f, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "create debug file %s", fileName)
	}
	t.file = f
	t.fileName = fileName
	t.duration = duration
	t.startTime = time.Now()
	t.logger = zerolog.New(f).With().Timestamp().Str("task", t.taskID).Logger()
	t.enabled = true
	return nil
}

// StopDebug 停止debug
func (t *Debuger) StopDebug() {
	if t == nil {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.stop()
}

func (t *Debuger) stop() {
	if !t.enabled {
		return
	}
	t.enabled = false
	t.logger = zerolog.Nop()
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
}

// Debug 写入debug信息, 超过debug时长后自动关闭
func (t *Debuger) Debug(format string, args ...interface{}) {
	if t == nil {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if !t.enabled {
		return
	}

	t.logger.Log().Msgf(format, args...)
	if t.duration > 0 && time.Since(t.startTime) >= t.duration {
		t.stop()
	}
}

// FileName 返回debug文件路径
func (t *Debuger) FileName() string {
	if t == nil {
		return ""
	}
	return t.fileName
}
