package rtmp

import "time"

var DefaultOptions = NewOptions()

// rtmp会话的参数选项
type Options struct {
	Timeout        time.Duration // 握手和发送阻塞的超时时间
	Ping           time.Duration // ping间隔, 0表示关闭
	PingTimeout    time.Duration // ping响应超时
	ChunkSize      int           // 单位: 字节, 发送方向的chunk大小
	AckWindow      uint32        // 单位: 字节
	MaxStreams     int           // 可用的chunk stream id数量
	MaxMessage     int           // 单位: 字节, 单个消息的最大长度
	OutQueue       int           // 发送队列长度
	OutCork        int           // 低优先级消息攒批阈值
	BufLen         time.Duration // 默认客户端缓冲时长
	ReadBufferSize int           // 单位: 字节
	ArenaBlockSize int           // 单位: 字节
	ArenaLimit     int           // 单位: 字节, 0表示不限制
	Backlog        int
	EnableDebug    bool
	DebugDir       string
	DebugDuration  time.Duration
	Hook           Hook
	Handler        Handler
}

// rtmp会话的参数选项设置函数
type Option func(*Options)

// NewOptions 创建rtmp会话选项
func NewOptions() Options {
	return Options{
		Timeout:        60 * time.Second,
		Ping:           60 * time.Second,
		PingTimeout:    30 * time.Second,
		ChunkSize:      DefaultChunkSize,
		AckWindow:      5000000,
		MaxStreams:     32,
		MaxMessage:     1 * 1024 * 1024,
		OutQueue:       256,
		OutCork:        32,
		BufLen:         3000 * time.Millisecond,
		ReadBufferSize: 4 * 1024,
		ArenaBlockSize: 4 * 1024,
		Backlog:        511,
		DebugDir:       ".",
		DebugDuration:  60 * time.Second,
	}
}

// WithTimeout 设置握手和发送的超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithPing 设置ping间隔和ping响应超时
func WithPing(interval, timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Ping = interval
		opts.PingTimeout = timeout
	}
}

// WithChunkSize 设置发送方向的ChunkSize
func WithChunkSize(size int) Option {
	return func(opts *Options) {
		opts.ChunkSize = size
	}
}

// WithAckWindow 设置确认窗口大小
func WithAckWindow(size uint32) Option {
	return func(opts *Options) {
		opts.AckWindow = size
	}
}

// WithMaxStreams 设置chunk stream数量上限
func WithMaxStreams(n int) Option {
	return func(opts *Options) {
		opts.MaxStreams = n
	}
}

// WithMaxMessage 设置单个消息的长度上限
func WithMaxMessage(size int) Option {
	return func(opts *Options) {
		opts.MaxMessage = size
	}
}

// WithOutQueue 设置发送队列长度和攒批阈值
func WithOutQueue(size, cork int) Option {
	return func(opts *Options) {
		opts.OutQueue = size
		opts.OutCork = cork
	}
}

// WithBufLen 设置默认缓冲时长
func WithBufLen(buflen time.Duration) Option {
	return func(opts *Options) {
		opts.BufLen = buflen
	}
}

// WithReadBufferSize 设置读缓存的大小
func WithReadBufferSize(size int) Option {
	return func(opts *Options) {
		opts.ReadBufferSize = size
	}
}

// WithArena 设置每个连接的内存池块大小和上限
func WithArena(blockSize, limit int) Option {
	return func(opts *Options) {
		opts.ArenaBlockSize = blockSize
		opts.ArenaLimit = limit
	}
}

// WithBacklog 设置监听队列长度
func WithBacklog(backlog int) Option {
	return func(opts *Options) {
		opts.Backlog = backlog
	}
}

// WithServerHook 设置rtmp服务端的hook
func WithServerHook(hook Hook) Option {
	return func(opts *Options) {
		opts.Hook = hook
	}
}

// WithHandler 设置消息处理器
func WithHandler(handler Handler) Option {
	return func(opts *Options) {
		opts.Handler = handler
	}
}

// WithEnableDebug 设置debug开关, 每个会话的协议日志写入dir目录
func WithEnableDebug(enable bool, dir string, duration time.Duration) Option {
	return func(opts *Options) {
		opts.EnableDebug = enable
		opts.DebugDir = dir
		opts.DebugDuration = duration
	}
}

func (opts *Options) normalize() {
	if opts.ReadBufferSize < MaxChunkHeader {
		opts.ReadBufferSize = MaxChunkHeader
	}
	if opts.ChunkSize <= 0 || opts.ChunkSize > MaxChunkSize {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxStreams <= csidControl {
		opts.MaxStreams = csidControl + 1
	}
	if opts.MaxMessage <= 0 {
		opts.MaxMessage = DefaultOptions.MaxMessage
	}
	if opts.OutQueue <= 0 {
		opts.OutQueue = DefaultOptions.OutQueue
	}
	if opts.ArenaBlockSize <= 0 {
		opts.ArenaBlockSize = DefaultOptions.ArenaBlockSize
	}
}
