package rtmp

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bugVanisher/rtmpd/protocol/common"
	"github.com/bugVanisher/rtmpd/utils"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const (
	HookEventQueueLen  = 10000
	HookEventWorkerNum = 20

	HookActionConnect       = "connect"
	HookActionHandshakeDone = "handshake_done"
	HookActionDisconnect    = "disconnect"
)

type HookEvent struct {
	Url  string
	Data interface{}
}

// RtmpHookData is the JSON body posted for every lifecycle event.
type RtmpHookData struct {
	Action string `json:"action"`
	common.Info
}

// HTTPHook posts session lifecycle events to an HTTP endpoint. Events are
// queued and sent by background workers so the reactor never blocks; when
// the queue is full the event is dropped.
type HTTPHook struct {
	ctx     context.Context
	url     string
	queue   chan *HookEvent
	client  *http.Client
	wg      sync.WaitGroup
	dropped uint64
	closed  bool
	mu      sync.Mutex
}

// NewHTTPHook starts workers posting to url until ctx is done.
func NewHTTPHook(ctx context.Context, url string, workers, queueLen int) *HTTPHook {
	if workers <= 0 {
		workers = HookEventWorkerNum
	}
	if queueLen <= 0 {
		queueLen = HookEventQueueLen
	}
	h := &HTTPHook{
		ctx:    ctx,
		url:    url,
		queue:  make(chan *HookEvent, queueLen),
		client: createHTTPClient(),
	}
	for i := 0; i < workers; i++ {
		h.wg.Add(1)
		go h.run()
	}
	return h
}

func (h *HTTPHook) OnConnect(info common.Info) error {
	h.OnHookEvent(&HookEvent{Url: h.url, Data: &RtmpHookData{Action: HookActionConnect, Info: info}})
	return nil
}

func (h *HTTPHook) OnHandshakeDone(info common.Info) {
	h.OnHookEvent(&HookEvent{Url: h.url, Data: &RtmpHookData{Action: HookActionHandshakeDone, Info: info}})
}

func (h *HTTPHook) OnDisconnect(info common.Info) {
	h.OnHookEvent(&HookEvent{Url: h.url, Data: &RtmpHookData{Action: HookActionDisconnect, Info: info}})
}

// OnHookEvent queues e without blocking.
func (h *HTTPHook) OnHookEvent(e *HookEvent) {
	if utils.ContextDone(h.ctx) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.queue <- e:
	default:
		h.dropped++
		log.Warn().Str("url", e.Url).Msg("[hook] queue full, drop event")
	}
}

// Dropped returns how many events did not fit in the queue.
func (h *HTTPHook) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Wait blocks until every worker exited after ctx is done.
func (h *HTTPHook) Wait() {
	h.wg.Wait()
}

// Close stops accepting events and waits until the queued ones are posted.
func (h *HTTPHook) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *HTTPHook) run() {
	defer h.wg.Done()
	defer utils.PanicRecover()
	for {
		select {
		case <-h.ctx.Done():
			return
		case e, ok := <-h.queue:
			if !ok {
				return
			}
			if err := handleHook(h.client, e.Url, e.Data); err != nil {
				log.Error().Err(err).Str("url", e.Url).Msg("[hook] handleHook fail")
			}
		}
	}
}

func handleHook(cli *http.Client, url string, info interface{}) error {
	data, err := jsoniter.Marshal(info)
	if err != nil {
		return err
	}

	log.Debug().Str("url", url).Str("data", string(data)).Msg("[hook] handleHook")
	_, err = utils.HTTPPost(cli, url, string(data))
	return err
}

func createHTTPClient() *http.Client {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   3 * time.Second, // 连接超时时间
				KeepAlive: 3 * time.Second, // 发送keepalive报文的间隔时间
			}).DialContext,
			MaxIdleConns:          10,                      // 最大空闲连接数
			MaxIdleConnsPerHost:   10,                      // 每个host保持的空闲连接数
			MaxConnsPerHost:       10,                      // 每个host最大连接数
			IdleConnTimeout:       90 * time.Second,        // 空闲连接的超时时间, 超时自动关闭连接
			ExpectContinueTimeout: 1000 * time.Millisecond, // 等待服务第一个响应的超时时间
		},
		Timeout: 1000 * time.Millisecond,
	}
	return client
}
