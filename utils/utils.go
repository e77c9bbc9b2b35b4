package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

// ContextDone 判断一个context是否已经结束/取消/超时
func ContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// PanicRecover panic恢复处理, 记录堆栈
func PanicRecover() {
	if r := recover(); r != nil {
		const size = 64 << 10
		buf := make([]byte, size)
		buf = buf[:runtime.Stack(buf, false)]
		log.Error().Interface("panic", r).Str("stack", string(buf)).Msg("[utils] recovered")
	}
}

// HTTPPost 对http post请求的包装, 非200响应返回错误
func HTTPPost(cli *http.Client, url, data string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := cli.Do(req)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("post %s: status %d", url, response.StatusCode)
	}
	return string(content), nil
}
