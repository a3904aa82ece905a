package request

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds every outbound data/price call.
const DefaultTimeout = 10 * time.Second

var Request = New(DefaultTimeout, 3)

// New builds a resty client that honours proxy environment variables.
func New(timeout time.Duration, retryCount int) *resty.Client {
	return resty.New().SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}).SetTimeout(timeout).SetRetryCount(retryCount)
}
