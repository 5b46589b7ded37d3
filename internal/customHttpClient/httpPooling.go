package customHttpClient

import (
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/DocChat/internal/config"
)

var (
	once   sync.Once
	client *http.Client
)

// Shared returns the process-wide pooled client used by the embedding and generation providers,
// so repeated calls to the same host reuse warm connections.
func Shared() *http.Client {
	once.Do(func() {
		client = New(config.HttpClientTimeout)
	})
	return client
}

func New(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = config.MaxIdleConns
	transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
	transport.IdleConnTimeout = config.IdleConnTimeout
	return &http.Client{Transport: transport, Timeout: timeout}
}
