package customHttpClient

import (
	"net/http"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// NewPooledClient shares one transport across the LLM providers and the
// artifact publisher so connections are reused.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}

func Transport() *http.Transport {
	return customTransport
}
