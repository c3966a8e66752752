package barapi

import (
	"net"
	"net/http"
	"time"
)

// NewTransport returns an HTTP transport whose connection pool matches the
// worker pool, so concurrent workers reuse keep-alive connections instead of
// dialing per request.
func NewTransport(poolSize, poolConnections int) *http.Transport {
	if poolSize <= 0 {
		poolSize = 1
	}
	if poolConnections <= 0 {
		poolConnections = 1
	}
	maxPerHost := poolSize
	if maxPerHost < poolConnections {
		maxPerHost = poolConnections
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        poolConnections * 2,
		MaxIdleConnsPerHost: maxPerHost,
		MaxConnsPerHost:     maxPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}
