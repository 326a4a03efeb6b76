package app

import (
	"net"
	"net/http"
	"time"
)

// newLLMHTTPClient returns the client used for model calls. Local models can
// take minutes on a long prompt, so the overall timeout is generous while
// connection setup stays short. Connections per host are capped at the batch
// width: one agent call per paper in flight.
func newLLMHTTPClient(timeout time.Duration, workers int) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if workers <= 0 {
		workers = 1
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxConnsPerHost:     workers,
			MaxIdleConnsPerHost: workers,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			// Model servers may stream slowly; only the header wait is bounded.
			ResponseHeaderTimeout: timeout,
		},
	}
}
