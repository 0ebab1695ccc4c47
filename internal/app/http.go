package app

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient returns a client shared by the page fetcher and the robots
// manager. The overall timeout is left to the fetcher's per-request context.
func newHTTPClient(concurrency int) *http.Client {
	perHost := concurrency * 2
	if perHost < 4 {
		perHost = 4
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}
