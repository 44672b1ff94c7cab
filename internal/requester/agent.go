package requester

import (
	"net"
	"net/http"
	"time"

	"github.com/brizzai/searchkit/internal/config"
)

// NewAgent returns a keep-alive connection pool for protocol. It speaks
// HTTP/1.1 only and never decompresses on its own; the requester does that.
func NewAgent(protocol string) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}
	if protocol == config.ProtocolHTTPS {
		t.TLSHandshakeTimeout = 10 * time.Second
	}
	return t
}
