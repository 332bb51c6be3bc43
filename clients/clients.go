package clients

import (
	"net"
	"net/http"
	"time"
)

type HTTP struct{ c *http.Client }

// NewHTTP builds the shared client. Per-attempt deadlines come from the
// caller's context; the client-level timeout is only a backstop so a
// forgotten context cannot hang an upload forever.
func NewHTTP() *HTTP {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   1 * time.Minute,
			KeepAlive: 3 * time.Minute,
		}).DialContext,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       2 * time.Minute,
		TLSHandshakeTimeout:   1 * time.Minute,
		ExpectContinueTimeout: 30 * time.Second,
		ResponseHeaderTimeout: 10 * time.Minute,
	}
	return &HTTP{
		c: &http.Client{
			Transport: tr,
			Timeout:   15 * time.Minute,
		},
	}
}
