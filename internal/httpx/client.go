package httpx

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// ClientConfig controls the shared transport used for probes and health checks.
type ClientConfig struct {
	UserAgent       string
	FollowRedirects bool
	// DisableKeepAlives forces a fresh connection so timing phases are observable.
	DisableKeepAlives bool
}

// NewClient returns an HTTP client with proxy support from the environment
// and a default User-Agent. Per-request timeouts come from the caller's context.
func NewClient(cfg ClientConfig) *http.Client {
	transport := &http.Transport{
		Proxy: ProxyFromEnvironment(),

		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     cfg.DisableKeepAlives,
	}

	client := &http.Client{
		Transport: roundTripperWithUA{
			rt:        transport,
			userAgent: cfg.UserAgent,
		},
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// ProxyFromEnvironment re-reads HTTP(S)_PROXY/NO_PROXY on every call, unlike
// http.ProxyFromEnvironment which caches the first lookup for the process.
func ProxyFromEnvironment() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		return httpproxy.FromEnvironment().ProxyFunc()(req.URL)
	}
}

// roundTripperWithUA injects a User-Agent into every request.
type roundTripperWithUA struct {
	rt        http.RoundTripper
	userAgent string
}

func (r roundTripperWithUA) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && r.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", r.userAgent)
	}
	return r.rt.RoundTrip(req)
}
