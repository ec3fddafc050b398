package network

import (
	"net/http"

	"go.uber.org/ratelimit"
)

// HeaderTransport sets a fixed header set on every outgoing request that does
// not already carry the header.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return base(t.Base).RoundTrip(req)
}

// RateLimitTransport blocks each request until the limiter grants a slot.
type RateLimitTransport struct {
	Base    http.RoundTripper
	Limiter ratelimit.Limiter
}

// NewRateLimitTransport wraps base with a limiter allowing perSecond requests.
// A non-positive rate disables limiting.
func NewRateLimitTransport(base http.RoundTripper, perSecond int) *RateLimitTransport {
	limiter := ratelimit.NewUnlimited()
	if perSecond > 0 {
		limiter = ratelimit.New(perSecond, ratelimit.WithoutSlack)
	}
	return &RateLimitTransport{Base: base, Limiter: limiter}
}

// RoundTrip implements http.RoundTripper.
func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.Limiter.Take()
	return base(t.Base).RoundTrip(req)
}

func base(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return Client().Transport
	}
	return rt
}
