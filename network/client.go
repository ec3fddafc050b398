// Package network provides the shared upstream HTTP client used by every API and stream request.
package network

import (
	"net/http"
	"sync"
	"time"

	"github.com/anistream/anistream/key"
	"github.com/spf13/viper"
)

var (
	client     *http.Client
	clientOnce sync.Once
)

// Client returns the process-wide HTTP client. When network.tls_fingerprint is
// enabled the client dials TLS with a browser fingerprint; plain transport otherwise.
func Client() *http.Client {
	clientOnce.Do(func() {
		var rt http.RoundTripper = newTransport()
		if viper.GetBool(key.NetworkTLSFingerprint) {
			rt = NewFingerprintTransport()
		}

		client = &http.Client{
			Timeout:   time.Minute,
			Transport: rt,
		}
	})
	return client
}

// newTransport initializes a tuned http.Transport with optimized pool and timeout parameters.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.MaxConnsPerHost = 200
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 30 * time.Second
	return t
}
