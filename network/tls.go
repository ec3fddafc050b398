package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

const dialTimeout = 30 * time.Second

// FingerprintTransport sends https requests over a TLS connection that
// presents a Chrome ClientHello. Requests go over HTTP/2 first and fall back
// to HTTP/1.1 when the h2 round trip fails. Plain http requests use a regular transport.
type FingerprintTransport struct {
	h2    *http2.Transport
	h1    *http.Transport
	plain *http.Transport
}

// NewFingerprintTransport builds a FingerprintTransport with fresh connection pools.
func NewFingerprintTransport() *FingerprintTransport {
	return &FingerprintTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialTLS(ctx, network, addr, nil)
			},
		},
		h1: &http.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialTLS(ctx, network, addr, []string{"http/1.1"})
			},
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     30 * time.Second,
		},
		plain: newTransport(),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *FingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	// bodies cannot be replayed without GetBody
	if req.Body != nil && req.GetBody == nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, berr
		}
		retry.Body = body
	}

	return t.h1.RoundTrip(retry)
}

// dialTLS opens a uTLS connection mimicking Chrome 120. With protos unset the
// ClientHello advertises h2 and http/1.1 like the real browser does.
func dialTLS(ctx context.Context, network, addr string, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: protos,
	}, utls.HelloChrome_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
