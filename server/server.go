// Package server exposes the metadata resolver and the image proxy over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/network"
	"github.com/anistream/anistream/source"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/viper"
)

// RecentLister is implemented by resolvers that list recent releases.
type RecentLister interface {
	Recent(ctx context.Context, page int) (*source.Page, error)
}

// Options configures a Server.
type Options struct {
	Resolver source.Resolver
	// ImageClient fetches proxied images. Defaults to the shared client.
	ImageClient *http.Client
	// ImageRate limits upstream image requests per second.
	ImageRate int
	// ImageReferer is sent as Referer and Origin to image hosts.
	ImageReferer string
}

// DefaultOptions reads the server.* configuration.
func DefaultOptions(resolver source.Resolver) Options {
	return Options{
		Resolver:     resolver,
		ImageRate:    viper.GetInt(key.ServerImageRate),
		ImageReferer: constant.ImageReferer,
	}
}

// Server is the HTTP service.
type Server struct {
	router   chi.Router
	resolver source.Resolver
	images   *http.Client
	referer  string
}

// New creates a server with its routes mounted.
func New(opts Options) *Server {
	hc := opts.ImageClient
	if hc == nil {
		hc = network.Client()
	}
	limited := *hc
	limited.Transport = network.NewRateLimitTransport(hc.Transport, opts.ImageRate)
	limited.Timeout = 30 * time.Second

	s := &Server{
		router:   chi.NewRouter(),
		resolver: opts.Resolver,
		images:   &limited,
		referer:  opts.ImageReferer,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID, middleware.RealIP, recoverer, cors, requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/watch", s.handleWatch)
		r.Get("/anime/animepahe/watch", s.handleWatch)
		r.Get("/animepahe/{query}", s.handleSearch)
		r.Get("/anime/{id}", s.handleInfo)
		r.Get("/recent", s.handleRecent)
		r.Get("/proxy-image", s.handleImage)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled. ready, when not nil, receives
// the bound address once the listener is up.
func (s *Server) Run(ctx context.Context, addr string, ready func(addr string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	bound := ln.Addr().String()
	log.Infof("Serving on http://%s", bound)
	if ready != nil {
		ready(bound)
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// BaseURL turns a listen address into a URL reachable from this host.
func BaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
