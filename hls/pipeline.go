// Package hls implements the adaptive-stream pipeline: a loopback HTTP proxy
// that fetches manifests and segments with the episode's headers. The local
// URL the media element should open travels in the ManifestParsed event.
package hls

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/network"
	"github.com/anistream/anistream/player"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/viper"
)

// ErrDestroyed is returned by every operation after Destroy.
var ErrDestroyed = errors.New("pipeline destroyed")

// Options configures a Pipeline.
type Options struct {
	Client *http.Client
	// Prefetch is the number of leading segments warmed up after the manifest parses.
	Prefetch int
	Workers  int
	// Retries bounds upstream attempts per request.
	Retries int
	Backoff time.Duration
}

// DefaultOptions reads the hls.* configuration.
func DefaultOptions() Options {
	return Options{
		Client:   network.Client(),
		Prefetch: viper.GetInt(key.HLSPrefetchSegments),
		Workers:  viper.GetInt(key.HLSWorkers),
		Retries:  3,
		Backoff:  250 * time.Millisecond,
	}
}

// Factory returns a player.PipelineFactory creating pipelines with opts.
func Factory(opts Options) player.PipelineFactory {
	return func() (player.Pipeline, error) {
		return New(opts)
	}
}

var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 32*1024)
		return &buf
	},
}

// Pipeline implements player.Pipeline.
type Pipeline struct {
	id   uuid.UUID
	opts Options
	pool *ants.Pool

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	media    player.MediaElement
	handler  func(player.PipelineEvent)
	upstream string
	headers  map[string]string
	listener net.Listener
	server   *http.Server

	destroyed atomic.Bool
}

// New creates an unloaded pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Client == nil {
		opts.Client = network.Client()
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	pool, err := ants.NewPool(opts.Workers, ants.WithPanicHandler(func(v any) {
		log.Errorf("hls: warm-up worker panic: %v", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		id:     uuid.New(),
		opts:   opts,
		pool:   pool,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Attach implements player.Pipeline.
func (p *Pipeline) Attach(media player.MediaElement) error {
	if p.destroyed.Load() {
		return ErrDestroyed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.media = media
	return nil
}

// On implements player.Pipeline.
func (p *Pipeline) On(fn func(player.PipelineEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = fn
}

// Load starts the loopback server and fetches the manifest in the background.
func (p *Pipeline) Load(upstream string, headers map[string]string) error {
	if p.destroyed.Load() {
		return ErrDestroyed
	}

	u, err := url.Parse(upstream)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid manifest url %q", upstream)
	}

	p.mu.Lock()
	p.upstream = upstream
	p.headers = maps.Clone(headers)
	err = p.listenLocked()
	p.mu.Unlock()
	if err != nil {
		return err
	}

	go p.loadManifest()
	return nil
}

// Reload fetches the manifest again and reports ManifestParsed once it parses.
func (p *Pipeline) Reload() error {
	if p.destroyed.Load() {
		return ErrDestroyed
	}
	go p.loadManifest()
	return nil
}

// RecoverDecoder returns the local URL of the current stream for a fresh open.
func (p *Pipeline) RecoverDecoder() (string, error) {
	if p.destroyed.Load() {
		return "", ErrDestroyed
	}

	p.mu.Lock()
	upstream := p.upstream
	p.mu.Unlock()

	local := p.LocalURL(upstream)
	if local == "" {
		return "", errors.New("pipeline not loaded")
	}
	return local, nil
}

// Destroy stops the server, cancels upstream requests and detaches the media
// element. It does not wait for in-flight handlers.
func (p *Pipeline) Destroy() error {
	if p.destroyed.Swap(true) {
		return nil
	}

	p.cancel()
	p.pool.Release()

	p.mu.Lock()
	server, media := p.server, p.media
	p.handler = nil
	p.media = nil
	p.mu.Unlock()

	var err error
	if server != nil {
		err = server.Close()
	}
	if media != nil {
		if cerr := media.ClearSource(); cerr != nil {
			log.Debugf("hls %s: clear source: %v", p.id, cerr)
		}
	}

	log.Debugf("hls %s: destroyed", p.id)
	return err
}

// LocalURL maps an upstream URL to its loopback address.
func (p *Pipeline) LocalURL(upstream string) string {
	p.mu.Lock()
	ln := p.listener
	p.mu.Unlock()

	if ln == nil {
		return ""
	}
	return fmt.Sprintf("http://%s/stream?u=%s", ln.Addr(), url.QueryEscape(upstream))
}

func (p *Pipeline) listenLocked() error {
	if p.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("loopback listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream", p.serveStream)

	p.listener = ln
	p.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func(server *http.Server) {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("hls %s: loopback server: %v", p.id, err)
		}
	}(p.server)

	log.Debugf("hls %s: listening on %s", p.id, ln.Addr())
	return nil
}

func (p *Pipeline) emit(ev player.PipelineEvent) {
	if p.destroyed.Load() {
		return
	}

	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()

	if h != nil {
		h(ev)
	}
}

func (p *Pipeline) fault(kind player.FaultKind, err error) {
	p.emit(player.PipelineEvent{
		Type:  player.PipelineFault,
		Fault: &player.Fault{Kind: kind, Fatal: true, Err: err},
	})
}

func (p *Pipeline) loadManifest() {
	p.mu.Lock()
	upstream := p.upstream
	p.mu.Unlock()

	body, err := p.fetchAll(p.ctx, upstream)
	if p.ctx.Err() != nil {
		return
	}
	if err != nil {
		p.fault(player.FaultNetwork, err)
		return
	}

	pl, err := Parse(body)
	if err != nil {
		p.fault(player.FaultOther, fmt.Errorf("manifest: %w", err))
		return
	}

	log.Infof("hls %s: manifest parsed, %d variants, %d segments", p.id, len(pl.Variants), len(pl.Segments))

	p.emit(player.PipelineEvent{Type: player.ManifestParsed, URL: p.LocalURL(upstream)})
	p.warm(upstream, pl)
}

// warm issues small range requests for the leading segments so the origin
// and the connection pool are ready when the media element asks.
func (p *Pipeline) warm(upstream string, pl *Playlist) {
	if p.opts.Prefetch <= 0 {
		return
	}

	base, err := url.Parse(upstream)
	if err != nil {
		return
	}

	segments := pl.Segments
	if pl.Master && len(pl.Variants) > 0 {
		variant, err := base.Parse(pl.Variants[0])
		if err != nil {
			return
		}
		body, err := p.fetchAll(p.ctx, variant.String())
		if err != nil {
			log.Debugf("hls %s: warm-up variant: %v", p.id, err)
			return
		}
		media, err := Parse(body)
		if err != nil {
			return
		}
		base, segments = variant, media.Segments
	}

	for _, ref := range segments[:min(p.opts.Prefetch, len(segments))] {
		seg, err := base.Parse(ref)
		if err != nil {
			continue
		}
		target := seg.String()
		err = p.pool.Submit(func() {
			resp, err := p.fetch(p.ctx, target, "bytes=0-1023")
			if err != nil {
				log.Debugf("hls %s: warm-up: %v", p.id, err)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		})
		if err != nil {
			// pool released
			return
		}
	}
}

func (p *Pipeline) serveStream(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("u")
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		http.Error(w, "invalid upstream", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	resp, err := p.fetch(ctx, target, r.Header.Get("Range"))
	if err != nil {
		if ctx.Err() == nil {
			log.Warnf("hls %s: %v", p.id, err)
			p.fault(player.FaultNetwork, err)
		}
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	head, _ := br.Peek(len(header) + 3)
	if IsPlaylist(head) {
		body, err := io.ReadAll(br)
		if err != nil {
			http.Error(w, "read playlist", http.StatusBadGateway)
			return
		}
		rewritten := Rewrite(body, u, p.LocalURL)
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(rewritten)
		return
	}

	for _, h := range []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	buf := bufPool.Get().(*[]byte)
	defer bufPool.Put(buf)
	_, _ = io.CopyBuffer(w, br, *buf)
}

func (p *Pipeline) fetchAll(ctx context.Context, target string) ([]byte, error) {
	resp, err := p.fetch(ctx, target, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// StatusError is an upstream response that will not get better by retrying.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: status %d", e.URL, e.Code)
}

// fetch requests target with the episode headers, retrying transport
// errors and 5xx/429 responses with a linear backoff.
func (p *Pipeline) fetch(ctx context.Context, target, byteRange string) (*http.Response, error) {
	p.mu.Lock()
	headers := p.headers
	p.mu.Unlock()

	var lastErr error
	for attempt := range p.opts.Retries {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.opts.Backoff * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", constant.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if byteRange != "" {
			req.Header.Set("Range", byteRange)
		}

		resp, err := p.opts.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = &StatusError{URL: redact(target), Code: resp.StatusCode}
			continue
		}
		if resp.StatusCode >= http.StatusBadRequest {
			_ = resp.Body.Close()
			return nil, &StatusError{URL: redact(target), Code: resp.StatusCode}
		}

		return resp, nil
	}

	return nil, fmt.Errorf("after %d attempts: %w", p.opts.Retries, lastErr)
}

// redact drops the query string, which often carries signed tokens.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	u.RawQuery = ""
	return u.String()
}
