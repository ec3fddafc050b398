package player

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"
)

type fakeMedia struct {
	mu       sync.Mutex
	src      string
	headers  map[string]string
	sources  []string
	playErr  error
	plays    int
	pauses   int
	adaptive bool
	pos      float64
	seeks    []float64
	subs     map[int]func(MediaEvent, error)
	next     int
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{subs: make(map[int]func(MediaEvent, error))}
}

func (m *fakeMedia) SetSource(url string, headers map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = url
	m.headers = maps.Clone(headers)
	m.sources = append(m.sources, url)
	return nil
}

func (m *fakeMedia) ClearSource() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = ""
	return nil
}

func (m *fakeMedia) Play(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	return m.playErr
}

func (m *fakeMedia) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	return nil
}

func (m *fakeMedia) CurrentTime() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos, nil
}

func (m *fakeMedia) Seek(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, seconds)
	m.pos = seconds
	return nil
}

func (m *fakeMedia) SupportsAdaptive() bool {
	return m.adaptive
}

func (m *fakeMedia) Subscribe(fn func(MediaEvent, error)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *fakeMedia) emit(ev MediaEvent, err error) {
	m.mu.Lock()
	fns := make([]func(MediaEvent, error), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ev, err)
	}
}

func (m *fakeMedia) listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *fakeMedia) sourceHistory() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sources...)
}

func (m *fakeMedia) setPosition(pos float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = pos
}

func (m *fakeMedia) playCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

func (m *fakeMedia) source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

type fakePipeline struct {
	mu        sync.Mutex
	url       string
	headers   map[string]string
	media     MediaElement
	handler   func(PipelineEvent)
	destroyed bool
	reloads   int
	recovers  int
}

func (p *fakePipeline) Load(url string, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.headers = maps.Clone(headers)
	return nil
}

func (p *fakePipeline) Attach(media MediaElement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.media = media
	return nil
}

func (p *fakePipeline) On(fn func(PipelineEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = fn
}

func (p *fakePipeline) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads++
	return nil
}

func (p *fakePipeline) RecoverDecoder() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recovers++
	return p.local(), nil
}

// local is the loopback address a real pipeline would serve p.url on.
func (p *fakePipeline) local() string {
	return "http://127.0.0.1:9/stream?u=" + p.url
}

func (p *fakePipeline) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	return nil
}

// emit delivers an event even after Destroy, like a late network callback would.
func (p *fakePipeline) emit(ev PipelineEvent) {
	p.mu.Lock()
	h := p.handler
	if ev.Type == ManifestParsed && ev.URL == "" {
		ev.URL = p.local()
	}
	p.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (p *fakePipeline) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

func (p *fakePipeline) counts() (reloads, recovers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads, p.recovers
}

type fakeFactory struct {
	mu        sync.Mutex
	pipelines []*fakePipeline
}

func (f *fakeFactory) New() (Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePipeline{}
	f.pipelines = append(f.pipelines, p)
	return p, nil
}

func (f *fakeFactory) get(i int) *fakePipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipelines[i]
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pipelines)
}

func (f *fakeFactory) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.pipelines {
		if !p.isDestroyed() {
			n++
		}
	}
	return n
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
