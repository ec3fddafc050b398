package player

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/source"
	"github.com/google/uuid"
)

// DefaultMaxRetries bounds automatic recovery attempts until playback makes progress again.
const DefaultMaxRetries = 3

// recoveredAfter is how many seconds playback must advance past the last
// fault before the recovery budget is restored.
const recoveredAfter = 10.0

// State is the lifecycle state of a Binder.
type State int

const (
	Idle State = iota
	Attaching
	Playing
	Paused
	Recovering
	Failed
	Detached
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Attaching:
		return "attaching"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Recovering:
		return "recovering"
	case Failed:
		return "failed"
	case Detached:
		return "detached"
	default:
		return "invalid"
	}
}

// BindingStatus is the externally observable state of a Binder.
type BindingStatus struct {
	ID      uuid.UUID
	State   State
	Variant *source.Variant
	Error   string
}

// Loading reports whether the binding waits for playback to start.
func (s BindingStatus) Loading() bool {
	return s.State == Attaching || s.State == Recovering
}

// Playing reports whether the media element is playing.
func (s BindingStatus) Playing() bool {
	return s.State == Playing
}

// BinderOptions configures a Binder.
type BinderOptions struct {
	// NewPipeline creates the demuxer for adaptive variants the media element
	// cannot play natively.
	NewPipeline PipelineFactory
	MaxRetries  int
}

type binding struct {
	id          uuid.UUID
	variant     *source.Variant
	headers     map[string]string
	pipeline    Pipeline
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	retries     int
	resumeAt    float64
	position    float64
	faultAt     float64
}

// Binder owns the media element and keeps at most one live binding between
// a variant and it.
//
// User operations are serialized by opMu. Media and pipeline callbacks only
// take mu and are dropped unless they belong to the current binding.
type Binder struct {
	media       MediaElement
	newPipeline PipelineFactory
	maxRetries  int

	opMu sync.Mutex

	mu          sync.Mutex
	state       State
	current     *binding
	errMsg      string
	lastVariant *source.Variant
	lastHeaders map[string]string

	subMu  sync.Mutex
	subID  int
	subs   map[int]func(BindingStatus)
	worker sync.WaitGroup
}

// NewBinder returns an idle Binder driving media.
func NewBinder(media MediaElement, opts BinderOptions) *Binder {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}

	return &Binder{
		media:       media,
		newPipeline: opts.NewPipeline,
		maxRetries:  opts.MaxRetries,
		subs:        make(map[int]func(BindingStatus)),
	}
}

// Attach tears down the current binding and binds variant, resuming at
// resumeAt seconds once playback starts. Headers go on every request made
// for the variant.
func (b *Binder) Attach(variant *source.Variant, headers map[string]string, resumeAt float64) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	return b.attach(variant, headers, resumeAt)
}

func (b *Binder) attach(variant *source.Variant, headers map[string]string, resumeAt float64) error {
	if b.closed() {
		return ErrDetached
	}
	if variant == nil {
		return ErrNoSources
	}

	b.teardown(Idle)

	ctx, cancel := context.WithCancel(context.Background())
	bd := &binding{
		id:       uuid.New(),
		variant:  variant,
		headers:  maps.Clone(headers),
		ctx:      ctx,
		cancel:   cancel,
		resumeAt: resumeAt,
		position: resumeAt,
	}

	b.mu.Lock()
	b.current = bd
	b.lastVariant = variant
	b.lastHeaders = bd.headers
	b.state = Attaching
	b.errMsg = ""
	st := b.statusLocked()
	b.mu.Unlock()
	b.emit(st)

	log.Infof("binding %s: attaching %s", bd.id, variant)

	bd.unsubscribe = b.media.Subscribe(func(ev MediaEvent, err error) {
		b.onMedia(bd, ev, err)
	})

	if variant.Adaptive && !b.media.SupportsAdaptive() {
		if b.newPipeline == nil {
			return b.fail(bd, errors.New("adaptive stream needs a pipeline"))
		}

		p, err := b.newPipeline()
		if err != nil {
			return b.fail(bd, fmt.Errorf("create pipeline: %w", err))
		}

		b.mu.Lock()
		bd.pipeline = p
		b.mu.Unlock()

		p.On(func(ev PipelineEvent) {
			b.onPipeline(bd, ev)
		})

		if err := p.Attach(b.media); err != nil {
			return b.fail(bd, fmt.Errorf("attach pipeline: %w", err))
		}
		if err := p.Load(variant.URL, bd.headers); err != nil {
			return b.fail(bd, fmt.Errorf("load manifest: %w", err))
		}
		return nil
	}

	if err := b.media.SetSource(variant.URL, bd.headers); err != nil {
		return b.fail(bd, fmt.Errorf("set source: %w", err))
	}
	b.requestPlay(bd)
	return nil
}

// Retry re-runs the full attach sequence for the last variant.
func (b *Binder) Retry() error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	variant, headers := b.lastVariant, b.lastHeaders
	var pos float64
	if b.current != nil {
		pos = b.current.position
	}
	b.mu.Unlock()

	if b.closed() {
		return ErrDetached
	}
	if variant == nil {
		return ErrNoSources
	}

	return b.attach(variant, headers, pos)
}

// TogglePause pauses a playing binding or requests playback of a paused one.
func (b *Binder) TogglePause() error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	bd, state := b.current, b.state
	b.mu.Unlock()

	switch state {
	case Detached:
		return ErrDetached
	case Playing:
		if err := b.media.Pause(); err != nil {
			return err
		}
		b.transition(bd, Paused)
	case Paused:
		b.requestPlay(bd)
	}
	return nil
}

// Detach tears the binding down and returns to Idle.
func (b *Binder) Detach() error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	if b.closed() {
		return ErrDetached
	}

	b.teardown(Idle)
	b.emit(b.Status())
	return nil
}

// Close tears the binding down for good. Every later operation returns ErrDetached.
func (b *Binder) Close() error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	if b.closed() {
		return nil
	}

	b.teardown(Detached)
	b.emit(b.Status())
	return nil
}

// Position returns the current playback position in seconds, 0 when unknown.
func (b *Binder) Position() float64 {
	pos, err := b.media.CurrentTime()
	if err != nil {
		return 0
	}
	return pos
}

// Status returns a snapshot of the binder state.
func (b *Binder) Status() BindingStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

// Variant returns the bound variant, nil when idle.
func (b *Binder) Variant() *source.Variant {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return nil
	}
	return b.current.variant
}

// Subscribe registers fn for every status change. Callbacks run outside the binder lock.
func (b *Binder) Subscribe(fn func(BindingStatus)) (unsubscribe func()) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	id := b.subID
	b.subID++
	b.subs[id] = fn

	return func() {
		b.subMu.Lock()
		defer b.subMu.Unlock()
		delete(b.subs, id)
	}
}

func (b *Binder) emit(st BindingStatus) {
	b.subMu.Lock()
	fns := make([]func(BindingStatus), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (b *Binder) statusLocked() BindingStatus {
	st := BindingStatus{State: b.state, Error: b.errMsg}
	if b.current != nil {
		st.ID = b.current.id
		st.Variant = b.current.variant
	}
	return st
}

func (b *Binder) closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == Detached
}

// liveLocked reports whether bd is still the binding callbacks may act on.
func (b *Binder) liveLocked(bd *binding) bool {
	return bd != nil && b.current != nil && b.current.id == bd.id && b.state != Detached
}

// teardown releases the current binding and moves to next.
func (b *Binder) teardown(next State) {
	b.mu.Lock()
	bd := b.current
	b.current = nil
	b.state = next
	b.errMsg = ""
	var p Pipeline
	if bd != nil {
		p = bd.pipeline
		bd.pipeline = nil
	}
	b.mu.Unlock()

	if bd == nil {
		return
	}

	bd.cancel()
	if bd.unsubscribe != nil {
		bd.unsubscribe()
	}

	if p != nil {
		destroy(bd, p)
	} else if err := b.media.ClearSource(); err != nil {
		log.Debugf("binding %s: clear source: %v", bd.id, err)
	}

	log.Debugf("binding %s: torn down", bd.id)
}

func destroy(bd *binding, p Pipeline) {
	if err := p.Destroy(); err != nil {
		log.Warnf("binding %s: destroy pipeline: %v", bd.id, err)
	}
}

// transition moves a live binding to state and notifies observers.
func (b *Binder) transition(bd *binding, state State) {
	b.mu.Lock()
	if !b.liveLocked(bd) {
		b.mu.Unlock()
		return
	}
	b.state = state
	if state == Playing {
		b.errMsg = ""
	}
	st := b.statusLocked()
	b.mu.Unlock()

	b.emit(st)
}

// fail ends the current attachment with a user visible error. The binding
// stays current so Retry can re-attach it.
func (b *Binder) fail(bd *binding, err error) error {
	b.mu.Lock()
	if !b.liveLocked(bd) {
		b.mu.Unlock()
		return err
	}
	p := bd.pipeline
	bd.pipeline = nil
	b.state = Failed
	b.errMsg = message(err)
	st := b.statusLocked()
	b.mu.Unlock()

	log.Errorf("binding %s: %v", bd.id, err)

	if p != nil {
		destroy(bd, p)
	}

	b.emit(st)
	return err
}

func (b *Binder) spawn(fn func()) {
	b.worker.Add(1)
	go func() {
		defer b.worker.Done()
		fn()
	}()
}

// wait blocks until spawned play and recovery work has finished.
func (b *Binder) wait() {
	b.worker.Wait()
}

// requestPlay asks the media element to start playback without blocking the caller.
func (b *Binder) requestPlay(bd *binding) {
	b.spawn(func() {
		b.play(bd)
	})
}

func (b *Binder) play(bd *binding) {
	b.mu.Lock()
	if !b.liveLocked(bd) {
		b.mu.Unlock()
		return
	}
	resume := bd.resumeAt
	bd.resumeAt = 0
	b.mu.Unlock()

	if bd.ctx.Err() != nil {
		return
	}

	if resume > 0 {
		if err := b.media.Seek(resume); err != nil {
			log.Debugf("binding %s: seek to %.1fs: %v", bd.id, resume, err)
		}
	}

	err := b.media.Play(bd.ctx)
	if bd.ctx.Err() != nil {
		return
	}

	switch {
	case err == nil:
		b.transition(bd, Playing)
	case errors.Is(err, ErrAutoplayBlocked):
		log.Infof("binding %s: autoplay blocked, staying paused", bd.id)
		b.transition(bd, Paused)
	default:
		b.handleFault(bd, &Fault{Kind: FaultOther, Fatal: true, Err: err})
	}
}

func (b *Binder) onMedia(bd *binding, ev MediaEvent, err error) {
	b.mu.Lock()
	if !b.liveLocked(bd) {
		b.mu.Unlock()
		return
	}
	state := b.state
	b.mu.Unlock()

	switch ev {
	case MediaPlaying:
		if state == Attaching || state == Paused || state == Recovering {
			b.transition(bd, Playing)
		}
	case MediaPaused, MediaEnded:
		if state == Playing {
			b.transition(bd, Paused)
		}
	case MediaError:
		b.handleFault(bd, &Fault{Kind: FaultDecode, Fatal: true, Err: err})
	}
}

func (b *Binder) onPipeline(bd *binding, ev PipelineEvent) {
	b.mu.Lock()
	if !b.liveLocked(bd) {
		b.mu.Unlock()
		log.Debugf("binding %s: dropped late pipeline event", bd.id)
		return
	}
	state := b.state
	b.mu.Unlock()

	switch ev.Type {
	case ManifestParsed:
		if state == Attaching || state == Recovering {
			b.spawn(func() {
				b.bindSource(bd, ev.URL)
			})
		}
	case PipelineFault:
		b.handleFault(bd, ev.Fault)
	}
}

// handleFault applies the recovery policy of the fault class. Recovery runs
// under opMu so it never interleaves with a user operation on the media element.
func (b *Binder) handleFault(bd *binding, f *Fault) {
	if f == nil {
		return
	}
	if !f.Fatal {
		log.Warnf("binding %s: %v", bd.id, f)
		return
	}

	pos, posErr := b.media.CurrentTime()

	b.mu.Lock()
	if !b.liveLocked(bd) || b.state == Failed {
		b.mu.Unlock()
		return
	}
	if posErr == nil {
		if bd.retries > 0 && pos >= bd.faultAt+recoveredAfter {
			bd.retries = 0
		}
		bd.faultAt = max(bd.faultAt, pos)
	}
	bd.retries++
	attempt := bd.retries
	if f.Kind == FaultOther || attempt > b.maxRetries {
		b.mu.Unlock()
		var err error = f
		if f.Kind != FaultOther {
			err = fmt.Errorf("gave up after %d recovery attempts: %w", b.maxRetries, f)
		}
		_ = b.fail(bd, err)
		return
	}
	b.state = Recovering
	st := b.statusLocked()
	b.mu.Unlock()
	b.emit(st)

	log.Warnf("binding %s: %v, recovery attempt %d/%d", bd.id, f, attempt, b.maxRetries)

	b.spawn(func() {
		b.opMu.Lock()
		defer b.opMu.Unlock()
		b.recover(bd, f)
	})
}

func (b *Binder) recover(bd *binding, f *Fault) {
	pos, posErr := b.media.CurrentTime()

	b.mu.Lock()
	if !b.liveLocked(bd) || b.state != Recovering {
		b.mu.Unlock()
		return
	}
	if posErr == nil && pos > 0 {
		bd.position = pos
	}
	bd.resumeAt = bd.position
	p := bd.pipeline
	b.mu.Unlock()

	var err error
	switch {
	case p != nil && f.Kind == FaultNetwork:
		// playback resumes on the next ManifestParsed
		err = p.Reload()
	case p != nil:
		var local string
		if local, err = p.RecoverDecoder(); err == nil {
			err = b.setSourceLocked(bd, local)
		}
	default:
		if err = b.media.SetSource(bd.variant.URL, bd.headers); err == nil {
			b.requestPlay(bd)
		}
	}

	if err != nil {
		_ = b.fail(bd, fmt.Errorf("recover from %v: %w", f, err))
	}
}

// bindSource points the media element at a pipeline's output and starts
// playback, unless bd was torn down or failed meanwhile.
func (b *Binder) bindSource(bd *binding, local string) {
	b.opMu.Lock()
	err := b.setSourceLocked(bd, local)
	b.opMu.Unlock()

	if err != nil {
		_ = b.fail(bd, fmt.Errorf("set source: %w", err))
	}
}

// setSourceLocked must run under opMu, which every teardown holds too, so a
// stale binding can never replace the source of the current one.
func (b *Binder) setSourceLocked(bd *binding, local string) error {
	b.mu.Lock()
	ok := b.liveLocked(bd) && (b.state == Attaching || b.state == Recovering)
	b.mu.Unlock()
	if !ok {
		log.Debugf("binding %s: dropped source of a stale pipeline", bd.id)
		return nil
	}

	if err := b.media.SetSource(local, nil); err != nil {
		return err
	}
	b.requestPlay(bd)
	return nil
}

// message renders err for the error banner.
func message(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		switch f.Kind {
		case FaultNetwork:
			return "The stream could not be loaded. Check your connection and retry."
		case FaultDecode:
			return "The stream could not be decoded. Try another quality."
		}
	}
	return fmt.Sprintf("Playback failed: %v", err)
}
