package player

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/source"
	"github.com/samber/mo"
)

// NoSourceMessage is shown when an episode resolves to no variants.
const NoSourceMessage = "No video source available"

// Options configures a Controller.
type Options struct {
	NewPipeline PipelineFactory
	MaxRetries  int
	// Language is the initial language preference.
	Language    source.Language
	Clock       Clock
	IdleTimeout time.Duration
	// OnDiagnostic receives selection misses and other non-fatal conditions.
	OnDiagnostic func(error)
}

// Props are the inputs supplied by the page for the current episode.
type Props struct {
	Sources []*source.Variant
	// Headers apply to every request made for any of the sources.
	Headers map[string]string
	Poster  string
	Loading bool
	Error   string
}

// Status is everything a view needs to render the player.
type Status struct {
	UIView

	State    State
	Variant  *source.Variant
	Tier     string
	Language source.Language
	// Auto is set while the default tier policy applies.
	Auto   bool
	Tiers  []string
	HasSub bool
	HasDub bool
	Poster string
}

// Controller composes the catalog, selector, binder and UI state into a
// video player driving one media element.
type Controller struct {
	binder       *Binder
	ui           *UIState
	onDiagnostic func(error)

	mu        sync.Mutex
	props     Props
	catalog   *source.Catalog
	pref      Preference
	unmounted bool

	subMu sync.Mutex
	subID int
	subs  map[int]func(Status)

	unbind func()
}

// New mounts a player on media.
func New(media MediaElement, opts Options) *Controller {
	c := &Controller{
		binder: NewBinder(media, BinderOptions{
			NewPipeline: opts.NewPipeline,
			MaxRetries:  opts.MaxRetries,
		}),
		onDiagnostic: opts.OnDiagnostic,
		catalog:      source.NewCatalog(nil),
		pref:         DefaultPreference(opts.Language),
		subs:         make(map[int]func(Status)),
	}

	c.ui = NewUIState(opts.Clock, opts.IdleTimeout, c.notify)
	c.unbind = c.binder.Subscribe(c.ui.Reflect)
	return c
}

// Update applies new page props. A changed source list re-runs selection and
// starts the chosen variant from the beginning.
func (c *Controller) Update(props Props) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrDetached
	}
	changed := !sameSources(c.props, props)
	c.props = props
	c.props.Headers = maps.Clone(props.Headers)
	if changed {
		c.catalog = source.NewCatalog(props.Sources)
	}
	c.mu.Unlock()

	c.ui.SetPage(props.Loading, props.Error)

	if !c.ui.CanAttach() {
		if err := c.binder.Detach(); err != nil && !errors.Is(err, ErrDetached) {
			return err
		}
		return nil
	}

	st := c.binder.Status().State
	if !changed && st != Idle {
		return nil
	}

	return c.reconcile(0)
}

// SetQuality switches to tier. An empty tier restores the default policy.
// Playback resumes at the current position.
func (c *Controller) SetQuality(tier string) error {
	return c.setPreference(func(p *Preference) {
		if tier == "" {
			p.Tier = mo.None[string]()
		} else {
			p.Tier = mo.Some(tier)
		}
	})
}

// SetLanguage switches the audio track. Playback resumes at the current position.
func (c *Controller) SetLanguage(lang source.Language) error {
	return c.setPreference(func(p *Preference) {
		p.Language = lang
	})
}

func (c *Controller) setPreference(apply func(*Preference)) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrDetached
	}
	apply(&c.pref)
	c.mu.Unlock()

	if !c.ui.CanAttach() {
		c.notify()
		return nil
	}
	return c.reconcile(c.binder.Position())
}

// reconcile selects a variant for the current preference and binds it.
// A selection miss keeps the current binding.
func (c *Controller) reconcile(resumeAt float64) error {
	c.mu.Lock()
	catalog, pref, headers := c.catalog, c.pref, c.props.Headers
	c.mu.Unlock()

	variant, err := Select(catalog, pref)
	switch {
	case errors.Is(err, ErrNoSources):
		if err := c.binder.Detach(); err != nil {
			return err
		}
		c.ui.SetPlayError(NoSourceMessage)
		return nil
	case errors.Is(err, ErrSelectionMiss):
		if c.binder.Variant() == nil {
			// nothing to keep playing, so the viewer has to hear about it
			log.Warnf("player: %v, nothing bound", err)
			c.ui.SetPlayError(missMessage(pref.Language))
		} else {
			log.Warnf("player: %v, keeping current stream", err)
		}
		if c.onDiagnostic != nil {
			c.onDiagnostic(err)
		}
		c.notify()
		return err
	case err != nil:
		return err
	}

	st := c.binder.Status()
	if st.Variant == variant && st.State != Failed && st.State != Idle {
		c.notify()
		return nil
	}

	if err := c.binder.Attach(variant, headers, resumeAt); err != nil {
		log.Errorf("player: attach %s: %v", variant, err)
		return err
	}
	return nil
}

func missMessage(lang source.Language) string {
	return fmt.Sprintf("No %s source available for this episode", lang)
}

// Retry re-attaches after a failure.
func (c *Controller) Retry() error {
	c.mu.Lock()
	unmounted := c.unmounted
	c.mu.Unlock()
	if unmounted {
		return ErrDetached
	}
	if !c.ui.CanAttach() {
		return nil
	}

	if c.binder.Status().State == Idle {
		return c.reconcile(0)
	}
	return c.binder.Retry()
}

// TogglePause pauses or resumes playback.
func (c *Controller) TogglePause() error {
	return c.binder.TogglePause()
}

// PointerMove records pointer activity.
func (c *Controller) PointerMove() {
	c.ui.PointerMove()
}

// Position returns the playback position in seconds.
func (c *Controller) Position() float64 {
	return c.binder.Position()
}

// Status returns a snapshot of the player.
func (c *Controller) Status() Status {
	bs := c.binder.Status()
	view := c.ui.View()

	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		UIView:   view,
		State:    bs.State,
		Variant:  bs.Variant,
		Language: c.pref.Language,
		Auto:     c.pref.Tier.IsAbsent(),
		Tiers:    source.SortTiers(c.catalog.Tiers()),
		HasSub:   c.catalog.HasLanguage(source.Sub),
		HasDub:   c.catalog.HasLanguage(source.Dub),
		Poster:   c.props.Poster,
	}
	if bs.Variant != nil {
		st.Tier = bs.Variant.Tier()
	} else {
		st.Tier = EffectiveTier(c.catalog, c.pref).OrEmpty()
	}
	return st
}

// Subscribe registers fn for every status change.
func (c *Controller) Subscribe(fn func(Status)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.subID
	c.subID++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller) notify() {
	c.subMu.Lock()
	fns := make([]func(Status), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	if len(fns) == 0 {
		return
	}

	st := c.Status()
	for _, fn := range fns {
		fn(st)
	}
}

// Unmount detaches the binding, cancels the idle timer and drops the preference.
func (c *Controller) Unmount() error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return nil
	}
	c.unmounted = true
	c.mu.Unlock()

	c.ui.Close()
	err := c.binder.Close()
	c.unbind()

	c.subMu.Lock()
	clear(c.subs)
	c.subMu.Unlock()
	return err
}

func sameSources(a, b Props) bool {
	return slices.Equal(a.Sources, b.Sources) && maps.Equal(a.Headers, b.Headers)
}
