package player

import (
	"sync"
	"time"
)

// IdleTimeout hides the controls after this long without pointer activity.
const IdleTimeout = 3 * time.Second

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// UIView is a snapshot of UIState used for rendering.
type UIView struct {
	Loading         bool
	Error           string
	Buffering       bool
	PlayError       string
	Playing         bool
	ControlsVisible bool
}

// UIState holds the transient rendering flags of a player. It makes no
// playback decisions; it only gates when attaching is allowed.
type UIState struct {
	clock    Clock
	timeout  time.Duration
	onChange func()

	mu        sync.Mutex
	loading   bool
	pageErr   string
	buffering bool
	playErr   string
	playing   bool
	visible   bool
	timer     Timer
	gen       uint64
	closed    bool
}

// NewUIState returns a UIState with controls visible and the idle timer
// running. onChange runs after every change, outside the lock; it may be nil.
func NewUIState(clock Clock, timeout time.Duration, onChange func()) *UIState {
	if clock == nil {
		clock = SystemClock
	}
	if timeout <= 0 {
		timeout = IdleTimeout
	}
	u := &UIState{
		clock:    clock,
		timeout:  timeout,
		onChange: onChange,
		visible:  true,
	}
	u.armLocked()
	return u
}

// SetPage records the page-level loading flag and error.
func (u *UIState) SetPage(loading bool, err string) {
	u.update(func() {
		u.loading = loading
		u.pageErr = err
	})
}

// Reflect mirrors a binder status.
func (u *UIState) Reflect(st BindingStatus) {
	u.update(func() {
		u.buffering = st.Loading()
		u.playing = st.Playing()
		u.playErr = st.Error
	})
}

// SetPlayError overrides the playback error, e.g. for an empty source list.
func (u *UIState) SetPlayError(msg string) {
	u.update(func() {
		u.playErr = msg
		if msg != "" {
			u.buffering = false
			u.playing = false
		}
	})
}

// CanAttach reports whether the page is ready for a binding.
func (u *UIState) CanAttach() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return !u.loading && u.pageErr == "" && !u.closed
}

// PointerMove shows the controls and restarts the idle timer.
func (u *UIState) PointerMove() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}

	u.armLocked()

	changed := !u.visible
	u.visible = true
	u.mu.Unlock()

	if changed {
		u.changed()
	}
}

// armLocked replaces the pending idle timer with a fresh one.
func (u *UIState) armLocked() {
	if u.timer != nil {
		u.timer.Stop()
	}
	u.gen++
	gen := u.gen
	u.timer = u.clock.AfterFunc(u.timeout, func() {
		u.expire(gen)
	})
}

func (u *UIState) expire(gen uint64) {
	u.mu.Lock()
	// a stale timer that fired while being reset
	if u.closed || gen != u.gen || !u.visible {
		u.mu.Unlock()
		return
	}
	u.visible = false
	u.timer = nil
	u.mu.Unlock()

	u.changed()
}

// ControlsVisible reports whether the controls are shown.
func (u *UIState) ControlsVisible() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.visible
}

// View returns a snapshot for rendering.
func (u *UIState) View() UIView {
	u.mu.Lock()
	defer u.mu.Unlock()

	return UIView{
		Loading:         u.loading,
		Error:           u.pageErr,
		Buffering:       u.buffering,
		PlayError:       u.playErr,
		Playing:         u.playing,
		ControlsVisible: u.visible,
	}
}

// Close cancels the idle timer. Later pointer moves are ignored.
func (u *UIState) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.closed = true
	u.gen++
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
}

func (u *UIState) update(fn func()) {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	fn()
	u.mu.Unlock()

	u.changed()
}

func (u *UIState) changed() {
	if u.onChange != nil {
		u.onChange()
	}
}
