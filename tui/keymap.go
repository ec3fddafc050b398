// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
)

// statefulKeymap holds every binding and shows the ones relevant to the current state.
type statefulKeymap struct {
	state state

	quit, forceQuit,
	acceptSearchSuggestion,
	remove,
	watchlist,
	confirm,
	play,
	back,
	up, down, left, right,
	top, bottom,
	nextQuality, prevQuality,
	toggleLanguage,
	pause,
	retry,
	showHelp key.Binding
}

func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

func newStatefulKeymap() *statefulKeymap {
	accent := style.Fg(color.Orange)

	return &statefulKeymap{
		quit:                   bind("q", "quit", "q"),
		forceQuit:              bind("ctrl+c", "quit", "ctrl+c", "ctrl+d"),
		remove:                 bind("d", "remove", "d"),
		watchlist:              bind("w", "watchlist", "w"),
		confirm:                bind("enter", "confirm", "enter"),
		play:                   bind(accent("enter"), accent("play"), "enter"),
		acceptSearchSuggestion: bind("tab", "accept search suggestion", "tab"),
		back:                   bind("esc", "back", "esc"),

		up:     bind("↑", "up", "up", "k"),
		down:   bind("↓", "down", "down", "j"),
		left:   bind("←", "left", "left", "h"),
		right:  bind("→", "right", "right", "l"),
		top:    bind("g", "top", "g"),
		bottom: bind("G", "bottom", "G"),

		// watch screen only, where no list is listening for q
		nextQuality:    bind("q", "next quality", "q"),
		prevQuality:    bind("Q", "previous quality", "Q"),
		toggleLanguage: bind("d", "sub/dub", "d"),
		pause:          bind("space", "pause/resume", " ", "space"),
		retry:          bind("r", "retry", "r"),

		showHelp: bind("?", "help", "?"),
	}
}

// help returns the short and full bindings for the current state.
func (k *statefulKeymap) help() (short, full []key.Binding) {
	switch k.state {
	case loadingState:
		short = []key.Binding{k.forceQuit, k.back}
	case historyState:
		short = []key.Binding{k.play, k.remove, k.back}
	case searchState:
		short = []key.Binding{k.confirm, k.acceptSearchSuggestion, k.forceQuit}
	case animesState:
		short = []key.Binding{k.confirm, k.back}
	case episodesState:
		short = []key.Binding{k.play, k.watchlist, k.back}
		full = append(short[:len(short):len(short)], k.forceQuit)
	case watchState:
		short = []key.Binding{k.pause, k.nextQuality, k.toggleLanguage, k.retry, k.back}
		full = []key.Binding{k.pause, k.nextQuality, k.prevQuality, k.toggleLanguage, k.retry, k.back, k.forceQuit}
	case errorState:
		short = []key.Binding{k.back, k.quit}
	}

	if full == nil {
		full = short
	}
	return short, full
}

func (k *statefulKeymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

func (k *statefulKeymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full}
}

func (k *statefulKeymap) forList() list.KeyMap {
	return list.KeyMap{
		CursorUp:             k.up,
		CursorDown:           k.down,
		NextPage:             k.right,
		PrevPage:             k.left,
		GoToStart:            k.top,
		GoToEnd:              k.bottom,
		ClearFilter:          k.back,
		CancelWhileFiltering: k.back,
		AcceptWhileFiltering: k.confirm,
		ShowFullHelp:         k.showHelp,
		CloseFullHelp:        k.showHelp,
		Quit:                 k.quit,
		ForceQuit:            k.forceQuit,
	}
}
