// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/player"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/style"
	"github.com/anistream/anistream/util"
	"github.com/charmbracelet/bubbles/help"
	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// watching is the player window of the episode on screen.
type watching struct {
	session     Session
	episode     *source.Episode
	statuses    chan player.Status
	closed      chan struct{}
	unsubscribe func()
}

// statefulBubble encapsulates the application state, including component models and workflow tracking.
type statefulBubble struct {
	state         state
	statesHistory util.Stack[state]
	loading       bool

	keymap *statefulKeymap

	// components
	spinnerC  spinner.Model
	inputC    textinput.Model
	historyC  list.Model
	animesC   list.Model
	episodesC list.Model
	helpC     help.Model

	selectedAnime *source.Anime
	watching      *watching
	status        player.Status

	progressStatus string
	lastError      error

	width, height    int
	searchSuggestion mo.Option[string]

	ctx     context.Context
	options *Options
}

// raiseError dispatches a terminal error and transitions the application to the failure view.
func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.newState(errorState)
}

// setState performs a synchronous transition of both the application workflow and its associated keymap.
func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

// newState transitions to s, recording the previous state in the navigation history when appropriate.
func (b *statefulBubble) newState(s state) {
	if b.state == s {
		return
	}

	if !lo.Contains([]state{
		loadingState,
		errorState,
	}, b.state) {
		b.statesHistory.Push(b.state)
	}

	b.setState(s)
}

// previousState restores the application to its immediate predecessor in the navigation stack.
// It reports false when there is nothing to go back to.
func (b *statefulBubble) previousState() bool {
	if b.statesHistory.Len() == 0 {
		return false
	}

	b.setState(b.statesHistory.Pop())
	return true
}

// resize propagates terminal dimension changes to all child component models.
func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	xx, yy := listExtraPaddingStyle.GetFrameSize()

	listWidth := width - xx
	listHeight := height - yy

	for _, l := range []*list.Model{&b.historyC, &b.animesC, &b.episodesC} {
		l.SetSize(listWidth, listHeight)
		l.Help.Width = listWidth
	}

	b.width = width - x
	b.height = height - y
	b.helpC.Width = listWidth
}

func (b *statefulBubble) startLoading() tea.Cmd {
	b.loading = true
	return tea.Batch(b.spinnerC.Tick, b.animesC.StartSpinner(), b.episodesC.StartSpinner())
}

func (b *statefulBubble) stopLoading() {
	b.loading = false
	b.animesC.StopSpinner()
	b.episodesC.StopSpinner()
}

func newBubble(ctx context.Context, options *Options) *statefulBubble {
	bubble := statefulBubble{
		statesHistory: util.Stack[state]{},
		keymap:        newStatefulKeymap(),
		ctx:           ctx,
		options:       options,
	}

	makeList := func(title string, titleColor lipgloss.Color) list.Model {
		delegate := list.NewDefaultDelegate()
		delegate.Styles.SelectedTitle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(style.AccentColor).
			Foreground(style.AccentColor).
			Padding(0, 0, 0, 1)
		delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(lipgloss.Color("7"))
		delegate.Styles.SelectedDesc = delegate.Styles.SelectedTitle

		listC := list.New([]list.Item{}, delegate, 0, 0)
		listC.KeyMap = bubble.keymap.forList()
		listC.AdditionalShortHelpKeys = bubble.keymap.ShortHelp
		listC.AdditionalFullHelpKeys = func() []bubblesKey.Binding {
			return bubble.keymap.FullHelp()[0]
		}
		listC.Title = title
		listC.Styles.Title = lipgloss.NewStyle().Foreground(style.Base).Background(titleColor).Padding(0, 1)
		listC.Styles.NoItems = paddingStyle
		listC.StatusMessageLifetime = 3 * time.Second
		listC.SetFilteringEnabled(false)
		listC.SetShowPagination(false)
		listC.SetShowStatusBar(false)

		return listC
	}

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(style.AccentColor)

	bubble.inputC = textinput.New()
	bubble.inputC.Placeholder = fmt.Sprintf("Search Anime (v%s)", constant.Version)
	bubble.inputC.CharLimit = 60
	bubble.inputC.Prompt = "> "

	bubble.historyC = makeList("Continue Watching", style.Yellow)
	bubble.historyC.SetStatusBarItemName("entry", "entries")

	bubble.animesC = makeList("Anime Results", style.Lavender)
	bubble.animesC.SetStatusBarItemName("anime", "anime")

	bubble.episodesC = makeList("Episodes", style.Peach)
	bubble.episodesC.SetStatusBarItemName("episode", "episodes")

	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	bubble.inputC.Focus()
	if options.Query != "" {
		bubble.inputC.SetValue(options.Query)
	}

	return &bubble
}
