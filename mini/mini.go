// Package mini implements a lightweight prompt interface for anime search and playback.
package mini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/style"
	"github.com/anistream/anistream/tui"
	"github.com/anistream/anistream/util"
)

// Options configures a mini session.
type Options struct {
	Resolver source.Resolver
	History  *history.History
	Launch   tui.Launcher
	Continue bool
	Query    string
	Quality  string
	Language source.Language
}

type mini struct {
	ctx     context.Context
	options *Options
	prompt  prompter
	out     io.Writer

	state         state
	statesHistory util.Stack[state]

	query         string
	results       []*source.Anime
	selectedAnime *source.Anime
	episodes      []*source.Episode
	current       int
}

func newMini(ctx context.Context, options *Options, prompt prompter, out io.Writer) *mini {
	m := &mini{
		ctx:     ctx,
		options: options,
		prompt:  prompt,
		out:     out,
		state:   searchState,
	}
	if options.Continue && options.History != nil {
		m.state = historyState
	}
	return m
}

// Run drives the prompts until the user quits or ctx is cancelled.
func Run(ctx context.Context, options *Options) error {
	if options.Resolver == nil {
		return errors.New("mini: no resolver configured")
	}
	if options.Launch == nil {
		options.Launch = tui.MPVLauncher(options.Language)
	}

	return newMini(ctx, options, surveyPrompter{}, os.Stdout).run()
}

func (m *mini) run() error {
	for m.state != quitState {
		if m.ctx.Err() != nil {
			return nil
		}

		err := m.handleState()
		if errors.Is(err, errInterrupted) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *mini) handleState() error {
	switch m.state {
	case historyState:
		return m.handleHistoryState()
	case searchState:
		return m.handleSearchState()
	case animeSelectState:
		return m.handleAnimeSelectState()
	case episodeSelectState:
		return m.handleEpisodeSelectState()
	case watchState:
		return m.handleWatchState()
	}
	return nil
}

func (m *mini) setState(s state) {
	m.state = s
}

func (m *mini) newState(s state) {
	if m.state == s {
		return
	}
	m.statesHistory.Push(m.state)
	m.setState(s)
}

func (m *mini) previousState() {
	if m.statesHistory.Len() == 0 {
		m.setState(quitState)
		return
	}
	m.setState(m.statesHistory.Pop())
}

func (m *mini) title(msg string) {
	_, _ = fmt.Fprintln(m.out, style.New().Bold(true).Foreground(color.HiBlue).Render(msg))
}

func (m *mini) fail(msg string) {
	_, _ = fmt.Fprintf(m.out, "%s %s\n", icon.Get(icon.Fail), style.Fg(color.Red)(msg))
}

func (m *mini) warn(msg string) {
	_, _ = fmt.Fprintf(m.out, "%s %s\n", icon.Get(icon.Warn), style.Fg(color.Yellow)(msg))
}

// progress prints msg and returns a function erasing it.
func (m *mini) progress(msg string) func() {
	if m.out != os.Stdout {
		return func() {}
	}
	return util.PrintErasable(fmt.Sprintf("%s %s", icon.Get(icon.Progress), style.Faint(msg)))
}
