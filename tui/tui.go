// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"context"
	"errors"

	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/watchlist"
	tea "github.com/charmbracelet/bubbletea"
)

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	Resolver  source.Resolver
	History   *history.History
	Watchlist *watchlist.Watchlist
	Launch    Launcher

	// Continue opens the watch history first.
	Continue bool
	// Query starts a search right away.
	Query string

	// AnimeID and EpisodeID start playback of one episode directly.
	AnimeID   string
	EpisodeID string

	// Quality is the initial tier; empty keeps the automatic choice.
	Quality  string
	Language source.Language
}

// Run initializes and executes the primary Bubble Tea application loop.
func Run(ctx context.Context, options *Options) error {
	if options.Resolver == nil {
		return errors.New("tui: no resolver")
	}
	if options.Launch == nil {
		options.Launch = MPVLauncher(options.Language)
	}

	bubble := newBubble(ctx, options)
	defer bubble.closeSession()

	switch {
	case options.Continue:
		if _, err := bubble.loadHistory(); err != nil {
			return err
		}
		bubble.newState(historyState)
	case options.AnimeID != "":
		bubble.newState(loadingState)
	default:
		bubble.newState(searchState)
	}

	_, err := tea.NewProgram(bubble, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	return err
}
