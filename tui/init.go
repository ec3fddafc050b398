// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Init triggers the initial loads for the starting screen.
func (b *statefulBubble) Init() tea.Cmd {
	switch {
	case b.options.AnimeID != "":
		b.progressStatus = "Loading anime..."
		return tea.Batch(b.startLoading(), b.fetchAnime(b.options.AnimeID, b.options.EpisodeID))
	case b.state == searchState && b.options.Query != "":
		return b.search(b.options.Query)
	default:
		return textinput.Blink
	}
}
