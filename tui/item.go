// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"

	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// listItem implements the list.Item interface, wrapping domain models for terminal display.
type listItem struct {
	internal any
	// watched is the saved progress of an episode.
	watched mo.Option[float64]
}

func completionThreshold() float64 {
	threshold := viper.GetFloat64(key.PlayerCompletionPercentage)
	if threshold <= 0 {
		return 80
	}
	return threshold
}

func renderProgress(percentage float64) string {
	if percentage >= completionThreshold() {
		return lipgloss.NewStyle().Foreground(style.Green).Render("Watched")
	}
	return lipgloss.NewStyle().Foreground(style.Yellow).Render(fmt.Sprintf("%.0f%%", percentage))
}

// Title retrieves the primary display text for the list item.
func (t *listItem) Title() string {
	switch e := t.internal.(type) {
	case *source.Episode:
		if p, ok := t.watched.Get(); ok && p >= completionThreshold() {
			return e.String() + " " + lipgloss.NewStyle().Foreground(style.AccentColor).Render(icon.Get(icon.Success))
		}
		return e.String()
	case *source.Anime:
		return e.Title
	case *history.Entry:
		return e.AnimeTitle
	default:
		return t.FilterValue()
	}
}

// Description retrieves the secondary metadata for the list item.
func (t *listItem) Description() string {
	switch e := t.internal.(type) {
	case *source.Episode:
		if p, ok := t.watched.Get(); ok && p > 0 {
			return renderProgress(p)
		}
		return ""
	case *source.Anime:
		var parts []string

		if e.Type != "" {
			parts = append(parts, e.Type)
		}
		if e.ReleaseDate != "" {
			parts = append(parts, lipgloss.NewStyle().Foreground(style.FaintColor).Render(string(e.ReleaseDate)))
		}
		if e.Status != "" {
			c := style.Subtext
			if strings.EqualFold(e.Status, "ongoing") {
				c = style.Green
			}
			parts = append(parts, lipgloss.NewStyle().Foreground(c).Render(e.Status))
		}
		if e.TotalEpisodes > 0 {
			parts = append(parts, lipgloss.NewStyle().Foreground(style.FaintColor).Render(fmt.Sprintf("%d eps", e.TotalEpisodes)))
		}

		return strings.Join(parts, " • ")
	case *history.Entry:
		return fmt.Sprintf("Episode %d • %s", e.EpisodeNumber, renderProgress(e.WatchedPercentage))
	default:
		return ""
	}
}

// FilterValue returns the string used for list filtering.
func (t *listItem) FilterValue() string {
	switch e := t.internal.(type) {
	case *source.Episode:
		return e.String()
	case *source.Anime:
		return e.Title
	case *history.Entry:
		return e.AnimeTitle
	case string:
		return e
	default:
		return ""
	}
}
