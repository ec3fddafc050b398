// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"

	"github.com/anistream/anistream/color"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/player"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
)

var (
	listExtraPaddingStyle = lipgloss.NewStyle().Padding(1, 2, 1, 0)
	paddingStyle          = lipgloss.NewStyle().Padding(1, 2)

	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(style.AccentColor)
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(style.ErrorColor)
)

func (b *statefulBubble) View() string {
	switch b.state {
	case loadingState:
		return b.viewLoading()
	case historyState:
		return listExtraPaddingStyle.Render(b.historyC.View())
	case searchState:
		return b.viewSearch()
	case animesState:
		return listExtraPaddingStyle.Render(b.animesC.View())
	case episodesState:
		return listExtraPaddingStyle.Render(b.episodesC.View())
	case watchState:
		return b.viewWatch()
	case errorState:
		return b.viewError()
	default:
		return "Unknown state"
	}
}

func (b *statefulBubble) viewLoading() string {
	return b.renderLines(
		true,
		[]string{
			style.Title("Loading"),
			"",
			b.spinnerC.View() + " " + b.progressStatus,
		},
	)
}

func (b *statefulBubble) viewSearch() string {
	lines := []string{
		style.Title("Search Anime"),
		"",
		b.inputC.View(),
	}

	if suggestion, ok := b.searchSuggestion.Get(); ok {
		lines = append(lines, "", style.Faint("tab: "+suggestion))
	}

	return b.renderLines(true, lines)
}

func (b *statefulBubble) viewWatch() string {
	st := b.status
	truncate := style.Truncate(b.width)

	var animeTitle, episodeName string
	if b.selectedAnime != nil {
		animeTitle = b.selectedAnime.Title
	}
	if b.watching != nil {
		episodeName = b.watching.episode.String()
	}

	lines := []string{
		style.Title("Now Playing"),
		"",
		truncate(style.Bold(animeTitle)),
		truncate(style.Fg(color.Purple)(episodeName)),
	}
	if st.Poster != "" {
		lines = append(lines, truncate(style.Faint(st.Poster)))
	}

	lines = append(lines,
		"",
		truncate("Quality  "+renderTiers(st)),
		truncate("Audio    "+renderLanguages(st)),
		"",
		truncate(b.renderPlayback(st)),
	)

	if banner := errorBanner(st); banner != "" {
		lines = append(lines, "", wrap.String(banner, b.width))
	}

	return b.renderLines(st.ControlsVisible, lines)
}

func renderTiers(st player.Status) string {
	if len(st.Tiers) == 0 {
		return style.Faint("none")
	}

	parts := make([]string, 0, len(st.Tiers)+1)
	if st.Auto {
		parts = append(parts, currentStyle.Render("auto"))
	} else {
		parts = append(parts, style.Faint("auto"))
	}

	for _, tier := range st.Tiers {
		if tier == st.Tier {
			parts = append(parts, currentStyle.Render("["+tier+"]"))
		} else {
			parts = append(parts, tier)
		}
	}

	return strings.Join(parts, " ")
}

func renderLanguages(st player.Status) string {
	render := func(lang source.Language, available bool) string {
		label := strings.ToUpper(string(lang))
		switch {
		case lang == st.Language:
			return currentStyle.Render(label)
		case !available:
			return style.Faint(label)
		default:
			return label
		}
	}

	return render(source.Sub, st.HasSub) + " " + render(source.Dub, st.HasDub)
}

func (b *statefulBubble) renderPlayback(st player.Status) string {
	switch {
	case st.Loading:
		return b.spinnerC.View() + " Loading episode..."
	case st.State == player.Recovering:
		return b.spinnerC.View() + " Recovering..."
	case st.Buffering:
		return b.spinnerC.View() + " Buffering..."
	case st.Playing:
		return icon.Get(icon.Play) + " Playing"
	case st.State == player.Paused:
		return icon.Get(icon.Pause) + " Paused"
	case st.State == player.Failed:
		return icon.Get(icon.Fail) + " Stopped"
	default:
		return style.Faint("Idle")
	}
}

// errorBanner renders the page or playback error, if any.
func errorBanner(st player.Status) string {
	msg := st.Error
	if msg == "" {
		msg = st.PlayError
	}
	if msg == "" {
		return ""
	}

	return fmt.Sprintf("%s %s %s", icon.Get(icon.Warn), bannerStyle.Render(msg), style.Faint("press r to retry"))
}

func (b *statefulBubble) viewError() string {
	errorMsg := wrap.String(bannerStyle.Render(b.lastError.Error()), b.width)
	return b.renderLines(
		true,
		[]string{
			style.ErrorTitle("Error"),
			"",
			icon.Get(icon.Fail) + " An error occurred:",
			"",
			errorMsg,
		},
	)
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h {
			l += strings.Repeat("\n", b.height-h)
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
