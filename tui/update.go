// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"errors"

	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/player"
	"github.com/anistream/anistream/query"
	"github.com/anistream/anistream/source"
	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		b.stopLoading()
		b.raiseError(msg)
		return b, nil
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case spinner.TickMsg:
		if !b.loading && b.state != watchState {
			return b, nil
		}
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd
	case pageMsg:
		return b, b.onPage(msg)
	case animeMsg:
		return b, b.onAnime(msg)
	case sessionMsg:
		if b.state != loadingState {
			// went back while the window was opening
			if err := msg.session.Close(); err != nil {
				log.Warnf("closing player: %v", err)
			}
			return b, nil
		}
		return b, b.attach(msg)
	case sourcesMsg:
		if msg.w == b.watching {
			b.applySources(msg)
		}
		return b, nil
	case statusMsg:
		if msg.w != b.watching {
			return b, nil
		}
		b.status = msg.status
		return b, b.waitForStatus(msg.w)
	case sessionEndedMsg:
		if msg.w != b.watching {
			return b, nil
		}
		b.closeSession()
		return b, b.back()
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.forceQuit):
			b.closeSession()
			return b, tea.Quit
		case bubblesKey.Matches(msg, b.keymap.back):
			switch b.state {
			case searchState:
				b.inputC.SetValue("")
				b.searchSuggestion = mo.None[string]()
			case watchState:
				b.closeSession()
			case loadingState:
				b.stopLoading()
			}
			return b, b.back()
		}
	}

	switch b.state {
	case historyState:
		return b.updateHistory(msg)
	case searchState:
		return b.updateSearch(msg)
	case animesState:
		return b.updateAnimes(msg)
	case episodesState:
		return b.updateEpisodes(msg)
	case watchState:
		return b.updateWatch(msg)
	case errorState:
		return b.updateError(msg)
	}

	return b, nil
}

// back returns to the previous screen, quitting when there is none.
func (b *statefulBubble) back() tea.Cmd {
	if !b.previousState() {
		return tea.Quit
	}

	if b.state == episodesState && b.selectedAnime != nil {
		return b.setEpisodes(b.selectedAnime)
	}
	return nil
}

func (b *statefulBubble) onPage(msg pageMsg) tea.Cmd {
	if b.state != loadingState {
		return nil
	}

	items := lo.Map(msg.page.Results, func(a *source.Anime, _ int) list.Item {
		return &listItem{internal: a}
	})

	b.stopLoading()
	b.animesC.ResetSelected()
	b.newState(animesState)
	return b.animesC.SetItems(items)
}

func (b *statefulBubble) onAnime(msg animeMsg) tea.Cmd {
	if b.state != loadingState {
		return nil
	}

	b.selectedAnime = msg.anime
	b.stopLoading()
	b.episodesC.ResetSelected()
	b.newState(episodesState)
	cmd := b.setEpisodes(msg.anime)

	if msg.play == "" {
		if last, ok := b.lastWatched(msg.anime.ID).Get(); ok {
			b.selectEpisode(last)
		}
		return cmd
	}

	episode := msg.anime.Episode(msg.play).OrElse(&source.Episode{ID: msg.play})
	b.selectEpisode(msg.play)
	return tea.Batch(cmd, b.startWatching(episode))
}

func (b *statefulBubble) lastWatched(animeID string) mo.Option[string] {
	if b.options.History == nil {
		return mo.None[string]()
	}

	last, ok := b.options.History.Last(animeID).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(last.EpisodeID)
}

func (b *statefulBubble) selectEpisode(id string) {
	_, index, ok := lo.FindIndexOf(b.episodesC.Items(), func(i list.Item) bool {
		e, _ := i.(*listItem).internal.(*source.Episode)
		return e != nil && e.ID == id
	})
	if ok {
		b.episodesC.Select(index)
	}
}

func (b *statefulBubble) updateHistory(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.remove):
			entry, ok := selected[*history.Entry](&b.historyC).Get()
			if !ok {
				break
			}
			if err := b.options.History.Remove(entry.AnimeID, entry.EpisodeID); err != nil {
				b.raiseError(err)
				return b, nil
			}
			b.historyC.RemoveItem(b.historyC.Index())
			return b, nil
		case bubblesKey.Matches(msg, b.keymap.confirm):
			entry, ok := selected[*history.Entry](&b.historyC).Get()
			if !ok {
				break
			}
			b.progressStatus = "Resuming " + entry.AnimeTitle + "..."
			b.newState(loadingState)
			return b, tea.Batch(b.startLoading(), b.fetchAnime(entry.AnimeID, entry.EpisodeID))
		}
	}

	b.historyC, cmd = b.historyC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.confirm) && b.inputC.Value() != "":
			b.searchSuggestion = mo.None[string]()
			return b, b.search(b.inputC.Value())
		case bubblesKey.Matches(msg, b.keymap.acceptSearchSuggestion) && b.searchSuggestion.IsPresent():
			b.inputC.SetValue(b.searchSuggestion.MustGet())
			b.searchSuggestion = mo.None[string]()
			b.inputC.CursorEnd()
			return b, nil
		}
	}

	b.inputC, cmd = b.inputC.Update(msg)

	b.searchSuggestion = mo.None[string]()
	if value := b.inputC.Value(); value != "" && viper.GetBool(key.SearchShowQuerySuggestions) {
		if suggestion, ok := query.Suggest(value).Get(); ok && suggestion != value {
			b.searchSuggestion = mo.Some(suggestion)
		}
	}

	return b, cmd
}

func (b *statefulBubble) updateAnimes(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && bubblesKey.Matches(msg, b.keymap.confirm) {
		if anime, ok := selected[*source.Anime](&b.animesC).Get(); ok {
			b.progressStatus = "Loading episodes of " + anime.Title + "..."
			b.newState(loadingState)
			return b, tea.Batch(b.startLoading(), b.fetchAnime(anime.ID, ""))
		}
	}

	b.animesC, cmd = b.animesC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateEpisodes(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case bubblesKey.Matches(msg, b.keymap.play):
			if episode, ok := selected[*source.Episode](&b.episodesC).Get(); ok {
				return b, b.startWatching(episode)
			}
		case bubblesKey.Matches(msg, b.keymap.watchlist):
			b.toggleWatchlist()
			return b, nil
		}
	}

	b.episodesC, cmd = b.episodesC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateWatch(msg tea.Msg) (tea.Model, tea.Cmd) {
	w := b.watching
	if w == nil {
		return b, nil
	}

	switch msg := msg.(type) {
	case tea.MouseMsg:
		w.session.PointerMove()
	case tea.KeyMsg:
		w.session.PointerMove()

		var err error
		switch {
		case bubblesKey.Matches(msg, b.keymap.nextQuality):
			err = w.session.SetQuality(cycleTier(b.status, 1))
		case bubblesKey.Matches(msg, b.keymap.prevQuality):
			err = w.session.SetQuality(cycleTier(b.status, -1))
		case bubblesKey.Matches(msg, b.keymap.toggleLanguage):
			if lang, ok := nextLanguage(b.status); ok {
				err = w.session.SetLanguage(lang)
			}
		case bubblesKey.Matches(msg, b.keymap.pause):
			err = w.session.TogglePause()
		case bubblesKey.Matches(msg, b.keymap.retry):
			// a page error means the sources never arrived
			if b.status.Error != "" {
				return b, b.loadSources(w)
			}
			err = w.session.Retry()
		}

		if err != nil && !errors.Is(err, player.ErrSelectionMiss) {
			log.Warnf("player: %v", err)
		}
	}

	return b, nil
}

func (b *statefulBubble) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && bubblesKey.Matches(msg, b.keymap.quit) {
		b.closeSession()
		return b, tea.Quit
	}

	return b, nil
}

// selected returns the highlighted item of l when it wraps a T.
func selected[T any](l *list.Model) mo.Option[T] {
	item, ok := l.SelectedItem().(*listItem)
	if !ok {
		return mo.None[T]()
	}

	value, ok := item.internal.(T)
	if !ok {
		return mo.None[T]()
	}
	return mo.Some(value)
}
