package mini

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/player"
	"github.com/anistream/anistream/source"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

type state int

const (
	searchState state = iota + 1
	historyState
	animeSelectState
	episodeSelectState
	watchState
	quitState
)

const saveInterval = 5 * time.Second

func (m *mini) handleHistoryState() error {
	entries, err := m.options.History.List()
	if err != nil {
		return err
	}

	entries = lo.UniqBy(entries, func(e *history.Entry) string {
		return e.AnimeID
	})
	if len(entries) == 0 {
		m.fail("Nothing watched yet")
		m.setState(searchState)
		return nil
	}

	choices := lo.Map(entries, func(e *history.Entry, _ int) choice {
		return choice{label: e.String(), do: func() error {
			if !m.openAnime(e.AnimeID) {
				return nil
			}
			m.current = max(slices.IndexFunc(m.episodes, func(ep *source.Episode) bool {
				return ep.ID == e.EpisodeID
			}), 0)
			m.newState(watchState)
			return nil
		}}
	})

	search := choice{label: "Search", do: func() error {
		m.newState(searchState)
		return nil
	}}

	return m.menu("Continue Watching", append(choices, search, m.quit())...)
}

func (m *mini) handleSearchState() error {
	query := m.options.Query
	m.options.Query = ""

	if query == "" {
		var err error
		if query, err = m.prompt.Input("Search Anime"); err != nil {
			return err
		}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		m.setState(quitState)
		return nil
	}

	erase := m.progress("Searching..")
	page, err := m.options.Resolver.Search(m.ctx, query, 1)
	erase()
	if err != nil {
		log.Errorf("search %q: %v", query, err)
		m.fail("Search failed")
		return nil
	}

	if len(page.Results) == 0 {
		m.fail("No search results found")
		return nil
	}

	m.query = query
	m.results = page.Results[:min(len(page.Results), max(viper.GetInt(key.MiniSearchLimit), 1))]
	m.newState(animeSelectState)
	return nil
}

func (m *mini) handleAnimeSelectState() error {
	choices := lo.Map(m.results, func(anime *source.Anime, _ int) choice {
		return choice{label: animeLabel(anime), do: func() error {
			if m.openAnime(anime.ID) {
				m.newState(episodeSelectState)
			}
			return nil
		}}
	})

	return m.menu(fmt.Sprintf("Results for %q", m.query), append(choices, m.back(), m.quit())...)
}

func (m *mini) handleEpisodeSelectState() error {
	choices := lo.Map(m.episodes, func(episode *source.Episode, i int) choice {
		return choice{label: m.episodeLabel(episode), do: func() error {
			m.current = i
			m.newState(watchState)
			return nil
		}}
	})

	return m.menu(m.selectedAnime.Title, append(choices, m.back(), m.quit())...)
}

func (m *mini) handleWatchState() error {
	episode := m.episodes[m.current]
	if err := m.play(episode); err != nil {
		return err
	}

	var choices []choice
	if m.current+1 < len(m.episodes) {
		choices = append(choices, choice{label: "Next episode", do: func() error {
			m.current++
			return nil
		}})
	}
	if m.current > 0 {
		choices = append(choices, choice{label: "Previous episode", do: func() error {
			m.current--
			return nil
		}})
	}

	choices = append(choices,
		choice{label: "Replay", do: func() error { return nil }},
		choice{label: "Episodes", do: func() error {
			if m.statesHistory.Peek() == episodeSelectState {
				m.previousState()
			} else {
				m.setState(episodeSelectState)
			}
			return nil
		}},
		choice{label: "Search", do: func() error {
			m.newState(searchState)
			return nil
		}},
		m.quit(),
	)

	return m.menu(fmt.Sprintf("Finished %s", episode), choices...)
}

// openAnime loads an anime and its episodes, reporting false when there is
// nothing to play.
func (m *mini) openAnime(id string) bool {
	erase := m.progress("Fetching episodes..")
	anime, err := m.options.Resolver.Info(m.ctx, id)
	erase()
	if err != nil {
		log.Errorf("info %s: %v", id, err)
		m.fail("Failed to load anime")
		return false
	}

	if len(anime.Episodes) == 0 {
		m.fail("No episodes found")
		return false
	}

	m.selectedAnime = anime
	m.episodes = slices.Clone(anime.Episodes)
	slices.SortStableFunc(m.episodes, func(a, b *source.Episode) int {
		return a.Number - b.Number
	})
	m.current = 0
	return true
}

// play opens the player on episode and blocks until the window is closed.
func (m *mini) play(episode *source.Episode) error {
	anime := m.selectedAnime

	session, err := m.options.Launch(fmt.Sprintf("%s - %s", anime.Title, episode))
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warnf("closing player: %v", err)
		}
	}()

	unsubscribe := session.Subscribe(m.reporter())
	defer unsubscribe()

	if m.options.Quality != "" {
		if err := session.SetQuality(m.options.Quality); err != nil {
			log.Warnf("quality %s: %v", m.options.Quality, err)
		}
	}

	if err := session.Update(player.Props{Loading: true, Poster: anime.Image}); err != nil {
		log.Warnf("player update: %v", err)
	}

	erase := m.progress("Resolving sources..")
	sources, err := m.options.Resolver.Watch(m.ctx, episode.ID)
	erase()

	props := player.Props{Poster: anime.Image}
	if err != nil {
		log.Errorf("sources for %s: %v", episode.ID, err)
		props.Error = "Failed to load episode"
	} else {
		props.Sources = sources.Variants
		props.Headers = sources.Headers
	}

	if err := session.Update(props); err != nil && !errors.Is(err, player.ErrDetached) {
		log.Warnf("player update: %v", err)
	}
	if props.Error != "" {
		m.fail(props.Error)
		return nil
	}

	if m.options.History != nil && viper.GetBool(key.HistorySaveOnWatch) {
		session.Track(m.options.History.Recorder(anime, episode, saveInterval))
	}

	m.title(fmt.Sprintf("Now playing %s", episode))
	select {
	case <-session.Done():
	case <-m.ctx.Done():
	}
	return nil
}

// reporter prints recoveries and failures of the player once per transition.
func (m *mini) reporter() func(player.Status) {
	var (
		mu   sync.Mutex
		last player.State
	)

	return func(st player.Status) {
		mu.Lock()
		defer mu.Unlock()

		if st.State == last {
			return
		}
		last = st.State

		switch st.State {
		case player.Recovering:
			m.warn("Playback stalled, recovering..")
		case player.Failed:
			m.fail("Playback failed, replay to try again")
		}
	}
}

func animeLabel(anime *source.Anime) string {
	details := lo.Compact([]string{anime.Type, string(anime.ReleaseDate)})
	if len(details) == 0 {
		return anime.Title
	}
	return fmt.Sprintf("%s (%s)", anime.Title, strings.Join(details, ", "))
}

func (m *mini) episodeLabel(episode *source.Episode) string {
	if m.options.History == nil {
		return episode.String()
	}

	saved, ok := m.options.History.Get(m.selectedAnime.ID, episode.ID).Get()
	if !ok {
		return episode.String()
	}
	return fmt.Sprintf("%s (%.0f%%)", episode, saved.WatchedPercentage)
}
