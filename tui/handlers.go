// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/icon"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/player"
	"github.com/anistream/anistream/source"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// saveInterval throttles history writes while an episode plays.
const saveInterval = 5 * time.Second

type (
	pageMsg struct {
		page  *source.Page
		query string
	}

	animeMsg struct {
		anime *source.Anime
		// play is the episode to open right away, if any.
		play string
	}

	sessionMsg struct {
		session Session
		episode *source.Episode
	}

	sourcesMsg struct {
		w       *watching
		sources *source.EpisodeSources
		err     error
	}

	statusMsg struct {
		w      *watching
		status player.Status
	}

	sessionEndedMsg struct {
		w *watching
	}
)

func (b *statefulBubble) loadHistory() (tea.Cmd, error) {
	if b.options.History == nil {
		return nil, errors.New("history is not available")
	}

	entries, err := b.options.History.List()
	if err != nil {
		return nil, err
	}

	items := lo.Map(entries, func(e *history.Entry, _ int) list.Item {
		return &listItem{internal: e}
	})

	return b.historyC.SetItems(items), nil
}

func (b *statefulBubble) search(query string) tea.Cmd {
	b.progressStatus = fmt.Sprintf("Searching for %s...", query)
	b.newState(loadingState)

	return tea.Batch(b.startLoading(), func() tea.Msg {
		log.Info("searching for " + query)
		page, err := b.options.Resolver.Search(b.ctx, query, 1)
		if err != nil {
			log.Error(err)
			return err
		}

		return pageMsg{page: page, query: query}
	})
}

func (b *statefulBubble) fetchAnime(id, play string) tea.Cmd {
	return func() tea.Msg {
		anime, err := b.options.Resolver.Info(b.ctx, id)
		if err != nil {
			log.Error(err)
			return err
		}

		return animeMsg{anime: anime, play: play}
	}
}

// setEpisodes fills the episode list, marking saved progress.
func (b *statefulBubble) setEpisodes(anime *source.Anime) tea.Cmd {
	episodes := slices.Clone(anime.Episodes)
	slices.SortStableFunc(episodes, func(x, y *source.Episode) int {
		return x.Number - y.Number
	})

	items := lo.Map(episodes, func(e *source.Episode, _ int) list.Item {
		item := &listItem{internal: e}
		if b.options.History != nil {
			if saved, ok := b.options.History.Get(anime.ID, e.ID).Get(); ok {
				item.watched = mo.Some(saved.WatchedPercentage)
			}
		}
		return item
	})

	b.episodesC.Title = b.episodesTitle()
	return b.episodesC.SetItems(items)
}

func (b *statefulBubble) episodesTitle() string {
	title := b.selectedAnime.Title
	if b.options.Watchlist != nil && b.options.Watchlist.Has(b.selectedAnime.ID) {
		title += " " + icon.Get(icon.Heart)
	}
	return title
}

func (b *statefulBubble) toggleWatchlist() {
	if b.options.Watchlist == nil || b.selectedAnime == nil {
		return
	}

	added, err := b.options.Watchlist.Toggle(b.selectedAnime)
	if err != nil {
		log.Warnf("watchlist: %v", err)
		return
	}

	log.Infof("watchlist: %s added=%t", b.selectedAnime.ID, added)
	b.episodesC.Title = b.episodesTitle()
}

// startWatching opens a player window for episode of the selected anime.
func (b *statefulBubble) startWatching(episode *source.Episode) tea.Cmd {
	b.closeSession()
	b.progressStatus = fmt.Sprintf("Opening %s...", episode)
	b.newState(loadingState)

	title := fmt.Sprintf("%s - %s", b.selectedAnime.Title, episode)
	return tea.Batch(b.startLoading(), func() tea.Msg {
		session, err := b.options.Launch(title)
		if err != nil {
			log.Error(err)
			return err
		}

		return sessionMsg{session: session, episode: episode}
	})
}

// attach takes over a freshly opened session and starts resolving its sources.
func (b *statefulBubble) attach(msg sessionMsg) tea.Cmd {
	w := &watching{
		session:  msg.session,
		episode:  msg.episode,
		statuses: make(chan player.Status, 1),
		closed:   make(chan struct{}),
	}
	w.unsubscribe = w.session.Subscribe(w.push)
	b.watching = w

	if tier := b.options.Quality; tier != "" {
		if err := w.session.SetQuality(tier); err != nil {
			log.Warnf("quality %s: %v", tier, err)
		}
	}

	b.track(w)
	b.stopLoading()
	b.newState(watchState)
	b.status = w.session.Status()

	return tea.Batch(b.loadSources(w), b.waitForStatus(w), b.spinnerC.Tick)
}

func (b *statefulBubble) poster() string {
	if b.selectedAnime == nil {
		return ""
	}
	return b.selectedAnime.Image
}

// loadSources resolves the variants of the episode in w while the player
// shows the page as loading.
func (b *statefulBubble) loadSources(w *watching) tea.Cmd {
	if err := w.session.Update(player.Props{Loading: true, Poster: b.poster()}); err != nil {
		log.Warnf("player update: %v", err)
	}

	episodeID := w.episode.ID
	return func() tea.Msg {
		sources, err := b.options.Resolver.Watch(b.ctx, episodeID)
		return sourcesMsg{w: w, sources: sources, err: err}
	}
}

func (b *statefulBubble) applySources(msg sourcesMsg) {
	props := player.Props{Poster: b.poster()}
	if msg.err != nil {
		log.Errorf("sources for %s: %v", msg.w.episode.ID, msg.err)
		props.Error = "Failed to load episode"
	} else {
		props.Sources = msg.sources.Variants
		props.Headers = msg.sources.Headers
	}

	if err := msg.w.session.Update(props); err != nil && !errors.Is(err, player.ErrDetached) {
		log.Warnf("player update: %v", err)
	}
}

// push keeps only the newest status.
func (w *watching) push(st player.Status) {
	for {
		select {
		case w.statuses <- st:
			return
		case <-w.closed:
			return
		default:
			select {
			case <-w.statuses:
			default:
			}
		}
	}
}

func (b *statefulBubble) waitForStatus(w *watching) tea.Cmd {
	return func() tea.Msg {
		select {
		case st := <-w.statuses:
			return statusMsg{w: w, status: st}
		case <-w.session.Done():
			return sessionEndedMsg{w: w}
		case <-w.closed:
			return nil
		}
	}
}

// track saves the progress of w to the history.
func (b *statefulBubble) track(w *watching) {
	if b.options.History == nil || !viper.GetBool(key.HistorySaveOnWatch) {
		return
	}

	w.session.Track(b.options.History.Recorder(b.selectedAnime, w.episode, saveInterval))
}

// closeSession closes the player window on screen, if any.
func (b *statefulBubble) closeSession() {
	w := b.watching
	if w == nil {
		return
	}
	b.watching = nil
	b.status = player.Status{}

	w.unsubscribe()
	close(w.closed)
	if err := w.session.Close(); err != nil {
		log.Warnf("closing player: %v", err)
	}
}

// cycleTier returns the tier step positions away from the current one,
// wrapping around. The automatic choice comes first.
func cycleTier(st player.Status, step int) string {
	options := append([]string{""}, st.Tiers...)

	current := 0
	if !st.Auto {
		current = max(slices.Index(options, st.Tier), 0)
	}

	n := len(options)
	return options[((current+step)%n+n)%n]
}

// nextLanguage returns the other language when the episode has it.
func nextLanguage(st player.Status) (source.Language, bool) {
	next := st.Language.Toggle()
	switch next {
	case source.Dub:
		return next, st.HasDub
	case source.Sub:
		return next, st.HasSub
	default:
		return next, false
	}
}
