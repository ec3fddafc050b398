package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/internal/store"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/player"
	"github.com/anistream/anistream/source"
	tea "github.com/charmbracelet/bubbletea"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

type fakeSession struct {
	mu        sync.Mutex
	status    player.Status
	props     []player.Props
	qualities []string
	languages []source.Language
	pauses    int
	retries   int
	pointer   int
	track     func(position, duration float64)
	done      chan struct{}
	closed    bool
}

func newFakeSession(st player.Status) *fakeSession {
	return &fakeSession{status: st, done: make(chan struct{})}
}

func (f *fakeSession) Update(props player.Props) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props = append(f.props, props)
	return nil
}

func (f *fakeSession) SetQuality(tier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qualities = append(f.qualities, tier)
	return nil
}

func (f *fakeSession) SetLanguage(lang source.Language) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.languages = append(f.languages, lang)
	return nil
}

func (f *fakeSession) Retry() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
	return nil
}

func (f *fakeSession) TogglePause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeSession) PointerMove() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointer++
}

func (f *fakeSession) Status() player.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSession) Subscribe(func(player.Status)) func() {
	return func() {}
}

func (f *fakeSession) Track(fn func(position, duration float64)) {
	f.track = fn
}

func (f *fakeSession) Done() <-chan struct{} {
	return f.done
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeResolver struct{}

func (fakeResolver) Search(context.Context, string, int) (*source.Page, error) {
	return &source.Page{}, nil
}

func (fakeResolver) Info(context.Context, string) (*source.Anime, error) {
	return nil, errors.New("not found")
}

func (fakeResolver) Watch(context.Context, string) (*source.EpisodeSources, error) {
	return &source.EpisodeSources{}, nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var testAnime = &source.Anime{
	ID:    "frieren",
	Title: "Frieren",
	Image: "https://img.example/frieren.jpg",
	Episodes: []*source.Episode{
		{ID: "ep-2", Number: 2},
		{ID: "ep-1", Number: 1},
	},
}

func watchingBubble(st player.Status, options *Options) (*statefulBubble, *fakeSession) {
	options.Resolver = fakeResolver{}
	b := newBubble(context.Background(), options)
	b.newState(searchState)
	b.selectedAnime = testAnime
	b.newState(episodesState)
	b.newState(loadingState)

	session := newFakeSession(st)
	b.attach(sessionMsg{session: session, episode: testAnime.Episodes[1]})
	return b, session
}

func TestCycleTier(t *testing.T) {
	Convey("Given the tiers of an episode", t, func() {
		st := player.Status{Tiers: []string{"1080p", "720p", "360p"}, Tier: "720p", Auto: true}

		Convey("When the automatic choice is active", func() {
			Convey("Then the next quality is the highest tier", func() {
				So(cycleTier(st, 1), ShouldEqual, "1080p")
			})

			Convey("Then the previous quality wraps to the lowest tier", func() {
				So(cycleTier(st, -1), ShouldEqual, "360p")
			})
		})

		Convey("When the lowest tier is pinned", func() {
			st.Auto = false
			st.Tier = "360p"

			Convey("Then the next quality wraps back to automatic", func() {
				So(cycleTier(st, 1), ShouldEqual, "")
			})
		})

		Convey("When there are no tiers", func() {
			Convey("Then only the automatic choice remains", func() {
				So(cycleTier(player.Status{}, 1), ShouldEqual, "")
			})
		})
	})
}

func TestNextLanguage(t *testing.T) {
	Convey("Given a sub only episode", t, func() {
		st := player.Status{Language: source.Sub, HasSub: true}

		Convey("Then dub is not offered", func() {
			_, ok := nextLanguage(st)
			So(ok, ShouldBeFalse)
		})

		Convey("When a dub exists", func() {
			st.HasDub = true

			Convey("Then dub is offered", func() {
				lang, ok := nextLanguage(st)
				So(ok, ShouldBeTrue)
				So(lang, ShouldEqual, source.Dub)
			})
		})
	})
}

func TestWatchScreen(t *testing.T) {
	Convey("Given a player window on the watch screen", t, func() {
		st := player.Status{
			Tiers:    []string{"1080p", "720p"},
			Tier:     "1080p",
			Auto:     true,
			Language: source.Sub,
			HasSub:   true,
			HasDub:   true,
			UIView:   player.UIView{ControlsVisible: true},
		}
		b, session := watchingBubble(st, &Options{Quality: "720p"})

		Convey("Then the initial quality and loading page are applied", func() {
			So(b.state, ShouldEqual, watchState)
			So(session.qualities, ShouldResemble, []string{"720p"})
			So(session.props, ShouldHaveLength, 1)
			So(session.props[0].Loading, ShouldBeTrue)
			So(session.props[0].Poster, ShouldEqual, testAnime.Image)
		})

		Convey("When the sources arrive", func() {
			sources := &source.EpisodeSources{
				Headers:  map[string]string{"Referer": "https://kwik.si/"},
				Variants: []*source.Variant{{URL: "https://cdn.example/a.m3u8", Quality: "1080p"}},
			}
			b.Update(sourcesMsg{w: b.watching, sources: sources})

			Convey("Then the player receives them", func() {
				last := session.props[len(session.props)-1]
				So(last.Loading, ShouldBeFalse)
				So(last.Sources, ShouldResemble, sources.Variants)
				So(last.Headers, ShouldResemble, sources.Headers)
			})
		})

		Convey("When the sources fail to resolve", func() {
			b.Update(sourcesMsg{w: b.watching, err: errors.New("boom")})

			Convey("Then the page shows an error", func() {
				last := session.props[len(session.props)-1]
				So(last.Error, ShouldEqual, "Failed to load episode")
			})
		})

		Convey("When q is pressed", func() {
			b.Update(runes("q"))

			Convey("Then the next quality is requested", func() {
				So(session.qualities, ShouldResemble, []string{"720p", "1080p"})
				So(session.pointer, ShouldEqual, 1)
			})
		})

		Convey("When Q is pressed", func() {
			b.Update(runes("Q"))

			Convey("Then the previous quality is requested", func() {
				So(session.qualities, ShouldResemble, []string{"720p", "720p"})
			})
		})

		Convey("When d is pressed", func() {
			b.Update(runes("d"))

			Convey("Then the language is toggled", func() {
				So(session.languages, ShouldResemble, []source.Language{source.Dub})
			})
		})

		Convey("When space is pressed", func() {
			b.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

			Convey("Then playback is paused", func() {
				So(session.pauses, ShouldEqual, 1)
			})
		})

		Convey("When r is pressed after a playback failure", func() {
			b.Update(statusMsg{w: b.watching, status: player.Status{State: player.Failed, UIView: player.UIView{PlayError: "Network error"}}})
			b.Update(runes("r"))

			Convey("Then the binding is retried", func() {
				So(session.retries, ShouldEqual, 1)
			})
		})

		Convey("When r is pressed after a page error", func() {
			b.Update(statusMsg{w: b.watching, status: player.Status{UIView: player.UIView{Error: "Failed to load episode"}}})
			props := len(session.props)
			_, cmd := b.Update(runes("r"))

			Convey("Then the sources are resolved again", func() {
				So(session.retries, ShouldEqual, 0)
				So(session.props, ShouldHaveLength, props+1)
				So(session.props[props].Loading, ShouldBeTrue)
				So(cmd, ShouldNotBeNil)
			})
		})

		Convey("When the mouse moves", func() {
			b.Update(tea.MouseMsg{Action: tea.MouseActionMotion})

			Convey("Then it counts as pointer activity", func() {
				So(session.pointer, ShouldEqual, 1)
			})
		})

		Convey("When a status of a closed window arrives", func() {
			b.Update(statusMsg{w: &watching{}, status: player.Status{State: player.Failed}})

			Convey("Then it is ignored", func() {
				So(b.status.State, ShouldNotEqual, player.Failed)
			})
		})

		Convey("When esc is pressed", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyEsc})

			Convey("Then the window closes and the episodes are shown", func() {
				So(session.closed, ShouldBeTrue)
				So(b.watching, ShouldBeNil)
				So(b.state, ShouldEqual, episodesState)
			})
		})

		Convey("When the viewer closes the window", func() {
			w := b.watching
			close(session.done)
			msg := b.waitForStatus(w)()
			So(msg, ShouldResemble, sessionEndedMsg{w: w})
			b.Update(msg)

			Convey("Then the episodes are shown again", func() {
				So(session.closed, ShouldBeTrue)
				So(b.state, ShouldEqual, episodesState)
			})
		})
	})
}

func TestWatchView(t *testing.T) {
	Convey("Given a failed playback", t, func() {
		st := player.Status{
			State:  player.Failed,
			Tiers:  []string{"1080p", "720p"},
			Tier:   "720p",
			HasSub: true,
			UIView: player.UIView{PlayError: "Network error", ControlsVisible: true},
		}
		b, _ := watchingBubble(st, &Options{})

		Convey("Then the banner offers a retry", func() {
			view := b.View()
			So(view, ShouldContainSubstring, "Network error")
			So(view, ShouldContainSubstring, "press r to retry")
			So(view, ShouldContainSubstring, "[720p]")
			So(view, ShouldContainSubstring, "SUB")
		})

		Convey("Then the controls help is shown", func() {
			So(b.View(), ShouldContainSubstring, "pause/resume")
		})

		Convey("When the controls are hidden", func() {
			st.ControlsVisible = false
			b.Update(statusMsg{w: b.watching, status: st})

			Convey("Then the help is hidden too", func() {
				So(b.View(), ShouldNotContainSubstring, "pause/resume")
			})
		})
	})
}

func TestTrackHistory(t *testing.T) {
	Convey("Given history saving on watch", t, func() {
		viper.Set(key.HistorySaveOnWatch, true)
		defer viper.Set(key.HistorySaveOnWatch, false)

		h := history.New(store.NewMemory(make(history.Entries)))
		_, session := watchingBubble(player.Status{}, &Options{History: h})

		Convey("When the player reports progress", func() {
			So(session.track, ShouldNotBeNil)
			session.track(30, 120)

			Convey("Then the episode is saved", func() {
				entry, ok := h.Get(testAnime.ID, "ep-1").Get()
				So(ok, ShouldBeTrue)
				So(entry.WatchedPercentage, ShouldEqual, 25.0)
				So(entry.AnimeTitle, ShouldEqual, "Frieren")
			})
		})

		Convey("When the duration is unknown", func() {
			session.track(30, 0)

			Convey("Then nothing is saved", func() {
				So(h.Get(testAnime.ID, "ep-1").IsPresent(), ShouldBeFalse)
			})
		})
	})
}

func TestEpisodes(t *testing.T) {
	Convey("Given an anime with a watched episode", t, func() {
		h := history.New(store.NewMemory(make(history.Entries)))
		So(h.Save(history.Entry{AnimeID: "frieren", EpisodeID: "ep-2", EpisodeNumber: 2, WatchedPercentage: 50}), ShouldBeNil)

		b := newBubble(context.Background(), &Options{Resolver: fakeResolver{}, History: h})
		b.newState(searchState)
		b.newState(loadingState)

		Convey("When the anime is loaded", func() {
			b.Update(animeMsg{anime: testAnime})

			Convey("Then episodes are sorted and the last watched is selected", func() {
				So(b.state, ShouldEqual, episodesState)
				items := b.episodesC.Items()
				So(items, ShouldHaveLength, 2)
				So(items[0].(*listItem).internal.(*source.Episode).ID, ShouldEqual, "ep-1")
				So(b.episodesC.Index(), ShouldEqual, 1)
				So(items[1].(*listItem).watched.OrEmpty(), ShouldEqual, 50.0)
			})
		})
	})
}
