package mini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/anistream/anistream/history"
	"github.com/anistream/anistream/internal/store"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/player"
	"github.com/anistream/anistream/source"
	"github.com/anistream/anistream/tui"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	viper.Set(key.MiniSearchLimit, 20)
	viper.Set(key.HistorySaveOnWatch, true)
}

type scriptedPrompter struct {
	inputs  []string
	selects []string
	asked   []string
}

func (p *scriptedPrompter) Input(message string) (string, error) {
	p.asked = append(p.asked, message)
	if len(p.inputs) == 0 {
		return "", errInterrupted
	}
	in := p.inputs[0]
	p.inputs = p.inputs[1:]
	return in, nil
}

func (p *scriptedPrompter) Select(message string, options []string) (int, error) {
	p.asked = append(p.asked, message)
	if len(p.selects) == 0 {
		return 0, errInterrupted
	}
	want := p.selects[0]
	p.selects = p.selects[1:]

	i := slices.Index(options, want)
	if i < 0 {
		return 0, fmt.Errorf("%q not in %v", want, options)
	}
	return i, nil
}

type fakeSession struct {
	mu        sync.Mutex
	title     string
	props     []player.Props
	qualities []string
	track     func(position, duration float64)
	done      chan struct{}
	closed    bool
}

func (f *fakeSession) Update(props player.Props) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props = append(f.props, props)
	return nil
}

func (f *fakeSession) SetQuality(tier string) error {
	f.qualities = append(f.qualities, tier)
	return nil
}

func (f *fakeSession) SetLanguage(source.Language) error { return nil }
func (f *fakeSession) Retry() error { return nil }
func (f *fakeSession) TogglePause() error { return nil }
func (f *fakeSession) PointerMove() {}
func (f *fakeSession) Status() player.Status { return player.Status{} }
func (f *fakeSession) Subscribe(func(player.Status)) (cancel func()) { return func() {} }

func (f *fakeSession) Track(fn func(position, duration float64)) { f.track = fn }
func (f *fakeSession) Done() <-chan struct{} { return f.done }

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type fakeResolver struct {
	results  []*source.Anime
	anime    *source.Anime
	watchErr error
}

func (r *fakeResolver) Search(_ context.Context, query string, _ int) (*source.Page, error) {
	if query != "frieren" {
		return &source.Page{}, nil
	}
	return &source.Page{Results: r.results}, nil
}

func (r *fakeResolver) Info(_ context.Context, id string) (*source.Anime, error) {
	if id != r.anime.ID {
		return nil, errors.New("not found")
	}
	return r.anime, nil
}

func (r *fakeResolver) Watch(_ context.Context, episodeID string) (*source.EpisodeSources, error) {
	if r.watchErr != nil {
		return nil, r.watchErr
	}
	return &source.EpisodeSources{
		Variants: []*source.Variant{{URL: "https://cdn/" + episodeID + ".m3u8", Quality: "720p", Adaptive: true}},
		Headers:  map[string]string{"Referer": "https://cdn"},
	}, nil
}

type fixture struct {
	resolver *fakeResolver
	history  *history.History
	prompt   *scriptedPrompter
	sessions []*fakeSession
	out      *bytes.Buffer
	options  *Options
}

func newFixture() *fixture {
	anime := &source.Anime{
		ID:    "frieren",
		Title: "Frieren",
		Type:  "TV",
		Image: "cover.jpg",
		Episodes: []*source.Episode{
			{ID: "ep-2", Number: 2},
			{ID: "ep-1", Number: 1},
		},
	}

	f := &fixture{
		resolver: &fakeResolver{results: []*source.Anime{anime}, anime: anime},
		history:  history.New(store.NewMemory(make(history.Entries))),
		prompt:   &scriptedPrompter{},
		out:      new(bytes.Buffer),
	}

	f.options = &Options{
		Resolver: f.resolver,
		History:  f.history,
		Launch: func(title string) (tui.Session, error) {
			s := &fakeSession{title: title, done: make(chan struct{})}
			close(s.done)
			f.sessions = append(f.sessions, s)
			return s, nil
		},
	}
	return f
}

func (f *fixture) run() error {
	return newMini(context.Background(), f.options, f.prompt, f.out).run()
}

func TestMini(t *testing.T) {
	Convey("Given a resolver with one anime", t, func() {
		f := newFixture()

		Convey("Searching and picking an episode plays it", func() {
			f.options.Quality = "720p"
			f.prompt.inputs = []string{"frieren"}
			f.prompt.selects = []string{"Frieren (TV)", "Episode 1", "Quit"}

			So(f.run(), ShouldBeNil)
			So(f.sessions, ShouldHaveLength, 1)

			s := f.sessions[0]
			So(s.title, ShouldEqual, "Frieren - Episode 1")
			So(s.qualities, ShouldResemble, []string{"720p"})
			So(s.closed, ShouldBeTrue)

			So(s.props, ShouldHaveLength, 2)
			So(s.props[0].Loading, ShouldBeTrue)
			So(s.props[1].Sources, ShouldHaveLength, 1)
			So(s.props[1].Headers["Referer"], ShouldEqual, "https://cdn")
			So(s.props[1].Poster, ShouldEqual, "cover.jpg")

			Convey("Progress is tracked to the history", func() {
				So(s.track, ShouldNotBeNil)
				s.track(60, 120)
				So(f.history.Get("frieren", "ep-1").MustGet().WatchedPercentage, ShouldEqual, 50.0)
			})
		})

		Convey("Next episode plays the following one", func() {
			f.prompt.inputs = []string{"frieren"}
			f.prompt.selects = []string{"Frieren (TV)", "Episode 1", "Next episode", "Quit"}

			So(f.run(), ShouldBeNil)
			So(f.sessions, ShouldHaveLength, 2)
			So(f.sessions[1].title, ShouldEqual, "Frieren - Episode 2")
		})

		Convey("Episodes returns to the list without replaying", func() {
			f.prompt.inputs = []string{"frieren"}
			f.prompt.selects = []string{"Frieren (TV)", "Episode 2", "Episodes", "Back", "Quit"}

			So(f.run(), ShouldBeNil)
			So(f.sessions, ShouldHaveLength, 1)
		})

		Convey("A query option skips the first prompt", func() {
			f.options.Query = "nothing"
			f.prompt.inputs = []string{""}

			So(f.run(), ShouldBeNil)
			So(f.out.String(), ShouldContainSubstring, "No search results found")
			So(f.prompt.asked, ShouldResemble, []string{"Search Anime"})
		})

		Convey("A source failure is reported without tracking", func() {
			f.resolver.watchErr = errors.New("upstream down")
			f.prompt.inputs = []string{"frieren"}
			f.prompt.selects = []string{"Frieren (TV)", "Episode 1", "Quit"}

			So(f.run(), ShouldBeNil)
			s := f.sessions[0]
			So(s.props[len(s.props)-1].Error, ShouldEqual, "Failed to load episode")
			So(s.track, ShouldBeNil)
			So(f.out.String(), ShouldContainSubstring, "Failed to load episode")
		})

		Convey("Continuing resumes the last watched episode", func() {
			So(f.history.Save(history.Entry{
				AnimeID:           "frieren",
				AnimeTitle:        "Frieren",
				EpisodeID:         "ep-2",
				EpisodeNumber:     2,
				WatchedPercentage: 40,
			}), ShouldBeNil)

			f.options.Continue = true
			f.prompt.selects = []string{"Frieren : episode 2 (40%)", "Quit"}

			So(f.run(), ShouldBeNil)
			So(f.sessions, ShouldHaveLength, 1)
			So(f.sessions[0].title, ShouldEqual, "Frieren - Episode 2")
		})

		Convey("An interrupted prompt ends the session quietly", func() {
			So(f.run(), ShouldBeNil)
			So(f.sessions, ShouldBeEmpty)
		})
	})
}
