package consumet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/source"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

const watchBody = `{
	"headers": {"Referer": "https://kwik.cx/"},
	"sources": [
		{"url": "https://cdn.test/720.m3u8", "isM3U8": true, "quality": "720p", "isDub": false},
		{"url": "", "isM3U8": true, "quality": "480p"},
		{"url": "https://cdn.test/720-dub.m3u8", "isM3U8": true, "quality": "720p [English Dub]", "isDub": true}
	],
	"download": "https://example.com/download/ep-1"
}`

const infoBody = `{
	"id": "frieren",
	"title": "Frieren",
	"image": "https://img.test/frieren.jpg",
	"releaseDate": 2023,
	"totalEpisodes": 28,
	"episodes": [{"id": "frieren/ep-1", "number": 1}]
}`

type api struct {
	*httptest.Server
	hits  atomic.Int64
	paths chan string
}

func newAPI() *api {
	a := &api{paths: make(chan string, 16)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /anime/animepahe/watch", func(w http.ResponseWriter, r *http.Request) {
		a.hits.Add(1)
		a.paths <- r.URL.RequestURI()
		_, _ = w.Write([]byte(watchBody))
	})
	mux.HandleFunc("GET /anime/animepahe/info/{id}", func(w http.ResponseWriter, r *http.Request) {
		a.hits.Add(1)
		a.paths <- r.URL.RequestURI()
		if r.PathValue("id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(infoBody))
	})
	mux.HandleFunc("GET /anime/animepahe/recent-episodes", func(w http.ResponseWriter, r *http.Request) {
		a.hits.Add(1)
		_, _ = w.Write([]byte(`{"currentPage": 1, "results": [{"id": "a", "title": "A"}]}`))
	})
	mux.HandleFunc("GET /anime/animepahe/{query}", func(w http.ResponseWriter, r *http.Request) {
		a.hits.Add(1)
		a.paths <- r.URL.RequestURI()
		_, _ = w.Write([]byte(`{"currentPage": 1, "hasNextPage": true, "results": [{"id": "frieren", "title": "Frieren"}]}`))
	})
	a.Server = httptest.NewServer(mux)
	return a
}

func newClient(a *api, cached bool) *Client {
	return New(Options{
		BaseURL:    a.URL + "/anime/animepahe/",
		HTTPClient: a.Client(),
		Cache:      cached,
	})
}

func TestWatch(t *testing.T) {
	Convey("Given a metadata API", t, func() {
		a := newAPI()
		defer a.Close()
		c := newClient(a, true)
		ctx := context.Background()

		Convey("Watch maps the resolver shape and drops unusable variants", func() {
			sources, err := c.Watch(ctx, "frieren/ep-1")
			So(err, ShouldBeNil)
			So(<-a.paths, ShouldEqual, "/anime/animepahe/watch?episodeId=frieren%2Fep-1")

			So(sources.Headers["Referer"], ShouldEqual, "https://kwik.cx/")
			So(sources.Download, ShouldEqual, "https://example.com/download/ep-1")
			So(len(sources.Variants), ShouldEqual, 2)
			So(sources.Variants[0].Language, ShouldEqual, source.Sub)
			So(sources.Variants[0].Adaptive, ShouldBeTrue)
			So(sources.Variants[1].Language, ShouldEqual, source.Dub)
			So(sources.Variants[1].Tier(), ShouldEqual, "720p")
		})

		Convey("Watch is never cached", func() {
			_, err := c.Watch(ctx, "frieren/ep-1")
			So(err, ShouldBeNil)
			_, err = c.Watch(ctx, "frieren/ep-1")
			So(err, ShouldBeNil)
			So(a.hits.Load(), ShouldEqual, 2)
		})

		Convey("An empty episode id is rejected", func() {
			_, err := c.Watch(ctx, "")
			So(err, ShouldNotBeNil)
			So(a.hits.Load(), ShouldEqual, 0)
		})
	})
}

func TestInfoAndSearch(t *testing.T) {
	Convey("Given a metadata API", t, func() {
		a := newAPI()
		defer a.Close()
		ctx := context.Background()

		Convey("Info decodes numeric release dates and episodes", func() {
			anime, err := newClient(a, false).Info(ctx, "frieren")
			So(err, ShouldBeNil)
			So(anime.ReleaseDate, ShouldEqual, source.Loose("2023"))
			So(anime.Episode("frieren/ep-1").IsPresent(), ShouldBeTrue)
		})

		Convey("Info responses are cached", func() {
			c := newClient(a, true)
			_, err := c.Info(ctx, "cached-"+t.Name())
			So(err, ShouldBeNil)
			_, err = c.Info(ctx, "cached-"+t.Name())
			So(err, ShouldBeNil)
			So(a.hits.Load(), ShouldEqual, 1)
		})

		Convey("A non-200 status is reported", func() {
			_, err := newClient(a, false).Info(ctx, "missing")
			var status *StatusError
			So(errors.As(err, &status), ShouldBeTrue)
			So(status.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Search escapes the query into the path", func() {
			page, err := newClient(a, false).Search(ctx, "sousou no frieren", 2)
			So(err, ShouldBeNil)
			So(<-a.paths, ShouldEqual, "/anime/animepahe/sousou%20no%20frieren?page=2")
			So(page.HasNextPage, ShouldBeTrue)
			So(page.Results[0].ID, ShouldEqual, "frieren")
		})

		Convey("An empty search does not hit the API", func() {
			page, err := newClient(a, false).Search(ctx, "  ", 1)
			So(err, ShouldBeNil)
			So(page.Results, ShouldBeEmpty)
			So(a.hits.Load(), ShouldEqual, 0)
		})

		Convey("Recent lists the latest releases", func() {
			page, err := newClient(a, false).Recent(ctx, 0)
			So(err, ShouldBeNil)
			So(page.Results, ShouldHaveLength, 1)
		})
	})
}

func TestFindClosest(t *testing.T) {
	Convey("FindClosest", t, func() {
		results := []*source.Anime{
			{ID: "1", Title: "Naruto Shippuden"},
			{ID: "2", Title: "Naruto"},
			{ID: "3", Title: "Boruto"},
		}

		Convey("picks the nearest title ignoring case", func() {
			So(FindClosest(results, "NARUTO").MustGet().ID, ShouldEqual, "2")
		})

		Convey("yields none for no results", func() {
			So(FindClosest(nil, "naruto").IsAbsent(), ShouldBeTrue)
		})
	})
}
