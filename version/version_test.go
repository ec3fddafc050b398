package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anistream/anistream/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestCompare(t *testing.T) {
	Convey("Compare orders semantic versions", t, func() {
		for _, tc := range []struct {
			a, b string
			want int
		}{
			{"1.2.3", "1.2.3", 0},
			{"v1.3.0", "1.2.9", 1},
			{"0.9.9", "1.0.0", -1},
			{"2.0.0", "v2.0.1", -1},
		} {
			got, err := Compare(tc.a, tc.b)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, tc.want)
		}

		_, err := Compare("latest", "1.0.0")
		So(err, ShouldNotBeNil)
	})
}

func TestLatest(t *testing.T) {
	Convey("Given a release API", t, func() {
		hits := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			_, _ = w.Write([]byte(`{"tag_name": "v9.1.0"}`))
		}))
		defer srv.Close()

		prev := releasesURL
		releasesURL = srv.URL
		defer func() { releasesURL = prev }()

		Convey("The tag is returned without its prefix and cached", func() {
			v, err := Latest(context.Background())
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "9.1.0")

			v, err = Latest(context.Background())
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "9.1.0")
			So(hits, ShouldEqual, 1)
		})
	})
}
