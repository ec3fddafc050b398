package query

import (
	"testing"

	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.SearchShowQuerySuggestions, true)
}

func TestQuery(t *testing.T) {
	Convey("Given query history", t, func() {
		Convey("When remembering queries", func() {
			So(Remember("naruto", 1), ShouldBeNil)
			So(Remember("Bleach ", 10), ShouldBeNil)

			Convey("Then suggestions are sorted by rank", func() {
				s := SuggestMany("ble")
				So(len(s), ShouldBeGreaterThanOrEqualTo, 1)
				So(s[0], ShouldEqual, "bleach")
				So(Suggest("nar").MustGet(), ShouldEqual, "naruto")
			})

			Convey("Then a new query is visible right away", func() {
				So(SuggestMany("boruto"), ShouldBeEmpty)
				So(Remember("boruto", 1), ShouldBeNil)
				So(SuggestMany("boruto"), ShouldContain, "boruto")
			})
		})

		Convey("Blank queries are ignored", func() {
			So(Remember("   ", 1), ShouldBeNil)
			So(SuggestMany(""), ShouldNotContain, "")
		})

		Convey("Suggestions can be disabled", func() {
			viper.Set(key.SearchShowQuerySuggestions, false)
			defer viper.Set(key.SearchShowQuerySuggestions, true)
			So(SuggestMany("nar"), ShouldBeEmpty)
		})

		Convey("It sanitizes input", func() {
			So(sanitize("  NARUTO  "), ShouldEqual, "naruto")
		})
	})
}
