package player

import (
	"errors"
	"testing"

	"github.com/anistream/anistream/source"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func variants(specs ...[2]string) []*source.Variant {
	out := make([]*source.Variant, 0, len(specs))
	for i, s := range specs {
		out = append(out, &source.Variant{
			URL:      "https://cdn.test/" + s[0] + "-" + s[1] + "-" + string(rune('a'+i)) + ".m3u8",
			Adaptive: true,
			Quality:  s[0],
			Language: source.Language(s[1]),
		})
	}
	return out
}

func TestDefaultTier(t *testing.T) {
	Convey("DefaultTier", t, func() {
		Convey("720p wins regardless of order", func() {
			So(DefaultTier([]string{"1080p", "720p"}).MustGet(), ShouldEqual, "720p")
			So(DefaultTier([]string{"720p", "1080p"}).MustGet(), ShouldEqual, "720p")
		})

		Convey("Otherwise the highest numeric tier wins", func() {
			So(DefaultTier([]string{"360p", "1080p", "480p"}).MustGet(), ShouldEqual, "1080p")
		})

		Convey("Unknown loses to any numeric tier", func() {
			So(DefaultTier([]string{source.Unknown, "240p"}).MustGet(), ShouldEqual, "240p")
			So(DefaultTier([]string{source.Unknown}).MustGet(), ShouldEqual, source.Unknown)
		})

		Convey("No tiers yields none", func() {
			So(DefaultTier(nil).IsAbsent(), ShouldBeTrue)
		})
	})
}

func TestSelect(t *testing.T) {
	Convey("Given the selector", t, func() {
		Convey("An empty list yields ErrNoSources", func() {
			_, err := Select(source.NewCatalog(nil), DefaultPreference(source.Sub))
			So(errors.Is(err, ErrNoSources), ShouldBeTrue)
		})

		Convey("720p is preferred without an explicit tier", func() {
			list := variants([2]string{"720p", "sub"}, [2]string{"1080p", "sub"})
			v, err := Select(source.NewCatalog(list), DefaultPreference(source.Sub))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, list[0])

			reversed := []*source.Variant{list[1], list[0]}
			v, err = Select(source.NewCatalog(reversed), DefaultPreference(source.Sub))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, list[0])
		})

		Convey("An explicit tier is looked up exactly", func() {
			list := variants([2]string{"720p", "sub"}, [2]string{"480p", "sub"})
			v, err := Select(source.NewCatalog(list), Preference{Tier: mo.Some("480p"), Language: source.Sub})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, list[1])
		})

		Convey("A missing combination is a selection miss", func() {
			list := variants([2]string{"720p", "sub"}, [2]string{"480p", "dub"})
			_, err := Select(source.NewCatalog(list), Preference{Tier: mo.Some("720p"), Language: source.Dub})
			So(errors.Is(err, ErrSelectionMiss), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "720p dub")
		})

		Convey("A missing language falls through to a miss", func() {
			list := variants([2]string{"720p", "sub"})
			_, err := Select(source.NewCatalog(list), DefaultPreference(source.Dub))
			So(errors.Is(err, ErrSelectionMiss), ShouldBeTrue)
		})

		Convey("Any satisfiable language resolves with the default policy", func() {
			lists := [][]*source.Variant{
				variants([2]string{"720p", "sub"}, [2]string{"480p", "dub"}),
				variants([2]string{"1080p", "dub"}, [2]string{"360p", "sub"}, [2]string{"720p", "sub"}),
				variants([2]string{"auto", "dub"}, [2]string{"720p", "sub"}),
				variants([2]string{"SD · 480p BD", "sub"}, [2]string{"HD", "sub"}),
			}
			for _, list := range lists {
				c := source.NewCatalog(list)
				for _, lang := range []source.Language{source.Sub, source.Dub} {
					if !c.HasLanguage(lang) {
						continue
					}
					v, err := Select(c, DefaultPreference(lang))
					So(err, ShouldBeNil)
					So(v.Language, ShouldEqual, lang)
				}
			}
		})
	})
}
