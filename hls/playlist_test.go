package hls

import (
	"net/url"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=1280x720
720/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1400000,RESOLUTION=1920x1080
https://other.test/1080/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-TARGETDURATION:10
#EXT-X-KEY:METHOD=AES-128,URI="key.bin"
#EXTINF:10.0,
seg0.ts
#EXTINF:10.0,
/abs/seg1.ts
#EXT-X-ENDLIST
`

func TestParse(t *testing.T) {
	Convey("Given playlist bodies", t, func() {
		Convey("A master playlist lists its variants", func() {
			pl, err := Parse([]byte(masterPlaylist))
			So(err, ShouldBeNil)
			So(pl.Master, ShouldBeTrue)
			So(pl.Variants, ShouldResemble, []string{"720/index.m3u8", "https://other.test/1080/index.m3u8"})
			So(pl.Segments, ShouldBeEmpty)
		})

		Convey("A media playlist lists its segments", func() {
			pl, err := Parse([]byte(mediaPlaylist))
			So(err, ShouldBeNil)
			So(pl.Master, ShouldBeFalse)
			So(pl.Segments, ShouldResemble, []string{"seg0.ts", "/abs/seg1.ts"})
		})

		Convey("A byte order mark is tolerated", func() {
			So(IsPlaylist([]byte("\ufeff#EXTM3U\n")), ShouldBeTrue)
		})

		Convey("Anything else is rejected", func() {
			_, err := Parse([]byte("<html>blocked</html>"))
			So(err, ShouldEqual, ErrNotPlaylist)
		})
	})
}

func TestRewrite(t *testing.T) {
	Convey("Given a media playlist and a base URL", t, func() {
		base, _ := url.Parse("https://cdn.test/show/ep1/index.m3u8?token=x")
		local := func(abs string) string { return "local:" + abs }

		out := string(Rewrite([]byte(mediaPlaylist), base, local))

		Convey("Relative segments are resolved and mapped", func() {
			So(out, ShouldContainSubstring, "local:https://cdn.test/show/ep1/seg0.ts\n")
			So(out, ShouldContainSubstring, "local:https://cdn.test/abs/seg1.ts\n")
		})

		Convey("URI attributes are rewritten in place", func() {
			So(out, ShouldContainSubstring, `#EXT-X-KEY:METHOD=AES-128,URI="local:https://cdn.test/show/ep1/key.bin"`)
		})

		Convey("Tags without URIs are kept", func() {
			So(out, ShouldStartWith, "#EXTM3U\n")
			So(out, ShouldContainSubstring, "#EXT-X-ENDLIST")
			So(strings.Count(out, "#EXTINF"), ShouldEqual, 2)
		})
	})
}
