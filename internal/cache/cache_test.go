package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/where"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

type payload struct {
	Title string `json:"title"`
}

func TestCache(t *testing.T) {
	Convey("Given an empty response cache", t, func() {
		c := New[payload]("test-"+time.Now().Format("150405.000000"), time.Hour)

		Convey("A missing key yields none", func() {
			So(c.Get("nope").IsAbsent(), ShouldBeTrue)
		})

		Convey("When a value is stored", func() {
			So(c.Set("naruto", payload{Title: "Naruto"}), ShouldBeNil)

			Convey("It can be read back", func() {
				got, ok := c.Get("naruto").Get()
				So(ok, ShouldBeTrue)
				So(got.Title, ShouldEqual, "Naruto")
			})

			Convey("It can be deleted", func() {
				So(c.Delete("naruto"), ShouldBeNil)
				So(c.Get("naruto").IsAbsent(), ShouldBeTrue)
			})
		})
	})
}

func TestKey(t *testing.T) {
	Convey("Key ignores case and whitespace", t, func() {
		So(Key("One Piece", "1"), ShouldEqual, Key("one piece", "1"))
		So(Key("One Piece", "1"), ShouldEqual, Key("onepiece", "1"))
		So(Key("one", "piece"), ShouldNotEqual, Key("one", "pieces"))
	})
}

func TestCollectGarbage(t *testing.T) {
	Convey("Given a stale and a fresh response file", t, func() {
		fs := filesystem.API()
		stale := filepath.Join(where.Responses(), "stale.json")
		fresh := filepath.Join(where.Responses(), "fresh.json")
		So(fs.WriteFile(stale, []byte("{}"), 0o644), ShouldBeNil)
		So(fs.WriteFile(fresh, []byte("{}"), 0o644), ShouldBeNil)

		old := time.Now().Add(-TTL - time.Hour)
		So(fs.Chtimes(stale, old, old), ShouldBeNil)

		Convey("Only the stale one is collected", func() {
			CollectGarbage()

			exists, _ := fs.Exists(stale)
			So(exists, ShouldBeFalse)
			exists, _ = fs.Exists(fresh)
			So(exists, ShouldBeTrue)
		})
	})
}
