package where

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anistream/anistream/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Directories are created on resolution", func() {
			for _, dir := range []func() string{Config, Cache, Logs, Responses, Temp} {
				path := dir()
				So(path, ShouldNotBeEmpty)
				So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
			}
		})

		Convey("Stores live next to the config or the cache", func() {
			So(filepath.Dir(History()), ShouldEqual, Config())
			So(filepath.Dir(Watchlist()), ShouldEqual, Config())
			So(filepath.Dir(User()), ShouldEqual, Config())
			So(filepath.Dir(Queries()), ShouldEqual, Cache())
		})

		Convey("Config honours the override variable", func() {
			So(os.Setenv(EnvConfigPath, "/custom/anistream"), ShouldBeNil)
			defer os.Unsetenv(EnvConfigPath)

			So(Config(), ShouldEqual, "/custom/anistream")
		})
	})
}
