package log

import (
	"testing"

	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)

		Convey("Setup should be a no-op", func() {
			So(Setup(), ShouldBeNil)
			So(enabled, ShouldBeFalse)
		})

		Convey("WithFields should hand out a silent entry", func() {
			entry := WithFields(map[string]any{"binding": "abc"})
			So(entry, ShouldNotBeNil)
			So(func() { entry.Warn("dropped") }, ShouldNotPanic)
		})
	})

	Convey("Given logging is enabled", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "nonsense")
		defer viper.Set(key.LogsWrite, false)

		Convey("Setup should open the dated log file", func() {
			So(Setup(), ShouldBeNil)
			So(enabled, ShouldBeTrue)
			So(func() { Infof("player %s", "ready") }, ShouldNotPanic)
		})
	})
}
