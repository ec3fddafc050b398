package config

import (
	"errors"
	"os"
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
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			So(Setup(), ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetInt(key.PlayerMaxRetries), ShouldEqual, 3)
			So(viper.GetBool(key.PlayerNativeAdaptive), ShouldBeFalse)
		})

		Convey("Should prefer environment variables over defaults", func() {
			So(os.Setenv("ANISTREAM_PLAYER_MAX_RETRIES", "5"), ShouldBeNil)
			defer os.Unsetenv("ANISTREAM_PLAYER_MAX_RETRIES")

			_ = Setup()
			So(viper.GetInt(key.PlayerMaxRetries), ShouldEqual, 5)
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			So(EnvKeyReplacer.Replace("player.max_retries"), ShouldEqual, "player_max_retries")
		})
	})
}

func TestField(t *testing.T) {
	Convey("Given a registered field", t, func() {
		field := Default[key.APIBaseURL]

		Convey("Env should carry the application prefix", func() {
			So(field.Env(), ShouldEqual, "ANISTREAM_API_BASE_URL")
		})

		Convey("typeName should reflect the default value", func() {
			So(field.typeName(), ShouldEqual, "string")
			retries := Default[key.PlayerMaxRetries]
			So(retries.typeName(), ShouldEqual, "int")
		})
	})
}

func TestLookup(t *testing.T) {
	Convey("Lookup", t, func() {
		Convey("Returns a registered field", func() {
			field, err := Lookup(key.PlayerMaxRetries)
			So(err, ShouldBeNil)
			So(field.Value, ShouldEqual, 3)
		})

		Convey("Suggests the closest key for a typo", func() {
			_, err := Lookup("player.max_retry")
			So(err, ShouldNotBeNil)

			var unknown *UnknownKeyError
			So(errors.As(err, &unknown), ShouldBeTrue)
			So(unknown.Closest, ShouldEqual, key.PlayerMaxRetries)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Parse follows the type of the default", t, func() {
		retries := Default[key.PlayerMaxRetries]
		v, err := retries.Parse([]string{"5"})
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 5)

		_, err = retries.Parse([]string{"five"})
		So(err, ShouldNotBeNil)

		native := Default[key.PlayerNativeAdaptive]
		v, err = native.Parse([]string{"true"})
		So(err, ShouldBeNil)
		So(v, ShouldEqual, true)

		lang := Default[key.PlayerDefaultLanguage]
		v, err = lang.Parse([]string{"dub"})
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "dub")

		_, err = lang.Parse(nil)
		So(err, ShouldNotBeNil)
	})
}
