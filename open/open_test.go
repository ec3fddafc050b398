package open

import (
	"testing"

	"github.com/anistream/anistream/constant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommand(t *testing.T) {
	Convey("The handler depends on the platform", t, func() {
		cmd, ok := command(constant.Linux, "http://127.0.0.1:4000/api/recent")
		So(ok, ShouldBeTrue)
		So(cmd.Args, ShouldResemble, []string{"xdg-open", "http://127.0.0.1:4000/api/recent"})

		cmd, ok = command(constant.Darwin, "http://127.0.0.1:4000")
		So(ok, ShouldBeTrue)
		So(cmd.Args[0], ShouldEqual, "open")

		_, ok = command("plan9", "http://127.0.0.1:4000")
		So(ok, ShouldBeFalse)
	})
}
