package player

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSanitize(t *testing.T) {
	Convey("sanitizeMediaTarget", t, func() {
		u, err := sanitizeMediaTarget("  http://127.0.0.1:4000/stream?u=x ")
		So(err, ShouldBeNil)
		So(u, ShouldEqual, "http://127.0.0.1:4000/stream?u=x")

		for _, bad := range []string{"", "--script=evil.lua", "file:///etc/passwd", "http://x/\nfoo"} {
			_, err := sanitizeMediaTarget(bad)
			So(err, ShouldNotBeNil)
		}
	})

	Convey("sanitizeTitle", t, func() {
		So(sanitizeTitle(" Frieren\n- Episode 1\t"), ShouldEqual, "Frieren - Episode 1")
	})

	Convey("headerFields", t, func() {
		So(headerFields(map[string]string{"Referer": "https://kwik.cx/", "Cookie": "a=1,b=2"}), ShouldResemble,
			[]string{"Cookie: a=1%2Cb=2", "Referer: https://kwik.cx/"})
		So(headerFields(nil), ShouldBeEmpty)
	})
}

func TestTranslate(t *testing.T) {
	Convey("mpv messages map to media events", t, func() {
		sig, ok := translate([]byte(`{"event":"property-change","id":1,"name":"pause","data":true}`))
		So(ok, ShouldBeTrue)
		So(sig.event, ShouldEqual, MediaPaused)

		sig, ok = translate([]byte(`{"event":"property-change","id":1,"name":"pause","data":false}`))
		So(ok, ShouldBeTrue)
		So(sig.event, ShouldEqual, MediaPlaying)

		sig, ok = translate([]byte(`{"event":"property-change","id":2,"name":"eof-reached","data":true}`))
		So(ok, ShouldBeTrue)
		So(sig.event, ShouldEqual, MediaEnded)

		sig, ok = translate([]byte(`{"event":"end-file","reason":"error","file_error":"unrecognized file format"}`))
		So(ok, ShouldBeTrue)
		So(sig.event, ShouldEqual, MediaError)
		So(sig.err.Error(), ShouldEqual, "unrecognized file format")

		_, ok = translate([]byte(`{"event":"end-file","reason":"stop"}`))
		So(ok, ShouldBeFalse)
		_, ok = translate([]byte(`not json`))
		So(ok, ShouldBeFalse)
	})
}

func TestSendCommand(t *testing.T) {
	Convey("Given a fake mpv IPC server", t, func() {
		dir, err := os.MkdirTemp("", "mpv")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		sock := filepath.Join(dir, "mpv.sock")
		ln, err := net.Listen("unix", sock)
		So(err, ShouldBeNil)
		defer ln.Close()

		var got ipcCommand
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()

			line, err := bufio.NewReader(conn).ReadBytes('\n')
			if err != nil {
				return
			}
			_ = json.Unmarshal(line, &got)

			// a broadcast event arrives before the reply
			_, _ = conn.Write([]byte(`{"event":"playback-restart"}` + "\n"))
			reply, _ := json.Marshal(ipcMessage{Data: 12.5, Error: "success", RequestID: got.RequestID})
			_, _ = conn.Write(append(reply, '\n'))
		}()

		Convey("The reply matching the request id is returned", func() {
			data, err := doSendCommand(sock, []any{"get_property", "time-pos"})
			So(err, ShouldBeNil)
			So(data, ShouldEqual, 12.5)
			So(got.Command, ShouldResemble, []any{"get_property", "time-pos"})
		})
	})
}
