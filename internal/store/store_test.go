package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/anistream/anistream/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func exercise(s Store[map[string]int]) {
	Convey("Get returns the initial value", func() {
		v, err := s.Get()
		So(err, ShouldBeNil)
		So(v, ShouldBeEmpty)
	})

	Convey("Set notifies subscribers with the new value", func() {
		var seen map[string]int
		cancel := s.Subscribe(func(v map[string]int) { seen = v })
		defer cancel()

		So(s.Set(map[string]int{"a": 1}), ShouldBeNil)
		So(seen["a"], ShouldEqual, 1)

		v, err := s.Get()
		So(err, ShouldBeNil)
		So(v["a"], ShouldEqual, 1)
	})

	Convey("Update applies the transformation", func() {
		So(s.Set(map[string]int{"a": 1}), ShouldBeNil)
		So(s.Update(func(v map[string]int) (map[string]int, error) {
			v["b"] = 2
			return v, nil
		}), ShouldBeNil)

		v, _ := s.Get()
		So(v, ShouldResemble, map[string]int{"a": 1, "b": 2})
	})

	Convey("A failed update leaves the value and skips subscribers", func() {
		calls := 0
		cancel := s.Subscribe(func(map[string]int) { calls++ })
		defer cancel()

		err := s.Update(func(v map[string]int) (map[string]int, error) {
			return nil, errors.New("boom")
		})
		So(err, ShouldNotBeNil)
		So(calls, ShouldEqual, 0)
	})

	Convey("Cancelled subscribers are not called", func() {
		calls := 0
		cancel := s.Subscribe(func(map[string]int) { calls++ })
		cancel()
		So(s.Set(map[string]int{}), ShouldBeNil)
		So(calls, ShouldEqual, 0)
	})
}

func TestMemory(t *testing.T) {
	Convey("Given a memory store", t, func() {
		exercise(NewMemory(map[string]int{}))
	})
}

func TestGache(t *testing.T) {
	Convey("Given a gache store", t, func() {
		path := filepath.Join(t.TempDir(), "store.json")
		exercise(NewGache(path, func() map[string]int { return map[string]int{} }))
	})
}
