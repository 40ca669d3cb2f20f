package service

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTracker(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a tracker keeping two runs of three messages", t, func() {
		tr := newTracker(2, 3)

		Convey("When a run is active", func() {
			So(tr.begin("r1", ModeFull, "", now), ShouldBeNil)

			Convey("Then another cannot begin until it finishes", func() {
				So(errors.Is(tr.begin("r2", ModeMerge, "", now), ErrRunInProgress), ShouldBeTrue)
				tr.finish("r1", RunSummary{RunID: "r1"}, nil, now)
				So(tr.begin("r2", ModeMerge, "", now), ShouldBeNil)
				So(tr.activeRun(), ShouldEqual, "r2")
			})

			Convey("Then only the latest messages are kept", func() {
				for _, m := range []string{"a", "b", "c", "d"} {
					tr.append("r1", m)
				}
				info, ok := tr.get("r1")
				So(ok, ShouldBeTrue)
				So(info.Messages, ShouldResemble, []string{"b", "c", "d"})
			})

			Convey("Then a failure is recorded", func() {
				tr.finish("r1", RunSummary{}, errors.New("boom"), now)
				info, _ := tr.get("r1")
				So(info.Status, ShouldEqual, StatusFailed)
				So(info.Error, ShouldEqual, "boom")
				So(info.FinishedAt, ShouldNotBeNil)
			})
		})

		Convey("When more runs finish than are kept", func() {
			for _, id := range []string{"r1", "r2", "r3"} {
				So(tr.begin(id, ModeFull, "", now), ShouldBeNil)
				tr.finish(id, RunSummary{RunID: id}, nil, now)
			}

			Convey("Then the oldest is evicted and the list is newest first", func() {
				_, ok := tr.get("r1")
				So(ok, ShouldBeFalse)
				list := tr.list()
				So(len(list), ShouldEqual, 2)
				So(list[0].ID, ShouldEqual, "r3")
			})
		})
	})
}
