package archive_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/ringside/internal/domain/archive"
	"github.com/okian/ringside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	t0  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

func rec(id string, wins int, wcs []int, events ...string) model.FighterRecord {
	r := model.FighterRecord{ExternalID: id, FirstName: "Jane", LastName: "Doe"}
	r.Wins = wins
	r.WeightClasses = wcs
	r.Skills = map[string]int{"takedowns": wins}
	for i, e := range events {
		d := t0.AddDate(0, 0, i)
		r.Events = append(r.Events, model.Event{ID: e, Date: d})
		r.Fights = append(r.Fights, model.Fight{EventID: e, EventDate: d, Result: model.OutcomeWin})
	}
	return r
}

func withRecords(period string, recs ...model.FighterRecord) archive.Archive {
	a := archive.New(period, t0)
	for _, r := range recs {
		a.Records[r.ExternalID] = r
	}
	return a
}

func TestMerge(t *testing.T) {
	Convey("Given a historical and a current archive", t, func() {
		hist := withRecords("history", rec("A1", 3, []int{125, 135}, "e1", "shared"), rec("H1", 1, []int{145}, "e9"))
		hist.Processed = []model.ProcessedEvent{{EventID: "e1"}, {EventID: "shared"}}
		curr := withRecords("current", rec("A1", 2, []int{125, 145}, "shared", "e2"), rec("C1", 4, nil, "e3"))
		curr.Processed = []model.ProcessedEvent{{EventID: "shared"}, {EventID: "e2"}}

		Convey("When merging", func() {
			out, err := archive.Merge(hist, curr, now)
			So(err, ShouldBeNil)
			a1 := out.Records["A1"]

			Convey("Then counters and skills are summed", func() {
				So(a1.Wins, ShouldEqual, 5)
				So(a1.Skills["takedowns"], ShouldEqual, 5)
			})

			Convey("Then weight classes are unioned and sorted", func() {
				So(a1.WeightClasses, ShouldResemble, []int{125, 135, 145})
			})

			Convey("Then events are unioned by id and fights concatenated", func() {
				So(len(a1.Events), ShouldEqual, 3)
				So(len(a1.Fights), ShouldEqual, 4)
				for i := 1; i < len(a1.Fights); i++ {
					So(a1.Fights[i-1].EventDate.Before(a1.Fights[i].EventDate), ShouldBeFalse)
				}
			})

			Convey("Then single-archive athletes pass through with a new timestamp", func() {
				So(out.Records["H1"].Wins, ShouldEqual, 1)
				So(out.Records["C1"].Wins, ShouldEqual, 4)
				So(out.Records["C1"].UpdatedAt, ShouldEqual, now)
				So(a1.UpdatedAt, ShouldEqual, now)
			})

			Convey("Then processed events are de-duplicated", func() {
				So(len(out.Processed), ShouldEqual, 3)
			})

			Convey("Then the inputs are untouched", func() {
				So(hist.Records["A1"].Wins, ShouldEqual, 3)
				So(len(hist.Records["A1"].Fights), ShouldEqual, 2)
			})
		})

		Convey("When merging in either order", func() {
			ab, _ := archive.Merge(hist, curr, now)
			ba, _ := archive.Merge(curr, hist, now)

			Convey("Then counters agree", func() {
				So(ab.Records["A1"].Wins, ShouldEqual, 5)
				So(ba.Records["A1"].Wins, ShouldEqual, 5)
				So(ab.Records["A1"].Tally, ShouldResemble, ba.Records["A1"].Tally)
			})
		})

		Convey("When a marker is missing", func() {
			curr.Meta = nil
			_, err := archive.Merge(hist, curr, now)

			Convey("Then the merge aborts with a data integrity error", func() {
				So(errors.Is(err, archive.ErrMissingMeta), ShouldBeTrue)
				So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "current archive")
			})
		})
	})
}

func TestMergeRecordsIdentity(t *testing.T) {
	Convey("Given two records with differing details", t, func() {
		older := rec("A1", 1, nil)
		older.Gym = "Old Gym"
		older.Email = "old@example.com"
		newer := rec("A1", 1, nil)
		newer.Gym = "New Gym"
		newer.Email = "new@example.com"
		newer.Phone = "555-0100"

		out := archive.MergeRecords(older, newer, now)

		Convey("Then gym follows newer and contact keeps older", func() {
			So(out.Gym, ShouldEqual, "New Gym")
			So(out.Email, ShouldEqual, "old@example.com")
			So(out.Phone, ShouldEqual, "555-0100")
			So(out.Keywords, ShouldContain, "new")
		})
	})
}

func TestFoldAndLookup(t *testing.T) {
	Convey("Given the current archive", t, func() {
		curr := withRecords("current", rec("A1", 1, []int{125}, "e1"))

		Convey("When folding a run's records", func() {
			out, err := archive.Fold(curr, []model.FighterRecord{rec("A1", 1, []int{135}, "e2"), rec("B2", 1, nil, "e2")},
				[]model.ProcessedEvent{{EventID: "e2"}}, now)

			Convey("Then records merge and new athletes are added", func() {
				So(err, ShouldBeNil)
				So(out.Records["A1"].Wins, ShouldEqual, 2)
				So(out.Records["B2"].Wins, ShouldEqual, 1)
				So(out.Meta.UpdatedAt, ShouldEqual, now)
				So(curr.Meta.UpdatedAt, ShouldEqual, t0)
				So(len(out.Processed), ShouldEqual, 1)
			})
		})

		Convey("When the archive is frozen", func() {
			curr.Meta.Frozen = true
			_, err := archive.Fold(curr, nil, nil, now)
			So(errors.Is(err, archive.ErrFrozen), ShouldBeTrue)
		})

		Convey("When a lookup is absent", func() {
			l := archive.NotStored()
			a := l.OrEmpty("current", now)

			Convey("Then an empty archive with a marker is used", func() {
				So(l.State, ShouldEqual, archive.Absent)
				So(a.Meta, ShouldNotBeNil)
				So(len(a.Records), ShouldEqual, 0)
			})
		})

		Convey("When a lookup is present", func() {
			l := archive.Found(curr)
			So(l.OrEmpty("other", now).Meta.Period, ShouldEqual, "current")
		})
	})
}
