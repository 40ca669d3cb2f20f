package model_test

import (
	"testing"
	"time"

	"github.com/okian/ringside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOutcomeParsing(t *testing.T) {
	Convey("Given raw outcome codes", t, func() {
		Convey("Then known codes parse case-insensitively", func() {
			o, ok := model.ParseOutcome(" w ")
			So(ok, ShouldBeTrue)
			So(o, ShouldEqual, model.OutcomeWin)
			o, ok = model.ParseOutcome("dq")
			So(ok, ShouldBeTrue)
			So(o, ShouldEqual, model.OutcomeDisqualified)
		})

		Convey("Then unknown codes are rejected", func() {
			_, ok := model.ParseOutcome("DRAW")
			So(ok, ShouldBeFalse)
		})

		Convey("Then only the tournament category is a tournament", func() {
			So(model.IsTournament("Tournament"), ShouldBeTrue)
			So(model.IsTournament("regular"), ShouldBeFalse)
			So(model.IsTournament(""), ShouldBeFalse)
		})
	})
}

func TestSkillTallies(t *testing.T) {
	Convey("Given a result with a partial skill map", t, func() {
		r := model.FighterResult{Skills: map[string]int{"takedowns": 3, "spinning_kicks": 1}}
		tallies := r.SkillTallies()

		Convey("Then every known skill is present and defaults to zero", func() {
			for _, name := range model.SkillNames {
				_, ok := tallies[name]
				So(ok, ShouldBeTrue)
			}
			So(tallies["takedowns"], ShouldEqual, 3)
			So(tallies["sweeps"], ShouldEqual, 0)
			So(tallies["spinning_kicks"], ShouldEqual, 1)
		})
	})
}

func TestListHelpers(t *testing.T) {
	Convey("Given list helpers", t, func() {
		Convey("When inserting weight classes", func() {
			var list []int
			for _, wc := range []int{135, 125, 125, 145, 125} {
				list = model.InsertWeightClass(list, wc)
			}
			So(list, ShouldResemble, []int{125, 135, 145})
		})

		Convey("When unioning weight classes", func() {
			So(model.UnionWeightClasses([]int{125, 145}, []int{135, 125}), ShouldResemble, []int{125, 135, 145})
		})

		Convey("When computing keywords", func() {
			So(model.Keywords("Jane  Doe", "Doe Fight Club"), ShouldResemble, []string{"jane", "doe", "fight", "club"})
		})

		Convey("When unioning events and processed entries", func() {
			a := []model.Event{{ID: "e1"}, {ID: "e2"}}
			b := []model.Event{{ID: "e2"}, {ID: "e3"}}
			So(len(model.UnionEvents(a, b)), ShouldEqual, 3)

			pa := []model.ProcessedEvent{{EventID: "e1"}}
			pb := []model.ProcessedEvent{{EventID: "e1"}, {EventID: "e4"}}
			So(len(model.UnionProcessed(pa, pb)), ShouldEqual, 2)
		})

		Convey("When concatenating fights", func() {
			d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
			d2 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			a := []model.Fight{{EventID: "a-old", EventDate: d1}}
			b := []model.Fight{{EventID: "b-new", EventDate: d2}, {EventID: "b-old", EventDate: d1}}
			out := model.ConcatFights(a, b)

			Convey("Then newest come first and equal dates keep concatenation order", func() {
				So(out[0].EventID, ShouldEqual, "b-new")
				So(out[1].EventID, ShouldEqual, "a-old")
				So(out[2].EventID, ShouldEqual, "b-old")
			})
		})
	})
}

func TestProfileUpdates(t *testing.T) {
	Convey("Given an existing profile", t, func() {
		created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		p := model.CanonicalProfile{
			ID:        "JANEDOE01021990",
			FirstName: "Jane",
			LastName:  "Doe",
			Gym:       "Old Gym",
			Email:     "jane@old.example",
			Extra:     map[string]any{"judo_rank": "brown"},
			CreatedAt: created,
		}

		Convey("When an update is applied", func() {
			rec := model.FighterRecord{
				ExternalID: "A1",
				FirstName:  "Jane",
				LastName:   "Doe",
				Gym:        "New Gym",
				Email:      "jane@new.example",
				Phone:      "555-0100",
			}
			rec.Wins = 4
			now := created.Add(time.Hour)
			model.ApplyUpdate(&p, model.ProfileUpdate{ID: p.ID, Record: rec}, now)

			Convey("Then name and gym follow the record while contact is only filled", func() {
				So(p.ExternalID, ShouldEqual, "A1")
				So(p.Gym, ShouldEqual, "New Gym")
				So(p.Email, ShouldEqual, "jane@old.example")
				So(p.Phone, ShouldEqual, "555-0100")
				So(p.Stats.Wins, ShouldEqual, 4)
				So(p.Extra["judo_rank"], ShouldEqual, "brown")
				So(p.CreatedAt, ShouldEqual, created)
				So(p.UpdatedAt, ShouldEqual, now)
			})
		})

		Convey("When a profile without stats is projected", func() {
			rec := p.Record()
			So(rec.Wins, ShouldEqual, 0)
			So(rec.FirstName, ShouldEqual, "Jane")
		})

		Convey("When a clone is mutated", func() {
			stats := model.FightStats{Skills: map[string]int{"sweeps": 1}}
			p.Stats = &stats
			c := p.Clone()
			c.Stats.Skills["sweeps"] = 9
			c.Extra["judo_rank"] = "black"
			So(p.Stats.Skills["sweeps"], ShouldEqual, 1)
			So(p.Extra["judo_rank"], ShouldEqual, "brown")
		})
	})
}
