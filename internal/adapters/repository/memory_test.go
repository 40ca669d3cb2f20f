package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/batch"
	"github.com/okian/ringside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a memory store with one seeded profile", t, func() {
		s := repository.NewMemoryStore(
			repository.WithClock(func() time.Time { return now }),
			repository.WithProfiles(model.CanonicalProfile{ID: "P1", ExternalID: "A1", FirstName: "Jane", Extra: map[string]any{"belt": "blue"}}),
		)

		Convey("When looking up by external id and id", func() {
			byExt, err := s.FindByExternalID(ctx, "A1")
			So(err, ShouldBeNil)
			So(len(byExt), ShouldEqual, 1)

			_, err = s.FindByID(ctx, "missing")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a chunk creates, updates and ledgers", func() {
			rec := model.FighterRecord{ExternalID: "A1", Gym: "New Gym"}
			rec.Wins = 3
			err := s.CommitChunk(ctx, batch.Chunk{
				Creates:   []model.CanonicalProfile{{ID: "P2", ExternalID: "B2"}},
				Updates:   []model.ProfileUpdate{{ID: "P1", Record: rec}},
				Processed: []model.ProcessedEvent{{EventID: "evt1"}, {EventID: "evt1"}},
			})

			Convey("Then all of it is applied", func() {
				So(err, ShouldBeNil)
				p1, _ := s.FindByID(ctx, "P1")
				So(p1.Stats.Wins, ShouldEqual, 3)
				So(p1.Gym, ShouldEqual, "New Gym")
				So(p1.Extra["belt"], ShouldEqual, "blue")
				So(p1.UpdatedAt, ShouldEqual, now)
				stats, _ := s.Stats(ctx)
				So(stats.Profiles, ShouldEqual, 2)
				So(stats.Processed, ShouldEqual, 1)
			})
		})

		Convey("When a chunk contains an invalid update", func() {
			err := s.CommitChunk(ctx, batch.Chunk{
				Creates:   []model.CanonicalProfile{{ID: "P3"}},
				Updates:   []model.ProfileUpdate{{ID: "nope"}},
				Processed: []model.ProcessedEvent{{EventID: "evt9"}},
			})

			Convey("Then nothing is applied", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				_, err := s.FindByID(ctx, "P3")
				So(err, ShouldNotBeNil)
				ledger, _ := s.ListProcessed(ctx)
				So(ledger, ShouldBeEmpty)
			})
		})

		Convey("When creating an existing id", func() {
			err := s.CommitBatch(ctx, []model.CanonicalProfile{{ID: "P1"}}, nil)
			So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
		})

		Convey("When appending overlapping ledger entries", func() {
			So(s.AppendProcessed(ctx, []model.ProcessedEvent{{EventID: "e1"}, {EventID: "e2"}}), ShouldBeNil)
			So(s.AppendProcessed(ctx, []model.ProcessedEvent{{EventID: "e2"}, {EventID: "e3"}}), ShouldBeNil)
			ledger, _ := s.ListProcessed(ctx)

			Convey("Then no event id appears twice", func() {
				So(len(ledger), ShouldEqual, 3)
				So(ledger[2].EventID, ShouldEqual, "e3")
			})
		})

		Convey("When returned profiles are mutated", func() {
			p, _ := s.FindByID(ctx, "P1")
			p.Extra["belt"] = "black"
			again, _ := s.FindByID(ctx, "P1")
			So(again.Extra["belt"], ShouldEqual, "blue")
			So(len(s.Profiles()), ShouldEqual, 1)
		})
	})
}
