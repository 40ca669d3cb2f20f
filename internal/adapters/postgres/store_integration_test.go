//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okian/ringside/internal/adapters/postgres"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/batch"
	"github.com/okian/ringside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	container, err := testpostgres.Run(ctx,
		"docker.io/postgres:16-alpine",
		testpostgres.WithDatabase("ringside"),
		testpostgres.WithUsername("ringside"),
		testpostgres.WithPassword("ringside"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cancel()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := postgres.MigrateUp(connStr); err != nil {
		cancel()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	store, err := postgres.Open(ctx, connStr)
	if err != nil {
		cancel()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
		cancel()
		_ = container.Terminate(context.Background())
	})
	return store
}

func TestStoreIntegration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	Convey("Given a migrated database", t, func() {
		stats := model.FightStats{Skills: map[string]int{"takedowns": 2}}
		stats.Wins = 1
		err := store.CommitChunk(ctx, batch.Chunk{
			Creates: []model.CanonicalProfile{{
				ID: "JANEDOE01021990", ExternalID: "A1", FirstName: "Jane", LastName: "Doe",
				Email: "jane@example.com", Stats: &stats, Extra: map[string]any{"belt": "blue"},
			}},
			Processed: []model.ProcessedEvent{{EventID: "evt1", Name: "Spring Open"}},
		})
		So(err, ShouldBeNil)

		Convey("Then the profile round-trips with its namespaced stats", func() {
			p, err := store.FindByID(ctx, "JANEDOE01021990")
			So(err, ShouldBeNil)
			So(p.Stats.Wins, ShouldEqual, 1)
			So(p.Stats.Skills["takedowns"], ShouldEqual, 2)
			So(p.Extra["belt"], ShouldEqual, "blue")

			byExt, err := store.FindByExternalID(ctx, "A1")
			So(err, ShouldBeNil)
			So(len(byExt), ShouldEqual, 1)
		})

		Convey("Then an update keeps contact and extra fields", func() {
			rec := model.FighterRecord{ExternalID: "A1", Gym: "New Gym", Email: "other@example.com"}
			rec.Wins = 5
			So(store.CommitBatch(ctx, nil, []model.ProfileUpdate{{ID: "JANEDOE01021990", Record: rec}}), ShouldBeNil)

			p, _ := store.FindByID(ctx, "JANEDOE01021990")
			So(p.Stats.Wins, ShouldEqual, 5)
			So(p.Gym, ShouldEqual, "New Gym")
			So(p.Email, ShouldEqual, "jane@example.com")
			So(p.Extra["belt"], ShouldEqual, "blue")
		})

		Convey("Then a failing chunk rolls back entirely", func() {
			err := store.CommitChunk(ctx, batch.Chunk{
				Creates:   []model.CanonicalProfile{{ID: "NEW1"}},
				Updates:   []model.ProfileUpdate{{ID: "missing"}},
				Processed: []model.ProcessedEvent{{EventID: "evt2"}},
			})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = store.FindByID(ctx, "NEW1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then overlapping ledger appends never duplicate", func() {
			So(store.AppendProcessed(ctx, []model.ProcessedEvent{{EventID: "evt1"}, {EventID: "evt3"}}), ShouldBeNil)
			ledger, err := store.ListProcessed(ctx)
			So(err, ShouldBeNil)
			ids := map[string]int{}
			for _, e := range ledger {
				ids[e.EventID]++
			}
			So(ids["evt1"], ShouldEqual, 1)
			So(ids["evt3"], ShouldEqual, 1)
		})

		Reset(func() {
			_ = store.Truncate(ctx)
		})
	})
}
