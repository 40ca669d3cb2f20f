package fixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	_ = logger.Configure(logger.FormatText, nil)
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Start = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg.Events = 10
	cfg.Athletes = 8
	cfg.BoutsPerEvent = 3
	cfg.MissingRatio = 0

	Convey("Given a fixed seed", t, func() {
		fx, stats, err := Generate(ctx, cfg)
		So(err, ShouldBeNil)

		Convey("Then events step back one week, newest first", func() {
			So(len(fx.Events), ShouldEqual, 10)
			So(fx.Events[0].Date, ShouldEqual, cfg.Start)
			So(fx.Events[1].Date, ShouldEqual, cfg.Start.Add(-week))
		})

		Convey("Then every bout has two valid sides", func() {
			So(stats.WithResults, ShouldEqual, 10)
			So(stats.Results, ShouldEqual, 60)
			for _, ev := range fx.Events {
				So(len(ev.Results), ShouldEqual, 6)
				for _, r := range ev.Results {
					_, ok := model.ParseOutcome(r.Result)
					So(ok, ShouldBeTrue)
					So(r.ExternalID, ShouldNotEqual, r.OpponentID)
					So(r.ExternalID, ShouldNotBeEmpty)
				}
			}
		})

		Convey("Then the same seed reproduces the fixture", func() {
			again, _, err := Generate(ctx, cfg)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, fx)
		})
	})

	Convey("Given a roster too small for a bout", t, func() {
		bad := cfg
		bad.Athletes = 1
		_, _, err := Generate(ctx, bad)
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})
}
