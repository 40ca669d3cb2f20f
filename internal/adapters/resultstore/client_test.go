package resultstore_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/okian/ringside/internal/adapters/resultstore"
	"github.com/okian/ringside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClient(t *testing.T) {
	ctx := context.Background()

	Convey("Given a result store served over HTTP", t, func() {
		mem, err := resultstore.NewMemoryStore(sampleEvents()...)
		So(err, ShouldBeNil)
		srv := httptest.NewServer(resultstore.NewHandler(mem))
		Reset(srv.Close)
		c := resultstore.NewClient(srv.URL+"/", resultstore.WithRateLimit(0), resultstore.WithBackoff(0))

		Convey("When paging through the catalog", func() {
			ids, pages, err := collect(ctx, c, 3)

			Convey("Then the client sees the store's order", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"e3", "e2a", "e2b", "e1"})
				So(pages, ShouldEqual, 2)
			})
		})

		Convey("When fetching an event and its results", func() {
			ev, err := c.GetEvent(ctx, "e3")
			So(err, ShouldBeNil)
			So(ev.Name, ShouldEqual, "Spring Open")
			So(ev.Date.Equal(day(3)), ShouldBeTrue)

			res, err := c.Results(ctx, "e3")
			So(err, ShouldBeNil)
			So(len(res), ShouldEqual, 1)
			So(res[0].ExternalID, ShouldEqual, "A1")
		})

		Convey("When the result document is missing", func() {
			_, err := c.Results(ctx, "e2a")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = c.GetEvent(ctx, "nope")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a flaky upstream", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				http.Error(w, "try later", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"id":"e1","name":"Winter Cup","date":"2025-04-01T00:00:00Z"}`))
		}))
		Reset(srv.Close)
		c := resultstore.NewClient(srv.URL, resultstore.WithRateLimit(0), resultstore.WithBackoff(0), resultstore.WithRetries(2))

		Convey("Then a 503 is retried", func() {
			ev, err := c.GetEvent(ctx, "e1")
			So(err, ShouldBeNil)
			So(ev.ID, ShouldEqual, "e1")
			So(hits.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given an upstream that always fails", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		Reset(srv.Close)

		Convey("When retries run out", func() {
			c := resultstore.NewClient(srv.URL, resultstore.WithRateLimit(0), resultstore.WithBackoff(0), resultstore.WithRetries(1))
			_, err := c.Results(ctx, "e1")

			Convey("Then the error is transient", func() {
				So(errors.Is(err, model.ErrTransientIO), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, 2)
			})
		})

		Convey("When failures reach the breaker threshold", func() {
			c := resultstore.NewClient(srv.URL,
				resultstore.WithRateLimit(0),
				resultstore.WithRetries(0),
				resultstore.WithFailureThreshold(2),
			)
			_, _ = c.Results(ctx, "e1")
			_, _ = c.Results(ctx, "e1")
			_, err := c.Results(ctx, "e1")

			Convey("Then the breaker short-circuits further calls", func() {
				So(errors.Is(err, model.ErrTransientIO), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given an upstream rejecting the request", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Error(w, "bad", http.StatusBadRequest)
		}))
		Reset(srv.Close)
		c := resultstore.NewClient(srv.URL, resultstore.WithRateLimit(0), resultstore.WithBackoff(0))

		Convey("Then a 4xx is not retried", func() {
			_, err := c.ListEvents(ctx, "", 10)
			So(errors.Is(err, resultstore.ErrUnexpectedStatus), ShouldBeTrue)
			So(errors.Is(err, model.ErrTransientIO), ShouldBeFalse)
			So(hits.Load(), ShouldEqual, 1)
		})
	})
}
