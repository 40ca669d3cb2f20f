package scan_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/scan"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeStore serves events newest first with an offset cursor.
type fakeStore struct {
	events   []model.Event
	results  map[string][]model.FighterResult
	failing  map[string]bool
	listErr  error
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	fetched  []string
}

func newFakeStore(n int) *fakeStore {
	s := &fakeStore{results: map[string][]model.FighterResult{}, failing: map[string]bool{}}
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("evt%d", i)
		s.events = append(s.events, model.Event{ID: id, Name: "Event " + id, Date: base.AddDate(0, 0, -i)})
		s.results[id] = []model.FighterResult{{ExternalID: "A" + strconv.Itoa(i), Result: "W"}}
	}
	return s
}

func (s *fakeStore) ListEvents(_ context.Context, cursor string, pageSize int) (model.EventPage, error) {
	if s.listErr != nil {
		return model.EventPage{}, s.listErr
	}
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := min(start+pageSize, len(s.events))
	page := model.EventPage{Events: s.events[start:end]}
	if end >= len(s.events) {
		page.Done = true
	} else {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (s *fakeStore) GetEvent(_ context.Context, id string) (model.Event, error) {
	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Event{}, model.ErrNotFound
}

func (s *fakeStore) Results(_ context.Context, id string) ([]model.FighterResult, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	s.fetched = append(s.fetched, id)
	s.mu.Unlock()
	if s.failing[id] {
		return nil, errors.New("upstream timeout")
	}
	r, ok := s.results[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return r, nil
}

func collect(t *testing.T, s *scan.Scanner) ([]scan.Page, scan.Summary, error) {
	t.Helper()
	var pages []scan.Page
	sum, err := s.Scan(context.Background(), "", func(_ context.Context, p scan.Page) error {
		pages = append(pages, p)
		return nil
	})
	return pages, sum, err
}

func TestScanner(t *testing.T) {
	Convey("Given a store with 12 events", t, func() {
		store := newFakeStore(12)

		Convey("When scanning with page size 5", func() {
			s := scan.New(store, scan.WithPageSize(5), scan.WithConcurrency(3))
			pages, sum, err := collect(t, s)

			Convey("Then every page is delivered in date-descending order", func() {
				So(err, ShouldBeNil)
				So(len(pages), ShouldEqual, 3)
				So(sum.Pages, ShouldEqual, 3)
				So(sum.Scanned, ShouldEqual, 12)
				So(pages[0].Events[0].Event.ID, ShouldEqual, "evt0")
				So(pages[0].Events[4].Event.ID, ShouldEqual, "evt4")
				So(pages[0].Next, ShouldEqual, "5")
				So(pages[2].Done, ShouldBeTrue)
				So(pages[2].Next, ShouldEqual, "")
			})

			Convey("Then fetches never exceed the concurrency bound", func() {
				So(store.peak.Load(), ShouldBeLessThanOrEqualTo, 3)
			})

			Convey("Then each scanned event carries a ledger draft", func() {
				ev := pages[1].Events[0]
				So(ev.Draft.EventID, ShouldEqual, ev.Event.ID)
				So(ev.Draft.Name, ShouldEqual, ev.Event.Name)
				So(ev.Draft.ProcessedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When some events lack results and one fetch fails", func() {
			delete(store.results, "evt1")
			store.failing["evt2"] = true
			s := scan.New(store, scan.WithPageSize(5))
			pages, sum, err := collect(t, s)

			Convey("Then those events are skipped without aborting", func() {
				So(err, ShouldBeNil)
				So(sum.Scanned, ShouldEqual, 10)
				So(sum.NoResults, ShouldEqual, 1)
				So(sum.Failed, ShouldEqual, 1)
				So(len(pages[0].Events), ShouldEqual, 3)
				So(pages[0].Events[1].Event.ID, ShouldEqual, "evt3")
			})
		})

		Convey("When a skip predicate marks ledgered events", func() {
			s := scan.New(store, scan.WithPageSize(100), scan.WithSkip(func(_ context.Context, id string) bool {
				return id == "evt0" || id == "evt5"
			}))
			_, sum, err := collect(t, s)

			Convey("Then they are not fetched", func() {
				So(err, ShouldBeNil)
				So(sum.Ledgered, ShouldEqual, 2)
				So(sum.Scanned, ShouldEqual, 10)
				So(store.fetched, ShouldNotContain, "evt0")
			})
		})

		Convey("When listing fails", func() {
			store.listErr = errors.New("store unavailable")
			_, _, err := collect(t, scan.New(store))

			Convey("Then the scan aborts", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the page callback fails", func() {
			s := scan.New(store, scan.WithPageSize(5))
			calls := 0
			_, err := s.Scan(context.Background(), "", func(context.Context, scan.Page) error {
				calls++
				return errors.New("stop")
			})

			Convey("Then the scan stops after that page", func() {
				So(err, ShouldNotBeNil)
				So(calls, ShouldEqual, 1)
			})
		})

		Convey("When resuming from a cursor", func() {
			s := scan.New(store, scan.WithPageSize(5))
			var first string
			_, err := s.Scan(context.Background(), "10", func(_ context.Context, p scan.Page) error {
				if first == "" {
					first = p.Events[0].Event.ID
				}
				return nil
			})
			So(err, ShouldBeNil)
			So(first, ShouldEqual, "evt10")
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := scan.New(store).Scan(ctx, "", func(context.Context, scan.Page) error { return nil })
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When scanning a single event", func() {
			s := scan.New(store)
			ev, err := s.ScanEvent(context.Background(), "evt3")
			So(err, ShouldBeNil)
			So(ev.Results[0].ExternalID, ShouldEqual, "A3")

			_, err = s.ScanEvent(context.Background(), "nope")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}
