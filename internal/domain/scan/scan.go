// Package scan walks the event result store page by page.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// Defaults.
const (
	DefaultPageSize    = 500
	DefaultConcurrency = 8
)

// Skip reasons reported in metrics.
const (
	skipNoResults = "no_results"
	skipFailed    = "fetch_failed"
	skipLedgered  = "ledgered"
)

// ResultStore is the read-only event result store.
type ResultStore interface {
	ListEvents(ctx context.Context, cursor string, pageSize int) (model.EventPage, error)
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	// Results returns model.ErrNotFound when the event has no result document.
	Results(ctx context.Context, eventID string) ([]model.FighterResult, error)
}

// ScannedEvent is an event with its result document and ledger draft.
type ScannedEvent struct {
	Event   model.Event
	Results []model.FighterResult
	Draft   model.ProcessedEvent
}

// Page is one scanned catalog page. Events keep the store's order.
type Page struct {
	Events []ScannedEvent
	// Next resumes the scan after this page; empty when Done.
	Next string
	Done bool
}

// Summary counts what a scan saw.
type Summary struct {
	Pages     int
	Scanned   int
	NoResults int
	Failed    int
	Ledgered  int
}

// PageFunc consumes a page. Returning an error stops the scan.
type PageFunc func(ctx context.Context, p Page) error

// Scanner lists events and fetches their result documents.
type Scanner struct {
	store       ResultStore
	pageSize    int
	concurrency int
	skip        func(ctx context.Context, eventID string) bool
	log         logger.Logger
	now         func() time.Time
}

// New creates a Scanner over store.
func New(store ResultStore, opts ...Option) *Scanner {
	s := &Scanner{
		store:       store,
		pageSize:    DefaultPageSize,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	return s
}

// Scan walks the catalog from cursor (empty for the newest event) until the
// store signals end-of-stream, calling fn once per page. A failed listing
// aborts the scan; a failed result fetch only skips its event.
func (s *Scanner) Scan(ctx context.Context, cursor string, fn PageFunc) (Summary, error) {
	var sum Summary
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		listed, err := s.store.ListEvents(ctx, cursor, s.pageSize)
		if err != nil {
			return sum, fmt.Errorf("list events after cursor %q: %w", cursor, err)
		}

		page, err := s.fetchPage(ctx, listed.Events, &sum)
		if err != nil {
			return sum, err
		}
		page.Done = listed.Done || listed.NextCursor == "" || listed.NextCursor == cursor
		if !page.Done {
			page.Next = listed.NextCursor
		}
		sum.Pages++

		s.log.Debug(ctx, "page scanned",
			logger.Int("listed", len(listed.Events)),
			logger.Int("with_results", len(page.Events)),
			logger.Bool("done", page.Done),
		)
		if err := fn(ctx, page); err != nil {
			return sum, err
		}
		if page.Done {
			return sum, nil
		}
		cursor = page.Next
	}
}

type slot struct {
	ev  ScannedEvent
	ok  bool
	why string
}

func (s *Scanner) fetchPage(ctx context.Context, events []model.Event, sum *Summary) (Page, error) {
	slots := make([]slot, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ev := range events {
		if s.skip != nil && s.skip(ctx, ev.ID) {
			slots[i].why = skipLedgered
			continue
		}
		g.Go(func() error {
			res, err := s.fetch(gctx, ev)
			switch {
			case err == nil:
				slots[i] = slot{ev: res, ok: true}
			case errors.Is(err, model.ErrNotFound):
				slots[i].why = skipNoResults
			default:
				slots[i].why = skipFailed
				s.log.Warn(gctx, "result fetch failed, event skipped",
					logger.String("event_id", ev.ID),
					logger.Error(err),
				)
			}
			// Per-event failures never abort the page.
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	page := Page{Events: make([]ScannedEvent, 0, len(events))}
	for _, sl := range slots {
		if sl.ok {
			page.Events = append(page.Events, sl.ev)
			sum.Scanned++
			metrics.RecordEventScanned()
			continue
		}
		switch sl.why {
		case skipNoResults:
			sum.NoResults++
		case skipFailed:
			sum.Failed++
		case skipLedgered:
			sum.Ledgered++
		}
		metrics.RecordEventSkipped(sl.why)
	}
	return page, nil
}

func (s *Scanner) fetch(ctx context.Context, ev model.Event) (ScannedEvent, error) {
	start := time.Now()
	results, err := s.store.Results(ctx, ev.ID)
	metrics.RecordResultFetch(time.Since(start).Seconds(), err != nil && !errors.Is(err, model.ErrNotFound))
	if err != nil {
		return ScannedEvent{}, err
	}
	return ScannedEvent{Event: ev, Results: results, Draft: ev.Draft(s.now())}, nil
}

// ScanEvent fetches one event and its result document. Unlike Scan it
// returns model.ErrNotFound when either is missing.
func (s *Scanner) ScanEvent(ctx context.Context, eventID string) (ScannedEvent, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return ScannedEvent{}, fmt.Errorf("get event %s: %w", eventID, err)
	}
	res, err := s.fetch(ctx, ev)
	if err != nil {
		return ScannedEvent{}, fmt.Errorf("results of event %s: %w", eventID, err)
	}
	metrics.RecordEventScanned()
	return res, nil
}
