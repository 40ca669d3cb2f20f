package resultstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/okian/ringside/internal/domain/model"
)

// MemoryStore is an in-process result store, typically loaded from a fixture.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []model.Event
	byID    map[string]model.Event
	results map[string][]model.FighterResult
}

// NewMemoryStore returns a store holding the given fixture events.
func NewMemoryStore(events ...FixtureEvent) (*MemoryStore, error) {
	s := &MemoryStore{
		byID:    make(map[string]model.Event, len(events)),
		results: make(map[string][]model.FighterResult, len(events)),
	}
	for _, ev := range events {
		if err := s.Add(ev.Event, ev.Results); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers an event. A nil results slice means the event has no result
// document yet.
func (s *MemoryStore) Add(ev model.Event, results []model.FighterResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[ev.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, ev.ID)
	}
	s.byID[ev.ID] = ev
	if results != nil {
		s.results[ev.ID] = slices.Clone(results)
	}
	idx := sort.Search(len(s.order), func(i int) bool {
		return !before(pos(s.order[i]), pos(ev))
	})
	s.order = slices.Insert(s.order, idx, ev)
	return nil
}

func pos(e model.Event) position { return position{Date: e.Date, ID: e.ID} }

// ListEvents returns up to pageSize events after cursor, newest first.
func (s *MemoryStore) ListEvents(ctx context.Context, cursor string, pageSize int) (model.EventPage, error) {
	if err := ctx.Err(); err != nil {
		return model.EventPage{}, err
	}
	if pageSize <= 0 {
		return model.EventPage{}, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if cursor != "" {
		after, err := decodeCursor(cursor)
		if err != nil {
			return model.EventPage{}, err
		}
		start = sort.Search(len(s.order), func(i int) bool {
			return before(after, pos(s.order[i]))
		})
	}
	end := min(start+pageSize, len(s.order))
	page := model.EventPage{Events: slices.Clone(s.order[start:end])}
	if end == len(s.order) {
		page.Done = true
		return page, nil
	}
	page.NextCursor = encodeCursor(pos(s.order[end-1]))
	return page, nil
}

// GetEvent returns model.ErrNotFound for an unknown id.
func (s *MemoryStore) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.byID[eventID]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", eventID, model.ErrNotFound)
	}
	return ev, nil
}

// Results returns model.ErrNotFound when the event has no result document.
func (s *MemoryStore) Results(_ context.Context, eventID string) ([]model.FighterResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[eventID]
	if !ok {
		return nil, fmt.Errorf("results of %s: %w", eventID, model.ErrNotFound)
	}
	return slices.Clone(res), nil
}

// Fixture returns the store content in fixture form.
func (s *MemoryStore) Fixture() Fixture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Fixture{Events: make([]FixtureEvent, len(s.order))}
	for i, ev := range s.order {
		out.Events[i] = FixtureEvent{Event: ev, Results: slices.Clone(s.results[ev.ID])}
	}
	return out
}
