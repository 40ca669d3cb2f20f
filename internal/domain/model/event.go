// Package model contains domain models passed between layers.
package model

import "time"

// Event is one entry of the result store's event catalog.
type Event struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// ProcessedEvent is a ledger entry: an event already folded into canonical profiles.
type ProcessedEvent struct {
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Draft builds the ledger entry for e, stamped at now.
func (e Event) Draft(now time.Time) ProcessedEvent {
	return ProcessedEvent{EventID: e.ID, Name: e.Name, Date: e.Date, ProcessedAt: now}
}

// UnionProcessed returns the entries of a followed by the entries of b whose
// event id is not already present. Order of first appearance is kept.
func UnionProcessed(a, b []ProcessedEvent) []ProcessedEvent {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]ProcessedEvent, 0, len(a)+len(b))
	for _, list := range [][]ProcessedEvent{a, b} {
		for _, p := range list {
			if _, ok := seen[p.EventID]; ok {
				continue
			}
			seen[p.EventID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// EventPage is one page of the event catalog, ordered by date descending.
// Done signals end-of-stream; otherwise NextCursor resumes after this page.
type EventPage struct {
	Events     []Event `json:"events"`
	NextCursor string  `json:"next_cursor,omitempty"`
	Done       bool    `json:"done"`
}
