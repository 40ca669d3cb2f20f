package service

import (
	"slices"
	"sync"
	"time"
)

// Run modes.
const (
	ModeFull  = "full"
	ModeMerge = "merge"
	ModeEvent = "event"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const (
	defaultRunHistory  = 20
	defaultRunMessages = 50
)

// RunInfo is a snapshot of one tracked run.
type RunInfo struct {
	ID         string      `json:"id"`
	Mode       string      `json:"mode"`
	EventID    string      `json:"event_id,omitempty"`
	Status     string      `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	Messages   []string    `json:"messages"`
}

// tracker keeps the last runs of this process and allows one active run.
type tracker struct {
	mu          sync.Mutex
	runs        map[string]*RunInfo
	order       []string
	active      string
	maxRuns     int
	maxMessages int
}

func newTracker(maxRuns, maxMessages int) *tracker {
	if maxRuns <= 0 {
		maxRuns = defaultRunHistory
	}
	if maxMessages <= 0 {
		maxMessages = defaultRunMessages
	}
	return &tracker{runs: make(map[string]*RunInfo), maxRuns: maxRuns, maxMessages: maxMessages}
}

func (t *tracker) begin(id, mode, eventID string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != "" {
		return ErrRunInProgress
	}
	t.active = id
	t.runs[id] = &RunInfo{ID: id, Mode: mode, EventID: eventID, Status: StatusRunning, StartedAt: now}
	t.order = append(t.order, id)
	for len(t.order) > t.maxRuns {
		delete(t.runs, t.order[0])
		t.order = t.order[1:]
	}
	return nil
}

func (t *tracker) append(id, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.runs[id]
	if !ok {
		return
	}
	r.Messages = append(r.Messages, msg)
	if over := len(r.Messages) - t.maxMessages; over > 0 {
		r.Messages = slices.Delete(r.Messages, 0, over)
	}
}

func (t *tracker) finish(id string, sum RunSummary, err error, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == id {
		t.active = ""
	}
	r, ok := t.runs[id]
	if !ok {
		return
	}
	r.FinishedAt = &now
	r.Summary = &sum
	r.Status = StatusSucceeded
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
	}
}

func (t *tracker) get(id string) (RunInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.runs[id]
	if !ok {
		return RunInfo{}, false
	}
	return r.snapshot(), true
}

// list returns the tracked runs, most recent first.
func (t *tracker) list() []RunInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RunInfo, 0, len(t.order))
	for i := len(t.order) - 1; i >= 0; i-- {
		out = append(out, t.runs[t.order[i]].snapshot())
	}
	return out
}

func (t *tracker) activeRun() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (r *RunInfo) snapshot() RunInfo {
	out := *r
	out.Messages = slices.Clone(r.Messages)
	if r.Summary != nil {
		s := *r.Summary
		out.Summary = &s
	}
	if r.FinishedAt != nil {
		f := *r.FinishedAt
		out.FinishedAt = &f
	}
	return out
}
