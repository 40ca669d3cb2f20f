// Package aggregate folds per-bout results into cumulative per-athlete records.
//
// An Accumulator lives for exactly one run. Folding is serialized by a mutex,
// so results fetched concurrently may be folded from several goroutines, but
// callers that need the documented newest-first fight order must fold in
// scan order.
package aggregate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// Validation gap kinds.
const (
	GapMissingID          = "missing_external_id"
	GapUnknownOutcome     = "unknown_outcome"
	GapMissingSkills      = "missing_skills"
	GapMissingWeightClass = "missing_weight_class"
)

// FoldStats summarizes one Fold call.
type FoldStats struct {
	Folded  int
	Skipped int
	Gaps    int
}

// Accumulator maps external athlete id to the record built so far.
type Accumulator struct {
	mu      sync.Mutex
	records map[string]*model.FighterRecord
	log     logger.Logger
	now     func() time.Time
}

// New creates an empty accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{
		records: make(map[string]*model.FighterRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.NewNop()
	}
	return a
}

// Fold adds one event's results. Unusable results are skipped and logged;
// Fold never fails.
func (a *Accumulator) Fold(ctx context.Context, event model.Event, results []model.FighterResult) FoldStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var st FoldStats
	now := a.now()
	for _, r := range results {
		if r.ExternalID == "" {
			st.Skipped++
			a.gap(ctx, &st, GapMissingID, event.ID, "")
			continue
		}
		a.foldOne(ctx, &st, event, r, now)
		st.Folded++
	}
	metrics.RecordResultsFolded(st.Folded)
	return st
}

func (a *Accumulator) foldOne(ctx context.Context, st *FoldStats, event model.Event, r model.FighterResult, now time.Time) {
	rec, ok := a.records[r.ExternalID]
	if !ok {
		rec = &model.FighterRecord{
			ExternalID:  r.ExternalID,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Gym:         r.Gym,
			Email:       r.Email,
			Phone:       r.Phone,
			Age:         r.Age,
			Gender:      r.Gender,
			DateOfBirth: r.DateOfBirth,
		}
		rec.Skills = make(map[string]int, len(model.SkillNames))
		for _, name := range model.SkillNames {
			rec.Skills[name] = 0
		}
		rec.RefreshKeywords()
		a.records[r.ExternalID] = rec
	} else {
		renamed := applyIdentity(rec, r)
		if renamed {
			rec.RefreshKeywords()
		}
	}

	outcome, known := model.ParseOutcome(r.Result)
	if known {
		count(&rec.Tally, outcome, r.Category)
	} else {
		a.gap(ctx, st, GapUnknownOutcome, event.ID, r.ExternalID, logger.String("result", r.Result))
	}

	if len(r.Skills) == 0 {
		a.gap(ctx, st, GapMissingSkills, event.ID, r.ExternalID)
	}
	tallies := r.SkillTallies()
	rec.Skills = model.SumSkills(rec.Skills, tallies)

	if r.WeightClass > 0 {
		rec.WeightClasses = model.InsertWeightClass(rec.WeightClasses, r.WeightClass)
	} else {
		a.gap(ctx, st, GapMissingWeightClass, event.ID, r.ExternalID)
	}

	rec.Fights = append(rec.Fights, model.Fight{
		EventID:     event.ID,
		EventName:   event.Name,
		EventDate:   event.Date,
		Result:      outcome,
		WeightClass: r.WeightClass,
		OpponentID:  r.OpponentID,
		Category:    r.Category,
		Skills:      tallies,
	})
	rec.Events = model.UnionEvents(rec.Events, []model.Event{event})
	rec.UpdatedAt = now
}

// applyIdentity overwrites name and gym (last wins) and fills contact and
// demographics left empty (first wins). It reports whether name or gym changed.
func applyIdentity(rec *model.FighterRecord, r model.FighterResult) bool {
	changed := false
	for _, f := range []struct {
		dst *string
		v   string
	}{{&rec.FirstName, r.FirstName}, {&rec.LastName, r.LastName}, {&rec.Gym, r.Gym}} {
		if f.v != "" && *f.dst != f.v {
			*f.dst = f.v
			changed = true
		}
	}
	for _, f := range []struct {
		dst *string
		v   string
	}{{&rec.Email, r.Email}, {&rec.Phone, r.Phone}, {&rec.Gender, r.Gender}, {&rec.DateOfBirth, r.DateOfBirth}} {
		if *f.dst == "" {
			*f.dst = f.v
		}
	}
	if rec.Age == 0 {
		rec.Age = r.Age
	}
	return changed
}

// count applies one outcome. Tournament bouts only move the tournament
// win/loss counters; NC and DQ in a tournament count nowhere.
func count(t *model.Tally, o model.Outcome, category string) {
	if model.IsTournament(category) {
		switch o {
		case model.OutcomeWin:
			t.TournamentWins++
		case model.OutcomeLoss:
			t.TournamentLosses++
		}
		return
	}
	switch o {
	case model.OutcomeWin:
		t.Wins++
	case model.OutcomeLoss:
		t.Losses++
	case model.OutcomeNoContest:
		t.NoContests++
	case model.OutcomeDisqualified:
		t.Disqualifications++
	}
}

func (a *Accumulator) gap(ctx context.Context, st *FoldStats, kind, eventID, athleteID string, extra ...logger.Field) {
	st.Gaps++
	metrics.RecordValidationGap(kind)
	fields := append([]logger.Field{
		logger.String("gap", kind),
		logger.String("event_id", eventID),
		logger.String("athlete_id", athleteID),
	}, extra...)
	a.log.Debug(ctx, "validation gap tolerated", fields...)
}

// Len returns the number of athletes seen so far.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Get returns a copy of one athlete's record.
func (a *Accumulator) Get(externalID string) (model.FighterRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.records[externalID]
	if !ok {
		return model.FighterRecord{}, false
	}
	return rec.Clone(), true
}

// Records returns copies of every record ordered by external id.
func (a *Accumulator) Records() []model.FighterRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.FighterRecord, 0, len(a.records))
	for _, rec := range a.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}
