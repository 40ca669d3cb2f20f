package model

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"time"
)

// Tally holds the outcome counters of one athlete.
type Tally struct {
	Wins              int `json:"wins"`
	Losses            int `json:"losses"`
	NoContests        int `json:"no_contests"`
	Disqualifications int `json:"disqualifications"`
	TournamentWins    int `json:"tournament_wins"`
	TournamentLosses  int `json:"tournament_losses"`
}

// Add returns the field-wise sum of t and o.
func (t Tally) Add(o Tally) Tally {
	return Tally{
		Wins:              t.Wins + o.Wins,
		Losses:            t.Losses + o.Losses,
		NoContests:        t.NoContests + o.NoContests,
		Disqualifications: t.Disqualifications + o.Disqualifications,
		TournamentWins:    t.TournamentWins + o.TournamentWins,
		TournamentLosses:  t.TournamentLosses + o.TournamentLosses,
	}
}

// Fight is an immutable snapshot of one bout.
type Fight struct {
	EventID     string         `json:"event_id"`
	EventName   string         `json:"event_name"`
	EventDate   time.Time      `json:"event_date"`
	Result      Outcome        `json:"result"`
	WeightClass int            `json:"weight_class"`
	OpponentID  string         `json:"opponent_id,omitempty"`
	Category    string         `json:"category"`
	Skills      map[string]int `json:"skills,omitempty"`
}

// FightStats is the namespaced block of a canonical profile owned by this pipeline.
//
// Fights are ordered by event date, newest first. Combining two lists
// concatenates them and stable-sorts by date, so fights sharing a date keep
// their concatenation order.
type FightStats struct {
	Tally
	Skills        map[string]int `json:"skills"`
	WeightClasses []int          `json:"weight_classes"`
	Fights        []Fight        `json:"fights"`
	Events        []Event        `json:"events"`
	Keywords      []string       `json:"keywords"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Clone returns a deep copy.
func (s FightStats) Clone() FightStats {
	out := s
	out.Skills = maps.Clone(s.Skills)
	out.WeightClasses = slices.Clone(s.WeightClasses)
	out.Keywords = slices.Clone(s.Keywords)
	out.Events = slices.Clone(s.Events)
	if s.Fights != nil {
		out.Fights = make([]Fight, len(s.Fights))
		for i, f := range s.Fights {
			f.Skills = maps.Clone(f.Skills)
			out.Fights[i] = f
		}
	}
	return out
}

// FighterRecord is the in-memory aggregate of one athlete for one run.
type FighterRecord struct {
	ExternalID  string `json:"external_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Gym         string `json:"gym"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	FightStats
}

// Clone returns a deep copy.
func (r FighterRecord) Clone() FighterRecord {
	out := r
	out.FightStats = r.FightStats.Clone()
	return out
}

// RefreshKeywords recomputes the search keywords from name and gym.
func (r *FighterRecord) RefreshKeywords() {
	r.Keywords = Keywords(r.FirstName, r.LastName, r.Gym)
}

// Keywords lower-cases and whitespace-tokenizes parts, dropping duplicates.
// The result keeps first-appearance order.
func Keywords(parts ...string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, tok := range strings.Fields(strings.ToLower(p)) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}

// InsertWeightClass adds wc when absent and returns the list sorted ascending.
func InsertWeightClass(list []int, wc int) []int {
	idx, found := slices.BinarySearch(list, wc)
	if found {
		return list
	}
	return slices.Insert(list, idx, wc)
}

// UnionWeightClasses returns the sorted, de-duplicated union of a and b.
func UnionWeightClasses(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// UnionEvents returns a followed by the events of b not already present by id.
func UnionEvents(a, b []Event) []Event {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]Event, 0, len(a)+len(b))
	for _, list := range [][]Event{a, b} {
		for _, e := range list {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// ConcatFights concatenates a and b and stable-sorts by event date, newest first.
func ConcatFights(a, b []Fight) []Fight {
	out := make([]Fight, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EventDate.After(out[j].EventDate)
	})
	return out
}

// SumSkills adds every tally of b into a copy of a.
func SumSkills(a, b map[string]int) map[string]int {
	out := make(map[string]int, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}
