package model

import "strings"

// Outcome is a bout outcome code.
type Outcome string

// Known outcome codes.
const (
	OutcomeWin          Outcome = "W"
	OutcomeLoss         Outcome = "L"
	OutcomeNoContest    Outcome = "NC"
	OutcomeDisqualified Outcome = "DQ"
)

// ParseOutcome normalizes a raw code. ok is false for unrecognized codes.
func ParseOutcome(raw string) (Outcome, bool) {
	switch o := Outcome(strings.ToUpper(strings.TrimSpace(raw))); o {
	case OutcomeWin, OutcomeLoss, OutcomeNoContest, OutcomeDisqualified:
		return o, true
	default:
		return o, false
	}
}

// Bout categories.
const (
	CategoryRegular    = "regular"
	CategoryTournament = "tournament"
)

// IsTournament reports whether category tags a tournament bout.
func IsTournament(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), CategoryTournament)
}

// SkillNames lists the skill tallies every result document may carry.
var SkillNames = []string{ //nolint:gochecknoglobals // fixed vocabulary
	"strikes_landed",
	"strikes_attempted",
	"takedowns",
	"takedown_attempts",
	"submissions",
	"submission_attempts",
	"knockdowns",
	"sweeps",
	"guard_passes",
	"penalties",
}

// FighterResult is one athlete's outcome in one bout, as reported by the result store.
type FighterResult struct {
	ExternalID  string         `json:"id"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Gym         string         `json:"gym"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Result      string         `json:"result"`
	Category    string         `json:"category"`
	WeightClass int            `json:"weight_class"`
	OpponentID  string         `json:"opponent_id,omitempty"`
	Skills      map[string]int `json:"skills,omitempty"`
	Age         int            `json:"age,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	DateOfBirth string         `json:"date_of_birth,omitempty"`
}

// SkillTallies returns every known skill with missing values defaulted to 0.
// Unknown skill names reported by the store are kept as-is.
func (r FighterResult) SkillTallies() map[string]int {
	out := make(map[string]int, len(SkillNames)+len(r.Skills))
	for _, name := range SkillNames {
		out[name] = 0
	}
	for name, v := range r.Skills {
		out[name] = v
	}
	return out
}
