// Package fixtures generates synthetic event result stores for local runs.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ringside/internal/adapters/resultstore"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
)

// ErrInvalidConfig rejects configurations that cannot produce bouts.
var ErrInvalidConfig = errors.New("invalid fixture config")

const (
	week          = 7 * 24 * time.Hour
	maxSkillValue = 12
)

// Pools the roster and catalog draw from.
//
//nolint:gochecknoglobals // fixed vocabularies
var (
	firstNames   = []string{"Ana", "Bruno", "Carla", "Diego", "Elena", "Felipe", "Gabi", "Hugo", "Iris", "Joao", "Kenji", "Lara"}
	lastNames    = []string{"Silva", "Santos", "Costa", "Ito", "Moreno", "Okafor", "Novak", "Reyes", "Lindqvist", "Haddad", "Mendes", "Park"}
	gyms         = []string{"Iron Lotus", "North Shore BJJ", "Copacabana Fight Team", "Riverside Grappling", "Atlas Combat Club"}
	eventNames   = []string{"Spring Open", "Summer Classic", "Autumn Cup", "Winter Invitational", "City Championship", "Club Night"}
	weightLimits = []int{57, 61, 66, 70, 77, 84, 93}
	rosterNS     = uuid.MustParse("6f1d7c0e-5b1a-4c7e-9a43-2f8e3b6d9c10")
)

type athlete struct {
	id, first, last, gym, gender, dob string
	age, weight                       int
}

// Generate builds a fixture. The output depends only on cfg.
func Generate(ctx context.Context, cfg Config) (resultstore.Fixture, Stats, error) {
	start := time.Now()
	if cfg.Events < 0 || cfg.Athletes < 2 || cfg.BoutsPerEvent < 1 {
		return resultstore.Fixture{}, Stats{}, fmt.Errorf("%w: need at least 2 athletes and 1 bout per event", ErrInvalidConfig)
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible synthetic data

	roster := make([]athlete, cfg.Athletes)
	for i := range roster {
		roster[i] = newAthlete(rng, cfg, i)
	}

	stats := Stats{Events: cfg.Events, Athletes: cfg.Athletes}
	fx := resultstore.Fixture{Events: make([]resultstore.FixtureEvent, 0, cfg.Events)}
	for i := 0; i < cfg.Events; i++ {
		if err := ctx.Err(); err != nil {
			return resultstore.Fixture{}, stats, fmt.Errorf("fixture generation cancelled: %w", err)
		}
		ev := model.Event{
			ID:   "evt-" + strconv.Itoa(i+1),
			Name: eventNames[rng.IntN(len(eventNames))] + " " + strconv.Itoa(cfg.Start.Year()),
			Date: cfg.Start.Add(-time.Duration(i) * week),
		}
		fe := resultstore.FixtureEvent{Event: ev}
		if rng.Float64() >= cfg.MissingRatio {
			fe.Results = bouts(rng, cfg, roster)
			stats.WithResults++
			stats.Results += len(fe.Results)
		}
		fx.Events = append(fx.Events, fe)
	}
	stats.Duration = time.Since(start)

	logger.Get().Info(ctx, "fixture generated",
		logger.Int("events", stats.Events),
		logger.Int("with_results", stats.WithResults),
		logger.Int("results", stats.Results),
		logger.Duration("took", stats.Duration),
	)
	return fx, stats, nil
}

func newAthlete(rng *rand.Rand, cfg Config, i int) athlete {
	a := athlete{
		id:     uuid.NewSHA1(rosterNS, []byte(strconv.FormatUint(cfg.Seed, 10)+":"+strconv.Itoa(i))).String(),
		first:  firstNames[rng.IntN(len(firstNames))],
		last:   lastNames[rng.IntN(len(lastNames))],
		gym:    gyms[rng.IntN(len(gyms))],
		gender: []string{"F", "M"}[rng.IntN(2)],
		weight: weightLimits[rng.IntN(len(weightLimits))],
	}
	birth := cfg.Start.AddDate(-18-rng.IntN(20), -rng.IntN(12), -rng.IntN(28))
	a.age = cfg.Start.Year() - birth.Year()
	if rng.Float64() >= cfg.NoDOBRatio {
		a.dob = birth.Format("2006-01-02")
	}
	return a
}

func bouts(rng *rand.Rand, cfg Config, roster []athlete) []model.FighterResult {
	out := make([]model.FighterResult, 0, 2*cfg.BoutsPerEvent)
	for b := 0; b < cfg.BoutsPerEvent; b++ {
		i := rng.IntN(len(roster))
		j := rng.IntN(len(roster) - 1)
		if j >= i {
			j++
		}
		category := model.CategoryRegular
		if rng.Float64() < cfg.TournamentRatio {
			category = model.CategoryTournament
		}
		first, second := outcomes(rng)
		// Athletes occasionally move up a class.
		wc := roster[i].weight
		if roster[j].weight > wc {
			wc = roster[j].weight
		}
		out = append(out,
			result(rng, roster[i], roster[j].id, first, category, wc),
			result(rng, roster[j], roster[i].id, second, category, wc),
		)
	}
	return out
}

func outcomes(rng *rand.Rand) (model.Outcome, model.Outcome) {
	switch n := rng.IntN(20); {
	case n == 0:
		return model.OutcomeNoContest, model.OutcomeNoContest
	case n == 1:
		return model.OutcomeDisqualified, model.OutcomeWin
	case n < 11:
		return model.OutcomeWin, model.OutcomeLoss
	default:
		return model.OutcomeLoss, model.OutcomeWin
	}
}

func result(rng *rand.Rand, a athlete, opponent string, o model.Outcome, category string, wc int) model.FighterResult {
	skills := make(map[string]int, len(model.SkillNames))
	for _, name := range model.SkillNames {
		skills[name] = rng.IntN(maxSkillValue)
	}
	return model.FighterResult{
		ExternalID:  a.id,
		FirstName:   a.first,
		LastName:    a.last,
		Gym:         a.gym,
		Result:      string(o),
		Category:    category,
		WeightClass: wc,
		OpponentID:  opponent,
		Skills:      skills,
		Age:         a.age,
		Gender:      a.gender,
		DateOfBirth: a.dob,
	}
}
