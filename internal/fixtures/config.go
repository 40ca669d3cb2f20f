package fixtures

import "time"

// Config controls the synthetic result store a Generator produces.
type Config struct {
	Events          int       // Number of events to generate
	Athletes        int       // Size of the athlete roster
	BoutsPerEvent   int       // Bouts per event with a result document
	MissingRatio    float64   // Share of events left without a result document
	TournamentRatio float64   // Share of bouts in the tournament category
	NoDOBRatio      float64   // Share of athletes without a date of birth
	Start           time.Time // Date of the newest event; older events step back a week
	Seed            uint64    // Same seed, same fixture
}

// DefaultConfig returns a small, varied configuration.
func DefaultConfig() Config {
	return Config{
		Events:          52,
		Athletes:        120,
		BoutsPerEvent:   12,
		MissingRatio:    0.05,
		TournamentRatio: 0.25,
		NoDOBRatio:      0.05,
		Start:           time.Now().UTC().Truncate(24 * time.Hour),
		Seed:            1,
	}
}

// Stats describes a generated fixture.
type Stats struct {
	Events      int
	WithResults int
	Results     int
	Athletes    int
	Duration    time.Duration
}
