package model

import (
	"maps"
	"time"
)

// CanonicalProfile is the durable athlete record. The pipeline owns Stats and
// fills identity fields; Extra carries fields it never touches.
type CanonicalProfile struct {
	ID          string         `json:"id"`
	ExternalID  string         `json:"external_id,omitempty"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Gym         string         `json:"gym"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Age         int            `json:"age,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	DateOfBirth string         `json:"date_of_birth,omitempty"`
	Stats       *FightStats    `json:"fight_stats,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Clone returns a deep copy.
func (p CanonicalProfile) Clone() CanonicalProfile {
	out := p
	if p.Stats != nil {
		s := p.Stats.Clone()
		out.Stats = &s
	}
	out.Extra = maps.Clone(p.Extra)
	return out
}

// ProfileUpdate rewrites the namespaced stats of an existing profile.
// Name and gym overwrite when non-empty; contact and demographics only fill
// fields the stored profile leaves empty.
type ProfileUpdate struct {
	ID     string
	Record FighterRecord
}

// NewProfile builds the profile created on an athlete's first sighting.
func NewProfile(id string, rec FighterRecord, now time.Time) CanonicalProfile {
	stats := rec.FightStats.Clone()
	return CanonicalProfile{
		ID:          id,
		ExternalID:  rec.ExternalID,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		Gym:         rec.Gym,
		Email:       rec.Email,
		Phone:       rec.Phone,
		Age:         rec.Age,
		Gender:      rec.Gender,
		DateOfBirth: rec.DateOfBirth,
		Stats:       &stats,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyUpdate applies u to p in place.
func ApplyUpdate(p *CanonicalProfile, u ProfileUpdate, now time.Time) {
	r := u.Record
	if p.ExternalID == "" {
		p.ExternalID = r.ExternalID
	}
	overwrite(&p.FirstName, r.FirstName)
	overwrite(&p.LastName, r.LastName)
	overwrite(&p.Gym, r.Gym)
	fill(&p.Email, r.Email)
	fill(&p.Phone, r.Phone)
	fill(&p.Gender, r.Gender)
	fill(&p.DateOfBirth, r.DateOfBirth)
	if p.Age == 0 {
		p.Age = r.Age
	}
	stats := r.FightStats.Clone()
	p.Stats = &stats
	p.UpdatedAt = now
}

// Record projects a profile back into the aggregate shape. A profile without
// stats yields zero counters.
func (p CanonicalProfile) Record() FighterRecord {
	rec := FighterRecord{
		ExternalID:  p.ExternalID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Gym:         p.Gym,
		Email:       p.Email,
		Phone:       p.Phone,
		Age:         p.Age,
		Gender:      p.Gender,
		DateOfBirth: p.DateOfBirth,
	}
	if p.Stats != nil {
		rec.FightStats = p.Stats.Clone()
	}
	return rec
}

func overwrite(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
