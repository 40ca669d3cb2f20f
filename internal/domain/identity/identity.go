// Package identity matches aggregated records to canonical profiles.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// KeyKind tells how a generated key was derived.
type KeyKind int

const (
	// Deterministic keys are name plus date of birth and reproduce across runs.
	Deterministic KeyKind = iota
	// Fallback keys carry a random suffix and differ on every call.
	Fallback
)

func (k KeyKind) String() string {
	if k == Fallback {
		return "fallback"
	}
	return "deterministic"
}

// Key is a generated profile id.
type Key struct {
	Value  string
	Kind   KeyKind
	Reason string
}

const fallbackDigits = 8

// dobLayouts are tried in order when parsing a date of birth.
var dobLayouts = []string{ //nolint:gochecknoglobals // fixed parse table
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"02.01.2006",
}

// GenerateID derives a profile id from name and date of birth: the
// upper-cased first and last name with all whitespace removed, followed by
// the date of birth as DDMMYYYY. A missing or unparseable date of birth
// yields an 8-digit random suffix read from rnd and a Fallback key.
func GenerateID(first, last, dob string, rnd io.Reader) (Key, error) {
	name := normalize(first) + normalize(last)
	if strings.TrimSpace(dob) == "" {
		return fallback(name, "date of birth missing", rnd)
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(dob)); err == nil {
			return Key{Value: name + t.Format("02012006"), Kind: Deterministic}, nil
		}
	}
	return fallback(name, fmt.Sprintf("date of birth %q unparseable", dob), rnd)
}

func fallback(name, reason string, rnd io.Reader) (Key, error) {
	var b strings.Builder
	b.WriteString(name)
	ten := big.NewInt(10)
	for i := 0; i < fallbackDigits; i++ {
		d, err := randInt(rnd, ten)
		if err != nil {
			return Key{}, fmt.Errorf("generate fallback id: %w", err)
		}
		b.WriteByte(byte('0' + d))
	}
	return Key{Value: b.String(), Kind: Fallback, Reason: reason}, nil
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// Status is the outcome of a resolution.
type Status int

const (
	// New means no canonical profile exists yet; Key is the id to create.
	New Status = iota
	// Matched means Profile is the existing canonical profile.
	Matched
)

func (s Status) String() string {
	if s == Matched {
		return "matched"
	}
	return "new"
}

// Resolution is the decision for one record.
type Resolution struct {
	Status  Status
	Key     string
	Profile model.CanonicalProfile
	// Generated is set when the key came from GenerateID.
	Generated *Key
}

// ProfileFinder is the read side of the canonical profile store.
type ProfileFinder interface {
	FindByExternalID(ctx context.Context, externalID string) ([]model.CanonicalProfile, error)
	FindByID(ctx context.Context, id string) (model.CanonicalProfile, error)
}

// Resolver matches records to profiles without side effects.
type Resolver struct {
	profiles ProfileFinder
	rand     io.Reader
	log      logger.Logger
}

// NewResolver creates a resolver over profiles.
func NewResolver(profiles ProfileFinder, opts ...Option) *Resolver {
	r := &Resolver{profiles: profiles, rand: defaultRand}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.NewNop()
	}
	return r
}

// Resolve looks the record up by external id, then by generated id.
// More than one profile sharing an external id is ErrDataIntegrity.
func (r *Resolver) Resolve(ctx context.Context, rec model.FighterRecord) (Resolution, error) {
	if rec.ExternalID != "" {
		found, err := r.profiles.FindByExternalID(ctx, rec.ExternalID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return Resolution{}, fmt.Errorf("find by external id %s: %w", rec.ExternalID, err)
		}
		switch len(found) {
		case 0:
		case 1:
			metrics.RecordIdentityResolution("matched")
			return Resolution{Status: Matched, Key: found[0].ID, Profile: found[0]}, nil
		default:
			return Resolution{}, fmt.Errorf("%w: %d profiles share external id %s", model.ErrDataIntegrity, len(found), rec.ExternalID)
		}
	}

	key, err := GenerateID(rec.FirstName, rec.LastName, rec.DateOfBirth, r.rand)
	if err != nil {
		return Resolution{}, err
	}
	if key.Kind == Fallback {
		metrics.RecordIdentityResolution("fallback")
		metrics.RecordValidationGap("date_of_birth")
		r.log.Warn(ctx, "non-deterministic profile id generated",
			logger.String("external_id", rec.ExternalID),
			logger.String("id", key.Value),
			logger.String("reason", key.Reason),
		)
	}

	p, err := r.profiles.FindByID(ctx, key.Value)
	switch {
	case err == nil:
		metrics.RecordIdentityResolution("matched")
		return Resolution{Status: Matched, Key: p.ID, Profile: p, Generated: &key}, nil
	case errors.Is(err, model.ErrNotFound):
		metrics.RecordIdentityResolution("new")
		return Resolution{Status: New, Key: key.Value, Generated: &key}, nil
	default:
		return Resolution{}, fmt.Errorf("find by id %s: %w", key.Value, err)
	}
}
