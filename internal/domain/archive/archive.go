// Package archive merges period archives of fighter records.
//
// A historical archive is frozen; the current-period archive keeps growing as
// runs fold new events. Merging sums counters, unions weight classes and
// events, and concatenates fights under the newest-first ordering contract of
// model.FightStats.
package archive

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/ringside/internal/domain/model"
)

// Meta is the required marker of an archive. Data without a marker is
// unreadable, never "empty".
type Meta struct {
	Period    string    `json:"period"`
	Frozen    bool      `json:"frozen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Archive is a period's records keyed by external id, plus the events folded into it.
type Archive struct {
	Meta      *Meta
	Records   map[string]model.FighterRecord
	Processed []model.ProcessedEvent
}

// New returns an empty archive with a fresh marker.
func New(period string, now time.Time) Archive {
	return Archive{
		Meta:    &Meta{Period: period, CreatedAt: now, UpdatedAt: now},
		Records: make(map[string]model.FighterRecord),
	}
}

// Sorted returns the records ordered by external id.
func (a Archive) Sorted() []model.FighterRecord {
	out := make([]model.FighterRecord, 0, len(a.Records))
	for _, r := range a.Records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

// State distinguishes "nothing stored yet" from a readable archive.
type State int

const (
	// Absent means no key of the archive exists.
	Absent State = iota
	// Present means the marker was found and every record decoded.
	Present
)

func (s State) String() string {
	if s == Present {
		return "present"
	}
	return "absent"
}

// Lookup is the result of reading an archive from storage. Unreadable data is
// reported as an error wrapping model.ErrDataIntegrity, not as a Lookup.
type Lookup struct {
	State   State
	Archive Archive
}

// Found wraps a readable archive.
func Found(a Archive) Lookup { return Lookup{State: Present, Archive: a} }

// NotStored is the Absent lookup.
func NotStored() Lookup { return Lookup{State: Absent} }

// OrEmpty returns the stored archive or a fresh one for period.
func (l Lookup) OrEmpty(period string, now time.Time) Archive {
	if l.State == Present {
		return l.Archive
	}
	return New(period, now)
}

// Merge combines the historical and current archives. Both must carry a
// marker. Athletes found in one archive pass through with UpdatedAt set to now.
func Merge(historical, current Archive, now time.Time) (Archive, error) {
	if historical.Meta == nil {
		return Archive{}, fmt.Errorf("%w: historical archive", ErrMissingMeta)
	}
	if current.Meta == nil {
		return Archive{}, fmt.Errorf("%w: current archive", ErrMissingMeta)
	}

	out := Archive{
		Meta: &Meta{
			Period:    historical.Meta.Period + "+" + current.Meta.Period,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Records:   make(map[string]model.FighterRecord, len(historical.Records)+len(current.Records)),
		Processed: model.UnionProcessed(historical.Processed, current.Processed),
	}
	for id, h := range historical.Records {
		if c, ok := current.Records[id]; ok {
			out.Records[id] = MergeRecords(h, c, now)
			continue
		}
		r := h.Clone()
		r.UpdatedAt = now
		out.Records[id] = r
	}
	for id, c := range current.Records {
		if _, ok := historical.Records[id]; ok {
			continue
		}
		r := c.Clone()
		r.UpdatedAt = now
		out.Records[id] = r
	}
	return out, nil
}

// MergeRecords combines two records of one athlete; older holds the earlier
// data, newer the later. Counters and skills are summed, weight classes and
// events unioned, and fights concatenated then ordered newest first. Name and
// gym come from newer when set; contact and demographics keep older's values
// when set.
func MergeRecords(older, newer model.FighterRecord, now time.Time) model.FighterRecord {
	out := older.Clone()
	if out.ExternalID == "" {
		out.ExternalID = newer.ExternalID
	}
	for _, f := range []struct {
		dst *string
		v   string
	}{{&out.FirstName, newer.FirstName}, {&out.LastName, newer.LastName}, {&out.Gym, newer.Gym}} {
		if f.v != "" {
			*f.dst = f.v
		}
	}
	for _, f := range []struct {
		dst *string
		v   string
	}{{&out.Email, newer.Email}, {&out.Phone, newer.Phone}, {&out.Gender, newer.Gender}, {&out.DateOfBirth, newer.DateOfBirth}} {
		if *f.dst == "" {
			*f.dst = f.v
		}
	}
	if out.Age == 0 {
		out.Age = newer.Age
	}

	n := newer.Clone()
	out.Tally = out.Tally.Add(n.Tally)
	out.Skills = model.SumSkills(out.Skills, n.Skills)
	out.WeightClasses = model.UnionWeightClasses(out.WeightClasses, n.WeightClasses)
	out.Fights = model.ConcatFights(out.Fights, n.Fights)
	out.Events = model.UnionEvents(out.Events, n.Events)
	out.RefreshKeywords()
	out.UpdatedAt = now
	return out
}

// Fold merges freshly aggregated records and their ledger drafts into a.
// The marker's UpdatedAt moves to now.
func Fold(a Archive, records []model.FighterRecord, processed []model.ProcessedEvent, now time.Time) (Archive, error) {
	if a.Meta == nil {
		return Archive{}, fmt.Errorf("%w: folding into archive", ErrMissingMeta)
	}
	if a.Meta.Frozen {
		return Archive{}, fmt.Errorf("%w: %s", ErrFrozen, a.Meta.Period)
	}
	meta := *a.Meta
	meta.UpdatedAt = now
	out := Archive{
		Meta:      &meta,
		Records:   make(map[string]model.FighterRecord, len(a.Records)+len(records)),
		Processed: model.UnionProcessed(a.Processed, processed),
	}
	for id, r := range a.Records {
		out.Records[id] = r
	}
	for _, r := range records {
		if prev, ok := out.Records[r.ExternalID]; ok {
			out.Records[r.ExternalID] = MergeRecords(prev, r, now)
			continue
		}
		c := r.Clone()
		c.UpdatedAt = now
		out.Records[r.ExternalID] = c
	}
	return out, nil
}
