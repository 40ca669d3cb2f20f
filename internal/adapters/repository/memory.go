package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/ringside/internal/domain/batch"
	"github.com/okian/ringside/internal/domain/model"
)

// MemoryStore is an in-memory Store. A chunk is validated in full before any
// of it is applied, so a rejected chunk leaves the store untouched.
type MemoryStore struct {
	mu         sync.RWMutex
	profiles   map[string]model.CanonicalProfile
	byExternal map[string][]string
	ledger     map[string]model.ProcessedEvent
	order      []string
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		profiles:   make(map[string]model.CanonicalProfile),
		byExternal: make(map[string][]string),
		ledger:     make(map[string]model.ProcessedEvent),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// put stores p and indexes its external id. Callers hold the write lock.
func (s *MemoryStore) put(p model.CanonicalProfile) {
	prev, existed := s.profiles[p.ID]
	if existed && prev.ExternalID != p.ExternalID {
		s.unindex(prev.ExternalID, p.ID)
	}
	if p.ExternalID != "" && (!existed || prev.ExternalID != p.ExternalID) {
		s.byExternal[p.ExternalID] = append(s.byExternal[p.ExternalID], p.ID)
	}
	s.profiles[p.ID] = p.Clone()
}

func (s *MemoryStore) unindex(externalID, id string) {
	ids := s.byExternal[externalID]
	for i, v := range ids {
		if v == id {
			s.byExternal[externalID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byExternal[externalID]) == 0 {
		delete(s.byExternal, externalID)
	}
}

func (s *MemoryStore) FindByExternalID(_ context.Context, externalID string) ([]model.CanonicalProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byExternal[externalID]
	out := make([]model.CanonicalProfile, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.profiles[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (model.CanonicalProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return model.CanonicalProfile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) CommitBatch(ctx context.Context, creates []model.CanonicalProfile, updates []model.ProfileUpdate) error {
	return s.CommitChunk(ctx, batch.Chunk{Creates: creates, Updates: updates})
}

func (s *MemoryStore) ListProcessed(_ context.Context) ([]model.ProcessedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ProcessedEvent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.ledger[id])
	}
	return out, nil
}

func (s *MemoryStore) AppendProcessed(ctx context.Context, entries []model.ProcessedEvent) error {
	return s.CommitChunk(ctx, batch.Chunk{Processed: entries})
}

// CommitChunk applies creates, updates and ledger entries atomically.
func (s *MemoryStore) CommitChunk(_ context.Context, c batch.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[string]struct{}, len(c.Creates))
	for _, p := range c.Creates {
		if p.ID == "" {
			return fmt.Errorf("create: %w", ErrEmptyID)
		}
		if _, ok := s.profiles[p.ID]; ok {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, p.ID)
		}
		if _, ok := pending[p.ID]; ok {
			return fmt.Errorf("%w: %s created twice", ErrAlreadyExists, p.ID)
		}
		pending[p.ID] = struct{}{}
	}
	for _, u := range c.Updates {
		if _, ok := s.profiles[u.ID]; !ok {
			if _, created := pending[u.ID]; !created {
				return fmt.Errorf("update: %w: %s", ErrNotFound, u.ID)
			}
		}
	}
	for _, e := range c.Processed {
		if e.EventID == "" {
			return fmt.Errorf("ledger: %w", ErrEmptyID)
		}
	}

	now := s.now()
	for _, p := range c.Creates {
		s.put(p)
	}
	for _, u := range c.Updates {
		p := s.profiles[u.ID]
		model.ApplyUpdate(&p, u, now)
		s.put(p)
	}
	for _, e := range c.Processed {
		if _, ok := s.ledger[e.EventID]; ok {
			continue
		}
		s.ledger[e.EventID] = e
		s.order = append(s.order, e.EventID)
	}
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Profiles: len(s.profiles), Processed: len(s.ledger)}, nil
}

// Profiles returns every profile ordered by id.
func (s *MemoryStore) Profiles() []model.CanonicalProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CanonicalProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) Close() error { return nil }
