// Package archivestore keeps period archives in BadgerDB.
//
// Keys of one period share the prefix "archive:<period>:". The marker lives
// under "meta", records under "record:<external id>" and processed events
// under "event:<event id>". Values are JSON.
package archivestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/ringside/internal/domain/archive"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
)

const (
	keyPrefix    = "archive:"
	metaSuffix   = "meta"
	recordPrefix = "record:"
	eventPrefix  = "event:"
)

// Store reads and writes archives.
type Store struct {
	db         *badger.DB
	log        logger.Logger
	now        func() time.Time
	syncWrites bool
	closed     atomic.Bool
}

// Open opens (or creates) the database in dir. An empty dir keeps everything
// in memory.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}

	bopts := badger.DefaultOptions(dir)
	if dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts.SyncWrites = s.syncWrites
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open archive store: %w", err)
	}
	s.db = db
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func periodPrefix(period string) ([]byte, error) {
	if period == "" || strings.Contains(period, ":") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return []byte(keyPrefix + period + ":"), nil
}

// Load reads the archive of period. No key at all is Absent. Keys without a
// marker, or any value that does not decode, is model.ErrDataIntegrity.
func (s *Store) Load(ctx context.Context, period string) (archive.Lookup, error) {
	if s.closed.Load() {
		return archive.Lookup{}, ErrClosed
	}
	prefix, err := periodPrefix(period)
	if err != nil {
		return archive.Lookup{}, err
	}

	a := archive.Archive{Records: make(map[string]model.FighterRecord)}
	keys := 0
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys++
			item := it.Item()
			rest := string(item.Key()[len(prefix):])
			if err := item.Value(func(val []byte) error {
				return decodeInto(&a, rest, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return archive.Lookup{}, fmt.Errorf("load archive %s: %w", period, err)
	}

	if keys == 0 {
		return archive.NotStored(), nil
	}
	if a.Meta == nil {
		return archive.Lookup{}, fmt.Errorf("load archive %s: %w (%d keys stored)", period, archive.ErrMissingMeta, keys)
	}
	return archive.Found(a), nil
}

func decodeInto(a *archive.Archive, rest string, val []byte) error {
	switch {
	case rest == metaSuffix:
		var m archive.Meta
		if err := json.Unmarshal(val, &m); err != nil {
			return fmt.Errorf("%w: decode marker: %w", model.ErrDataIntegrity, err)
		}
		a.Meta = &m
	case strings.HasPrefix(rest, recordPrefix):
		var r model.FighterRecord
		if err := json.Unmarshal(val, &r); err != nil {
			return fmt.Errorf("%w: decode %s: %w", model.ErrDataIntegrity, rest, err)
		}
		a.Records[strings.TrimPrefix(rest, recordPrefix)] = r
	case strings.HasPrefix(rest, eventPrefix):
		var p model.ProcessedEvent
		if err := json.Unmarshal(val, &p); err != nil {
			return fmt.Errorf("%w: decode %s: %w", model.ErrDataIntegrity, rest, err)
		}
		a.Processed = append(a.Processed, p)
	default:
		return fmt.Errorf("%w: unexpected key %q", model.ErrDataIntegrity, rest)
	}
	return nil
}

// Save writes every record and processed event of a, then its marker.
// Records are upserted, never removed: archives only grow. The marker is
// written last so an interrupted first save reads back as an integrity error
// rather than as a partial archive.
func (s *Store) Save(ctx context.Context, a archive.Archive) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if a.Meta == nil {
		return fmt.Errorf("save archive: %w", archive.ErrMissingMeta)
	}
	prefix, err := periodPrefix(a.Meta.Period)
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for id, r := range a.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", id, err)
		}
		if err := wb.Set(key(prefix, recordPrefix+id), val); err != nil {
			return fmt.Errorf("write record %s: %w", id, err)
		}
	}
	for _, p := range a.Processed {
		val, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", p.EventID, err)
		}
		if err := wb.Set(key(prefix, eventPrefix+p.EventID), val); err != nil {
			return fmt.Errorf("write event %s: %w", p.EventID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush archive %s: %w", a.Meta.Period, err)
	}

	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(prefix, metaSuffix), meta)
	}); err != nil {
		return fmt.Errorf("write marker of %s: %w", a.Meta.Period, err)
	}

	s.log.Debug(ctx, "archive saved",
		logger.String("period", a.Meta.Period),
		logger.Int("records", len(a.Records)),
		logger.Int("events", len(a.Processed)),
	)
	return nil
}

// Freeze marks the archive of period read-only. A missing archive is
// model.ErrNotFound.
func (s *Store) Freeze(ctx context.Context, period string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	prefix, err := periodPrefix(period)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(prefix, metaSuffix))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("archive %s: %w", period, model.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get marker of %s: %w", period, err)
		}
		var m archive.Meta
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		}); err != nil {
			return fmt.Errorf("%w: decode marker of %s: %w", model.ErrDataIntegrity, period, err)
		}
		if m.Frozen {
			return nil
		}
		m.Frozen = true
		m.UpdatedAt = s.now()
		val, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode marker: %w", err)
		}
		s.log.Info(ctx, "archive frozen", logger.String("period", period))
		return txn.Set(key(prefix, metaSuffix), val)
	})
}

func key(prefix []byte, rest string) []byte {
	out := make([]byte, 0, len(prefix)+len(rest))
	out = append(out, prefix...)
	return append(out, rest...)
}
