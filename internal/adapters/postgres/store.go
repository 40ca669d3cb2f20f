// Package postgres stores canonical profiles and the processed-event ledger in PostgreSQL.
//
// A chunk commits in one transaction. The pipeline's statistics live in the
// fight_stats jsonb column; extra is never written by updates.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/batch"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
)

const uniqueViolation = "23505"

const profileColumns = `id, COALESCE(external_id, ''), first_name, last_name, gym, email, phone,
	age, gender, date_of_birth, fight_stats, extra, created_at, updated_at`

const insertProfileSQL = `INSERT INTO athlete_profiles
	(id, external_id, first_name, last_name, gym, email, phone, age, gender, date_of_birth, fight_stats, extra, created_at, updated_at)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

// Name and gym overwrite when given; contact and demographics only fill blanks.
const updateProfileSQL = `UPDATE athlete_profiles SET
	external_id   = COALESCE(external_id, NULLIF($2, '')),
	first_name    = COALESCE(NULLIF($3, ''), first_name),
	last_name     = COALESCE(NULLIF($4, ''), last_name),
	gym           = COALESCE(NULLIF($5, ''), gym),
	email         = CASE WHEN email = '' THEN $6 ELSE email END,
	phone         = CASE WHEN phone = '' THEN $7 ELSE phone END,
	age           = CASE WHEN age = 0 THEN $8 ELSE age END,
	gender        = CASE WHEN gender = '' THEN $9 ELSE gender END,
	date_of_birth = CASE WHEN date_of_birth = '' THEN $10 ELSE date_of_birth END,
	fight_stats   = $11,
	updated_at    = $12
	WHERE id = $1`

const insertProcessedSQL = `INSERT INTO processed_events (event_id, name, event_date, processed_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (event_id) DO NOTHING`

// Store implements repository.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
	log  logger.Logger
}

var _ repository.Store = (*Store)(nil)

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return New(pool, opts...)
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres store: pool is nil")
	}
	s := &Store{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) FindByExternalID(ctx context.Context, externalID string) ([]model.CanonicalProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM athlete_profiles WHERE external_id = $1 ORDER BY id`, externalID)
	if err != nil {
		return nil, fmt.Errorf("query profiles by external id: %w", err)
	}
	defer rows.Close()

	var out []model.CanonicalProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (model.CanonicalProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM athlete_profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CanonicalProfile{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return p, err
}

func scanProfile(row pgx.Row) (model.CanonicalProfile, error) {
	var (
		p            model.CanonicalProfile
		stats, extra []byte
	)
	err := row.Scan(&p.ID, &p.ExternalID, &p.FirstName, &p.LastName, &p.Gym, &p.Email, &p.Phone,
		&p.Age, &p.Gender, &p.DateOfBirth, &stats, &extra, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan profile: %w", err)
	}
	if len(stats) > 0 {
		var fs model.FightStats
		if err := json.Unmarshal(stats, &fs); err != nil {
			return p, fmt.Errorf("%w: profile %s fight_stats: %w", model.ErrDataIntegrity, p.ID, err)
		}
		p.Stats = &fs
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &p.Extra); err != nil {
			return p, fmt.Errorf("%w: profile %s extra: %w", model.ErrDataIntegrity, p.ID, err)
		}
	}
	return p, nil
}

func (s *Store) CommitBatch(ctx context.Context, creates []model.CanonicalProfile, updates []model.ProfileUpdate) error {
	return s.CommitChunk(ctx, batch.Chunk{Creates: creates, Updates: updates})
}

func (s *Store) ListProcessed(ctx context.Context) ([]model.ProcessedEvent, error) {
	rows, err := s.pool.Query(ctx, `SELECT event_id, name, COALESCE(event_date, 'epoch'::timestamptz), processed_at
		FROM processed_events ORDER BY processed_at, event_id`)
	if err != nil {
		return nil, fmt.Errorf("query processed events: %w", err)
	}
	defer rows.Close()

	var out []model.ProcessedEvent
	for rows.Next() {
		var e model.ProcessedEvent
		if err := rows.Scan(&e.EventID, &e.Name, &e.Date, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan processed event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AppendProcessed(ctx context.Context, entries []model.ProcessedEvent) error {
	return s.CommitChunk(ctx, batch.Chunk{Processed: entries})
}

// CommitChunk writes the whole chunk in one transaction.
func (s *Store) CommitChunk(ctx context.Context, c batch.Chunk) error {
	if c.Len() == 0 {
		return nil
	}
	now := s.now()
	b := &pgx.Batch{}
	for _, p := range c.Creates {
		stats, extra, err := encodeProfile(p)
		if err != nil {
			return err
		}
		created := p.CreatedAt
		if created.IsZero() {
			created = now
		}
		b.Queue(insertProfileSQL, p.ID, p.ExternalID, p.FirstName, p.LastName, p.Gym, p.Email, p.Phone,
			p.Age, p.Gender, p.DateOfBirth, stats, extra, created)
	}
	for _, u := range c.Updates {
		r := u.Record
		stats, err := json.Marshal(r.FightStats)
		if err != nil {
			return fmt.Errorf("encode fight stats of %s: %w", u.ID, err)
		}
		b.Queue(updateProfileSQL, u.ID, r.ExternalID, r.FirstName, r.LastName, r.Gym, r.Email, r.Phone,
			r.Age, r.Gender, r.DateOfBirth, stats, now)
	}
	for _, e := range c.Processed {
		processed := e.ProcessedAt
		if processed.IsZero() {
			processed = now
		}
		b.Queue(insertProcessedSQL, e.EventID, e.Name, e.Date, processed)
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, b)
		if err := drain(br, c); err != nil {
			_ = br.Close()
			return err
		}
		return br.Close()
	})
	if err != nil {
		return err
	}
	s.log.Debug(ctx, "chunk committed",
		logger.Int("creates", len(c.Creates)),
		logger.Int("updates", len(c.Updates)),
		logger.Int("ledgered", len(c.Processed)),
	)
	return nil
}

func drain(br pgx.BatchResults, c batch.Chunk) error {
	for _, p := range c.Creates {
		if _, err := br.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: %s", repository.ErrAlreadyExists, p.ID)
			}
			return fmt.Errorf("insert profile %s: %w", p.ID, err)
		}
	}
	for _, u := range c.Updates {
		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("update profile %s: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update: %w: %s", repository.ErrNotFound, u.ID)
		}
	}
	for _, e := range c.Processed {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("ledger event %s: %w", e.EventID, err)
		}
	}
	return nil
}

func encodeProfile(p model.CanonicalProfile) ([]byte, []byte, error) {
	var stats []byte
	if p.Stats != nil {
		b, err := json.Marshal(p.Stats)
		if err != nil {
			return nil, nil, fmt.Errorf("encode fight stats of %s: %w", p.ID, err)
		}
		stats = b
	}
	extra := []byte(`{}`)
	if len(p.Extra) > 0 {
		b, err := json.Marshal(p.Extra)
		if err != nil {
			return nil, nil, fmt.Errorf("encode extra of %s: %w", p.ID, err)
		}
		extra = b
	}
	return stats, extra, nil
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (repository.Stats, error) {
	var st repository.Stats
	err := s.pool.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM athlete_profiles),
		(SELECT count(*) FROM processed_events)`).Scan(&st.Profiles, &st.Processed)
	if err != nil {
		return st, fmt.Errorf("count rows: %w", err)
	}
	return st, nil
}
