package postgres

import "context"

// Truncate empties every table owned by the store.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE athlete_profiles, processed_events")
	return err
}
