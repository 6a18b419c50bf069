package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// SQLiteProfileStore implements ProfileStore on SQLite. Each profile is one
// row in the user_profiles table; topic tags are stored as a JSON-encoded
// string array so insertion order survives the round trip.
//
// Atomicity of Upsert comes from a single INSERT … ON CONFLICT DO UPDATE
// statement; with the single-connection discipline used by the store
// package, concurrent writers to the same user ID are serialized by
// database/sql rather than fighting for SQLite write locks.
type SQLiteProfileStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteProfileStore creates a store backed by the given database
// connection. The caller must ensure the user_profiles table exists
// (migration 0001_user_profiles.sql). If logger is nil, the default slog
// logger is used.
func NewSQLiteProfileStore(db *sql.DB, logger *slog.Logger) *SQLiteProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteProfileStore{db: db, logger: logger}
}

// Get returns the stored profile for userID, or a zero profile when the
// user has not been seen. The zero profile is not written back.
func (s *SQLiteProfileStore) Get(ctx context.Context, userID string) (*Profile, error) {
	var (
		p          Profile
		topicsJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name_hint, topics, notes, interactions, last_seen
		FROM user_profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.NameHint, &topicsJSON, &p.Notes, &p.Interactions, &p.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return &Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile sqlite: query %s: %w", userID, err)
	}

	if topicsJSON.Valid && topicsJSON.String != "" {
		if err := json.Unmarshal([]byte(topicsJSON.String), &p.Topics); err != nil {
			// A malformed topics column loses the tags but not the user.
			s.logger.Warn("profile sqlite: discarding malformed topics", "user_id", userID, "err", err)
			p.Topics = nil
		}
	}

	return &p, nil
}

// Upsert atomically replaces-or-inserts the full profile for userID.
func (s *SQLiteProfileStore) Upsert(ctx context.Context, userID string, p *Profile) error {
	var topicsJSON []byte
	if len(p.Topics) > 0 {
		var err error
		topicsJSON, err = json.Marshal(p.Topics)
		if err != nil {
			return fmt.Errorf("profile sqlite: marshal topics: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, name_hint, topics, notes, interactions, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name_hint    = excluded.name_hint,
			topics       = excluded.topics,
			notes        = excluded.notes,
			interactions = excluded.interactions,
			last_seen    = excluded.last_seen`,
		userID, p.NameHint, topicsJSON, p.Notes, p.Interactions, p.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("profile sqlite: upsert %s: %w", userID, err)
	}

	s.logger.Debug("profile sqlite: upserted",
		"user_id", userID,
		"interactions", p.Interactions,
		"topics", len(p.Topics),
	)
	return nil
}

// Count returns the number of stored profiles. Used by the status endpoint.
func (s *SQLiteProfileStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("profile sqlite: count: %w", err)
	}
	return n, nil
}

// Compile-time interface satisfaction check.
var _ ProfileStore = (*SQLiteProfileStore)(nil)
