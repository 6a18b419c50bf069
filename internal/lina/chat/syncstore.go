package chat

// syncstore.go implements mautrix.SyncStore on top of the bot's SQLite
// database. The /sync next_batch token survives restarts, so the bot
// resumes where it left off instead of re-answering messages it already
// handled in a previous run.

import (
	"context"
	"database/sql"
	"errors"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var _ mautrix.SyncStore = (*dbSyncStore)(nil)

// dbSyncStore keeps one row per bot account in matrix_sync_state with
// the filter ID and next_batch token as columns.
type dbSyncStore struct {
	db *sql.DB
}

func newDBSyncStore(db *sql.DB) *dbSyncStore {
	return &dbSyncStore{db: db}
}

func (s *dbSyncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.saveColumn(ctx, userID, "filter_id", filterID)
}

// LoadFilterID returns ("", nil) when no filter has been saved yet.
func (s *dbSyncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.loadColumn(ctx, userID, "filter_id")
}

func (s *dbSyncStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.saveColumn(ctx, userID, "next_batch", nextBatchToken)
}

// LoadNextBatch returns ("", nil) on the first run, which tells mautrix
// to start a fresh sync.
func (s *dbSyncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.loadColumn(ctx, userID, "next_batch")
}

// saveColumn upserts the row for userID, touching only the named column.
// The column name is one of two compile-time constants above, never user
// input, so string concatenation is safe here.
func (s *dbSyncStore) saveColumn(ctx context.Context, userID id.UserID, column, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_sync_state (user_id, `+column+`, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(user_id) DO UPDATE SET
			`+column+` = excluded.`+column+`,
			updated_at = excluded.updated_at
	`, userID.String(), value)
	return err
}

func (s *dbSyncStore) loadColumn(ctx context.Context, userID id.UserID, column string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT `+column+` FROM matrix_sync_state WHERE user_id = ?
	`, userID.String()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
