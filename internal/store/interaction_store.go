package store

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/deskflow/internal/domain"
)

// SQLiteInteractionStore persists the per-user interaction log.
type SQLiteInteractionStore struct {
	db *DB
}

// NewSQLiteInteractionStore creates an interaction store using the given database.
func NewSQLiteInteractionStore(db *DB) *SQLiteInteractionStore {
	return &SQLiteInteractionStore{db: db}
}

// Append records one interaction.
func (s *SQLiteInteractionStore) Append(ctx context.Context, in domain.Interaction) error {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO interactions (user_id, session_id, message, intent, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		in.UserID, in.SessionID, in.Message, in.Intent, ts.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("appending interaction: %w", err)
	}
	return nil
}

// RecentByUser returns up to limit interactions for a user, newest first.
func (s *SQLiteInteractionStore) RecentByUser(ctx context.Context, userID string, limit int) ([]domain.Interaction, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, user_id, session_id, message, intent, timestamp
		 FROM interactions WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var (
			in domain.Interaction
			ts string
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.SessionID, &in.Message, &in.Intent, &ts); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		in.Timestamp, _ = time.Parse(time.DateTime, ts)
		out = append(out, in)
	}
	return out, rows.Err()
}
