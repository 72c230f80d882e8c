package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/deskflow/internal/domain"
)

// SQLiteProfileStore persists user profiles.
type SQLiteProfileStore struct {
	db *DB
}

// NewSQLiteProfileStore creates a profile store using the given database.
func NewSQLiteProfileStore(db *DB) *SQLiteProfileStore {
	return &SQLiteProfileStore{db: db}
}

// GetOrCreate returns the profile for userID, inserting a default one
// with empty preferences when the user is new.
func (s *SQLiteProfileStore) GetOrCreate(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := s.get(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	profile = &domain.UserProfile{
		UserID:      userID,
		Preferences: map[string]string{},
		CreatedAt:   time.Now(),
	}
	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO users (user_id, preferences, created_at) VALUES (?, '{}', ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, profile.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	return profile, nil
}

// UpdatePreferences merges prefs into the stored preferences and
// returns the updated profile. The user is created if absent.
func (s *SQLiteProfileStore) UpdatePreferences(ctx context.Context, userID string, prefs map[string]string) (*domain.UserProfile, error) {
	profile, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if profile.Preferences == nil {
		profile.Preferences = map[string]string{}
	}
	for k, v := range prefs {
		profile.Preferences[k] = v
	}

	data, err := json.Marshal(profile.Preferences)
	if err != nil {
		return nil, fmt.Errorf("encoding preferences: %w", err)
	}
	_, err = s.db.sql.ExecContext(ctx,
		`UPDATE users SET preferences = ? WHERE user_id = ?`,
		string(data), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating preferences: %w", err)
	}
	return profile, nil
}

func (s *SQLiteProfileStore) get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var (
		profile      domain.UserProfile
		prefsJSON    string
		metadataJSON sql.NullString
		createdAt    string
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT user_id, preferences, metadata, created_at FROM users WHERE user_id = ?`,
		userID,
	).Scan(&profile.UserID, &prefsJSON, &metadataJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	profile.Preferences = map[string]string{}
	_ = json.Unmarshal([]byte(prefsJSON), &profile.Preferences)
	if metadataJSON.Valid && metadataJSON.String != "" {
		_ = json.Unmarshal([]byte(metadataJSON.String), &profile.Metadata)
	}
	profile.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return &profile, nil
}
