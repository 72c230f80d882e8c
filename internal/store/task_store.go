package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/deskflow/internal/domain"
)

// Engagement task lifecycle states.
const (
	TaskPending = "pending"
	TaskSent    = "sent"
	TaskFailed  = "failed"
)

// SQLiteTaskStore is the durable queue for deferred engagements.
type SQLiteTaskStore struct {
	db *DB
}

// NewSQLiteTaskStore creates a task store using the given database.
func NewSQLiteTaskStore(db *DB) *SQLiteTaskStore {
	return &SQLiteTaskStore{db: db}
}

// Enqueue stores a pending task and returns its ID.
func (s *SQLiteTaskStore) Enqueue(ctx context.Context, task domain.EngagementTask) (string, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	var metadata sql.NullString
	if len(task.Metadata) > 0 {
		if data, err := json.Marshal(task.Metadata); err == nil {
			metadata = sql.NullString{String: string(data), Valid: true}
		}
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO engagement_tasks (id, user_id, type, message, trigger_at, metadata, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, string(task.Type), task.Message,
		task.TriggerAt.UTC().Format(time.DateTime), metadata, TaskPending,
		time.Now().Format(time.DateTime),
	)
	if err != nil {
		return "", fmt.Errorf("enqueueing task: %w", err)
	}
	return task.ID, nil
}

// Due returns pending tasks whose trigger time is at or before now.
func (s *SQLiteTaskStore) Due(ctx context.Context, now time.Time, limit int) ([]domain.EngagementTask, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, user_id, type, message, trigger_at, metadata, status, created_at
		 FROM engagement_tasks
		 WHERE status = ? AND trigger_at <= ?
		 ORDER BY trigger_at LIMIT ?`,
		TaskPending, now.UTC().Format(time.DateTime), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying due tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.EngagementTask
	for rows.Next() {
		var (
			task      domain.EngagementTask
			typ       string
			triggerAt string
			metadata  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&task.ID, &task.UserID, &typ, &task.Message, &triggerAt, &metadata, &task.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		task.Type = domain.EngagementType(typ)
		task.TriggerAt, _ = time.Parse(time.DateTime, triggerAt)
		task.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		if metadata.Valid && metadata.String != "" {
			_ = json.Unmarshal([]byte(metadata.String), &task.Metadata)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// MarkSent records successful delivery of a task.
func (s *SQLiteTaskStore) MarkSent(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, TaskSent)
}

// MarkFailed records a failed delivery attempt.
func (s *SQLiteTaskStore) MarkFailed(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, TaskFailed)
}

func (s *SQLiteTaskStore) setStatus(ctx context.Context, id, status string) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE engagement_tasks SET status = ? WHERE id = ?`, status, id,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
