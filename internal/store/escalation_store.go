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

// SQLiteEscalationStore persists escalation records for the human
// support queue.
type SQLiteEscalationStore struct {
	db *DB
}

// NewSQLiteEscalationStore creates an escalation store using the given database.
func NewSQLiteEscalationStore(db *DB) *SQLiteEscalationStore {
	return &SQLiteEscalationStore{db: db}
}

// Create inserts a new escalation record. A missing ID or status is
// filled in; the stored record is returned.
func (s *SQLiteEscalationStore) Create(ctx context.Context, rec domain.EscalationRecord) (domain.EscalationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = domain.EscalationPending
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	var snapshot sql.NullString
	if len(rec.Snapshot) > 0 {
		if data, err := json.Marshal(rec.Snapshot); err == nil {
			snapshot = sql.NullString{String: string(data), Valid: true}
		}
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO escalations
		 (id, user_id, session_id, status, reason, priority, suggested_agent, assigned_agent, resolution_notes, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.SessionID, rec.Status, rec.Reason, string(rec.Priority),
		rec.SuggestedAgent, rec.AssignedAgent, rec.ResolutionNotes, snapshot,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return domain.EscalationRecord{}, fmt.Errorf("creating escalation: %w", err)
	}
	return rec, nil
}

// Get returns one escalation by ID.
func (s *SQLiteEscalationStore) Get(ctx context.Context, id string) (domain.EscalationRecord, error) {
	rows, err := s.db.sql.QueryContext(ctx, selectEscalation+` WHERE id = ?`, id)
	if err != nil {
		return domain.EscalationRecord{}, fmt.Errorf("querying escalation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.EscalationRecord{}, err
		}
		return domain.EscalationRecord{}, sql.ErrNoRows
	}
	return scanEscalation(rows)
}

// List returns escalations filtered by status and, optionally, priority.
// Empty filters match everything. Results are newest first.
func (s *SQLiteEscalationStore) List(ctx context.Context, status string, priority domain.Priority, limit int) ([]domain.EscalationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := selectEscalation + ` WHERE 1=1`
	args := []any{}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if priority != "" && priority != domain.PriorityNone {
		query += ` AND priority = ?`
		args = append(args, string(priority))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing escalations: %w", err)
	}
	defer rows.Close()

	var out []domain.EscalationRecord
	for rows.Next() {
		rec, err := scanEscalation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateStatus moves an escalation to a new lifecycle state, optionally
// assigning an agent and notes. Reaching "resolved" stamps resolved_at.
func (s *SQLiteEscalationStore) UpdateStatus(ctx context.Context, id, status, assignedAgent, notes string) (domain.EscalationRecord, error) {
	now := time.Now()

	query := `UPDATE escalations SET status = ?, updated_at = ?`
	args := []any{status, now.Format(time.DateTime)}
	if assignedAgent != "" {
		query += `, assigned_agent = ?`
		args = append(args, assignedAgent)
	}
	if notes != "" {
		query += `, resolution_notes = ?`
		args = append(args, notes)
	}
	if status == domain.EscalationResolved {
		query += `, resolved_at = ?`
		args = append(args, now.Format(time.DateTime))
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := s.db.sql.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.EscalationRecord{}, fmt.Errorf("updating escalation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.EscalationRecord{}, sql.ErrNoRows
	}
	return s.Get(ctx, id)
}

const selectEscalation = `
	SELECT id, user_id, session_id, status, reason, priority, suggested_agent,
	       assigned_agent, resolution_notes, snapshot, created_at, updated_at, resolved_at
	FROM escalations`

func scanEscalation(rows *sql.Rows) (domain.EscalationRecord, error) {
	var (
		rec        domain.EscalationRecord
		priority   string
		snapshot   sql.NullString
		createdAt  string
		updatedAt  string
		resolvedAt sql.NullString
	)
	err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.SessionID, &rec.Status, &rec.Reason, &priority,
		&rec.SuggestedAgent, &rec.AssignedAgent, &rec.ResolutionNotes, &snapshot,
		&createdAt, &updatedAt, &resolvedAt,
	)
	if err != nil {
		return domain.EscalationRecord{}, fmt.Errorf("scanning escalation: %w", err)
	}

	rec.Priority = domain.Priority(priority)
	if snapshot.Valid && snapshot.String != "" {
		_ = json.Unmarshal([]byte(snapshot.String), &rec.Snapshot)
	}
	rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	if resolvedAt.Valid {
		if ts, err := time.Parse(time.DateTime, resolvedAt.String); err == nil {
			rec.ResolvedAt = &ts
		}
	}
	return rec, nil
}
