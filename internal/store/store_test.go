package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"users", "interactions", "escalations", "engagement_tasks"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

// --- Profile store tests ---

func TestProfileStore_GetOrCreate(t *testing.T) {
	s := NewSQLiteProfileStore(testDB(t))
	ctx := context.Background()

	p, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Empty(t, p.Preferences)

	// Second call returns the stored row, not a fresh insert.
	again, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", again.UserID)
}

func TestProfileStore_UpdatePreferences(t *testing.T) {
	s := NewSQLiteProfileStore(testDB(t))
	ctx := context.Background()

	p, err := s.UpdatePreferences(ctx, "u1", map[string]string{"name": "Dana"})
	require.NoError(t, err)
	assert.Equal(t, "Dana", p.Preferences["name"])

	// Merge, not replace.
	p, err = s.UpdatePreferences(ctx, "u1", map[string]string{"language": "en"})
	require.NoError(t, err)
	assert.Equal(t, "Dana", p.Preferences["name"])
	assert.Equal(t, "en", p.Preferences["language"])

	stored, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Dana", stored.Preferences["name"])
	assert.Equal(t, "en", stored.Preferences["language"])
}

// --- Interaction store tests ---

func TestInteractionStore_AppendAndRecent(t *testing.T) {
	s := NewSQLiteInteractionStore(testDB(t))
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		err := s.Append(ctx, domain.Interaction{
			UserID:    "u1",
			SessionID: "s1",
			Message:   msg,
			Intent:    "billing",
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.Append(ctx, domain.Interaction{UserID: "u2", Message: "other user"}))

	recent, err := s.RecentByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Message)
	assert.Equal(t, "second", recent[1].Message)
	assert.Equal(t, "billing", recent[0].Intent)
	assert.False(t, recent[0].Timestamp.IsZero())
}

func TestInteractionStore_RecentEmpty(t *testing.T) {
	s := NewSQLiteInteractionStore(testDB(t))
	recent, err := s.RecentByUser(context.Background(), "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

// --- Escalation store tests ---

func TestEscalationStore_CreateAndGet(t *testing.T) {
	s := NewSQLiteEscalationStore(testDB(t))
	ctx := context.Background()

	rec, err := s.Create(ctx, domain.EscalationRecord{
		UserID:         "u1",
		SessionID:      "s1",
		Reason:         "Negative sentiment detected",
		Priority:       domain.PriorityHigh,
		SuggestedAgent: "customer_relations",
		Snapshot: []domain.ConversationTurn{
			{Role: domain.RoleUser, Content: "this is terrible and useless"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.EscalationPending, rec.Status)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	require.Len(t, got.Snapshot, 1)
	assert.Equal(t, "this is terrible and useless", got.Snapshot[0].Content)
	assert.Nil(t, got.ResolvedAt)
}

func TestEscalationStore_List(t *testing.T) {
	s := NewSQLiteEscalationStore(testDB(t))
	ctx := context.Background()

	_, err := s.Create(ctx, domain.EscalationRecord{UserID: "u1", Reason: "r1", Priority: domain.PriorityHigh})
	require.NoError(t, err)
	_, err = s.Create(ctx, domain.EscalationRecord{UserID: "u2", Reason: "r2", Priority: domain.PriorityMedium})
	require.NoError(t, err)

	all, err := s.List(ctx, "", "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	high, err := s.List(ctx, domain.EscalationPending, domain.PriorityHigh, 10)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "u1", high[0].UserID)

	none, err := s.List(ctx, domain.EscalationResolved, "", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEscalationStore_UpdateStatus(t *testing.T) {
	s := NewSQLiteEscalationStore(testDB(t))
	ctx := context.Background()

	rec, err := s.Create(ctx, domain.EscalationRecord{UserID: "u1", Reason: "r", Priority: domain.PriorityMedium})
	require.NoError(t, err)

	got, err := s.UpdateStatus(ctx, rec.ID, domain.EscalationInProgress, "agent-7", "")
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationInProgress, got.Status)
	assert.Equal(t, "agent-7", got.AssignedAgent)
	assert.Nil(t, got.ResolvedAt)

	got, err = s.UpdateStatus(ctx, rec.ID, domain.EscalationResolved, "", "fixed on the phone")
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationResolved, got.Status)
	assert.Equal(t, "agent-7", got.AssignedAgent)
	assert.Equal(t, "fixed on the phone", got.ResolutionNotes)
	require.NotNil(t, got.ResolvedAt)
}

func TestEscalationStore_UpdateMissing(t *testing.T) {
	s := NewSQLiteEscalationStore(testDB(t))
	_, err := s.UpdateStatus(context.Background(), "missing", domain.EscalationResolved, "", "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

// --- Task store tests ---

func TestTaskStore_EnqueueAndDue(t *testing.T) {
	s := NewSQLiteTaskStore(testDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	dueID, err := s.Enqueue(ctx, domain.EngagementTask{
		UserID:    "u1",
		Type:      domain.EngagementFollowUp,
		Message:   "checking in",
		TriggerAt: now.Add(-time.Minute),
		Metadata:  map[string]any{"follow_up_type": "product_interest"},
	})
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, domain.EngagementTask{
		UserID:    "u1",
		Type:      domain.EngagementTip,
		Message:   "later",
		TriggerAt: now.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	due, err := s.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, dueID, due[0].ID)
	assert.Equal(t, domain.EngagementFollowUp, due[0].Type)
	assert.Equal(t, "product_interest", due[0].Metadata["follow_up_type"])
}

func TestTaskStore_MarkSent(t *testing.T) {
	s := NewSQLiteTaskStore(testDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := s.Enqueue(ctx, domain.EngagementTask{
		UserID:    "u1",
		Type:      domain.EngagementWelcome,
		Message:   "hi",
		TriggerAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)

	require.NoError(t, s.MarkSent(ctx, id))

	due, err := s.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestTaskStore_MarkFailedMissing(t *testing.T) {
	s := NewSQLiteTaskStore(testDB(t))
	err := s.MarkFailed(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
