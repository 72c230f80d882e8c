package engage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

type memImmediate struct {
	published []string
	err       error
	panicWith any
}

func (m *memImmediate) Publish(_ context.Context, _, message string, _ domain.EngagementType, _ map[string]any) (string, error) {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.err != nil {
		return "", m.err
	}
	m.published = append(m.published, message)
	return "imm-1", nil
}

type memDeferred struct {
	tasks []domain.EngagementTask
	err   error
}

func (m *memDeferred) Enqueue(_ context.Context, task domain.EngagementTask) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.tasks = append(m.tasks, task)
	return "def-1", nil
}

func testScheduler(imm *memImmediate, def *memDeferred) *Scheduler {
	s := NewScheduler(imm, def, logging.New(nil, "silent"))
	s.now = func() time.Time { return time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestScheduleImmediate(t *testing.T) {
	imm := &memImmediate{}
	def := &memDeferred{}
	s := testScheduler(imm, def)

	res := s.Schedule(context.Background(), domain.EngagementRequest{
		UserID:    "u1",
		Type:      domain.EngagementWelcome,
		TriggerAt: time.Date(2026, 8, 26, 12, 0, 30, 0, time.UTC),
		Metadata:  map[string]any{"user_name": "Dana"},
	})

	assert.Equal(t, "success", res.Status)
	assert.Equal(t, domain.DeliveryImmediate, res.DeliveryMethod)
	assert.Equal(t, "imm-1", res.MessageID)
	require.Len(t, imm.published, 1)
	assert.Equal(t, "Welcome to our service, Dana! We're excited to have you on board.", imm.published[0])
	assert.Empty(t, def.tasks)
}

func TestScheduleDeferred(t *testing.T) {
	imm := &memImmediate{}
	def := &memDeferred{}
	s := testScheduler(imm, def)

	trigger := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	res := s.Schedule(context.Background(), domain.EngagementRequest{
		UserID:    "u1",
		Type:      domain.EngagementFollowUp,
		TriggerAt: trigger,
	})

	assert.Equal(t, "success", res.Status)
	assert.Equal(t, domain.DeliveryDeferred, res.DeliveryMethod)
	assert.Equal(t, trigger, res.ScheduledTime)
	require.Len(t, def.tasks, 1)
	assert.Equal(t, "Hi there, just following up on our conversation. Do you have any questions?", def.tasks[0].Message)
	assert.Empty(t, imm.published)
}

func TestScheduleExplicitMessageKept(t *testing.T) {
	imm := &memImmediate{}
	s := testScheduler(imm, &memDeferred{})

	res := s.Schedule(context.Background(), domain.EngagementRequest{
		UserID:  "u1",
		Type:    domain.EngagementGeneral,
		Message: "Custom text.",
	})

	// No trigger at all defaults an hour out, so this is deferred.
	assert.Equal(t, domain.DeliveryDeferred, res.DeliveryMethod)
}

func TestResolveTrigger(t *testing.T) {
	s := testScheduler(&memImmediate{}, &memDeferred{})
	base := s.now()

	explicit := base.Add(2 * time.Hour)
	assert.Equal(t, explicit, s.resolveTrigger(domain.EngagementRequest{TriggerAt: explicit}))

	got := s.resolveTrigger(domain.EngagementRequest{TriggerTimeRaw: "2026-08-27T09:00:00Z"})
	assert.Equal(t, time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC), got)

	got = s.resolveTrigger(domain.EngagementRequest{TriggerTimeRaw: "1790000000"})
	assert.Equal(t, time.Unix(1790000000, 0), got)

	got = s.resolveTrigger(domain.EngagementRequest{TriggerTimeRaw: "next tuesday"})
	assert.Equal(t, base.Add(time.Hour), got)

	got = s.resolveTrigger(domain.EngagementRequest{})
	assert.Equal(t, base.Add(time.Hour), got)
}

func TestScheduleMissingTriggerWarns(t *testing.T) {
	var buf bytes.Buffer
	def := &memDeferred{}
	s := NewScheduler(&memImmediate{}, def, logging.New(&buf, "warn"))
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	res := s.Schedule(context.Background(), domain.EngagementRequest{
		UserID: "u1",
		Type:   domain.EngagementWelcome,
	})

	assert.Equal(t, "success", res.Status)
	assert.Equal(t, domain.DeliveryDeferred, res.DeliveryMethod)
	assert.Equal(t, now.Add(defaultDefer), res.ScheduledTime)
	assert.Contains(t, buf.String(), "trigger time")
}

func TestGenerateMessageTemplates(t *testing.T) {
	md := map[string]any{"user_name": "Dana"}

	tests := []struct {
		typ      domain.EngagementType
		metadata map[string]any
		want     string
	}{
		{domain.EngagementWelcome, md, "Welcome to our service, Dana! We're excited to have you on board."},
		{domain.EngagementFollowUp, nil, "Hi there, just following up on our conversation. Do you have any questions?"},
		{domain.EngagementTip, map[string]any{"user_name": "Dana", "tip": "shortcuts save time"}, "Pro tip, Dana: shortcuts save time"},
		{domain.EngagementTip, md, "Pro tip, Dana: Did you know you can..."},
		{domain.EngagementPromotion, map[string]any{"user_name": "Dana", "promo_details": "20% off this week."}, "Dana, we have a special offer just for you! 20% off this week."},
		{domain.EngagementAbandonedCart, md, "Hi Dana, you left something in your cart! Complete your purchase now."},
		{domain.EngagementGeneral, nil, "Hello there, we have an update for you!"},
		{domain.EngagementType("unlisted"), nil, "Hello there, we have an update for you!"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, generateMessage(tc.typ, tc.metadata), string(tc.typ))
	}
}

func TestScheduleDeliveryError(t *testing.T) {
	imm := &memImmediate{err: errors.New("socket closed")}
	s := testScheduler(imm, &memDeferred{})

	res := s.Schedule(context.Background(), domain.EngagementRequest{
		UserID:    "u1",
		Type:      domain.EngagementWelcome,
		TriggerAt: s.now(),
	})
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "socket closed", res.Message)
}

func TestScheduleEnqueueError(t *testing.T) {
	s := testScheduler(&memImmediate{}, &memDeferred{err: errors.New("queue full")})

	res := s.Schedule(context.Background(), domain.EngagementRequest{
		UserID:    "u1",
		Type:      domain.EngagementTip,
		TriggerAt: s.now().Add(3 * time.Hour),
	})
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "queue full", res.Message)
}

func TestSchedulePanicContained(t *testing.T) {
	imm := &memImmediate{panicWith: "broken channel"}
	s := testScheduler(imm, &memDeferred{})

	res := s.Schedule(context.Background(), domain.EngagementRequest{
		UserID:    "u1",
		Type:      domain.EngagementWelcome,
		TriggerAt: s.now(),
	})
	assert.Equal(t, "error", res.Status)
	assert.Contains(t, res.Message, "broken channel")
}
