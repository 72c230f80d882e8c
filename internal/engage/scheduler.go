// Package engage schedules proactive outbound messages. Near-term
// triggers are delivered immediately; everything else is queued for a
// background worker.
package engage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

// ImmediateSender pushes a message to the user right away.
type ImmediateSender interface {
	Publish(ctx context.Context, userID, message string, typ domain.EngagementType, metadata map[string]any) (string, error)
}

// DeferredSender queues a message for later delivery.
type DeferredSender interface {
	Enqueue(ctx context.Context, task domain.EngagementTask) (string, error)
}

// immediateCutoff is how far in the future a trigger may be and still
// count as "now".
const immediateCutoff = time.Minute

// defaultDefer is applied when no usable trigger time is given.
const defaultDefer = time.Hour

// Scheduler routes engagement requests to the right delivery path.
type Scheduler struct {
	immediate ImmediateSender
	deferred  DeferredSender
	log       *logging.Logger
	now       func() time.Time
}

// NewScheduler builds a scheduler over the two delivery paths.
func NewScheduler(immediate ImmediateSender, deferred DeferredSender, log *logging.Logger) *Scheduler {
	return &Scheduler{
		immediate: immediate,
		deferred:  deferred,
		log:       log.Sub("engage"),
		now:       time.Now,
	}
}

// Schedule resolves the trigger time and message, then delivers or
// queues the engagement. It reports failure through the result status
// rather than an error, and contains panics from delivery backends.
func (s *Scheduler) Schedule(ctx context.Context, req domain.EngagementRequest) (result domain.SchedulingResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Any("panic", r).Str("userId", req.UserID).Msg("engagement scheduling failed")
			result = domain.SchedulingResult{Status: "error", Message: fmt.Sprintf("scheduling failed: %v", r)}
		}
	}()

	trigger := s.resolveTrigger(req)
	message := req.Message
	if message == "" {
		message = generateMessage(req.Type, req.Metadata)
	}

	if !trigger.After(s.now().Add(immediateCutoff)) {
		id, err := s.immediate.Publish(ctx, req.UserID, message, req.Type, req.Metadata)
		if err != nil {
			s.log.Error().Err(err).Str("userId", req.UserID).Msg("immediate delivery failed")
			return domain.SchedulingResult{Status: "error", Message: err.Error()}
		}
		s.log.Info().Str("userId", req.UserID).Str("type", string(req.Type)).Msg("engagement delivered")
		return domain.SchedulingResult{
			Status:         "success",
			MessageID:      id,
			ScheduledTime:  trigger,
			DeliveryMethod: domain.DeliveryImmediate,
		}
	}

	id, err := s.deferred.Enqueue(ctx, domain.EngagementTask{
		UserID:    req.UserID,
		Type:      req.Type,
		Message:   message,
		TriggerAt: trigger,
		Metadata:  req.Metadata,
	})
	if err != nil {
		s.log.Error().Err(err).Str("userId", req.UserID).Msg("deferred enqueue failed")
		return domain.SchedulingResult{Status: "error", Message: err.Error()}
	}
	s.log.Info().
		Str("userId", req.UserID).
		Str("type", string(req.Type)).
		Time("triggerAt", trigger).
		Msg("engagement queued")
	return domain.SchedulingResult{
		Status:         "success",
		MessageID:      id,
		ScheduledTime:  trigger,
		DeliveryMethod: domain.DeliveryDeferred,
	}
}

// resolveTrigger picks the trigger time: the explicit time if set, then
// the raw string as RFC 3339, then as unix seconds. A missing or
// unparseable trigger is warned about and gets the default deferral.
func (s *Scheduler) resolveTrigger(req domain.EngagementRequest) time.Time {
	if !req.TriggerAt.IsZero() {
		return req.TriggerAt
	}
	if req.TriggerTimeRaw != "" {
		if ts, err := time.Parse(time.RFC3339, req.TriggerTimeRaw); err == nil {
			return ts
		}
		if secs, err := strconv.ParseInt(req.TriggerTimeRaw, 10, 64); err == nil {
			return time.Unix(secs, 0)
		}
	}
	s.log.Warn().
		Str("triggerTime", req.TriggerTimeRaw).
		Str("userId", req.UserID).
		Msg("missing or unparseable trigger time, deferring by default")
	return s.now().Add(defaultDefer)
}

// generateMessage renders the default message for an engagement type.
func generateMessage(typ domain.EngagementType, metadata map[string]any) string {
	name := "there"
	if v, ok := metadata["user_name"].(string); ok && v != "" {
		name = v
	}

	switch typ {
	case domain.EngagementWelcome:
		return fmt.Sprintf("Welcome to our service, %s! We're excited to have you on board.", name)
	case domain.EngagementFollowUp:
		return fmt.Sprintf("Hi %s, just following up on our conversation. Do you have any questions?", name)
	case domain.EngagementTip:
		tip := "Did you know you can..."
		if v, ok := metadata["tip"].(string); ok && v != "" {
			tip = v
		}
		return fmt.Sprintf("Pro tip, %s: %s", name, tip)
	case domain.EngagementPromotion:
		details := ""
		if v, ok := metadata["promo_details"].(string); ok {
			details = v
		}
		return fmt.Sprintf("%s, we have a special offer just for you! %s", name, details)
	case domain.EngagementAbandonedCart:
		return fmt.Sprintf("Hi %s, you left something in your cart! Complete your purchase now.", name)
	default:
		return fmt.Sprintf("Hello %s, we have an update for you!", name)
	}
}
