package domain

import "time"

// EngagementType categorizes a proactive outbound message.
type EngagementType string

const (
	EngagementWelcome       EngagementType = "welcome"
	EngagementFollowUp      EngagementType = "follow_up"
	EngagementTip           EngagementType = "tip"
	EngagementPromotion     EngagementType = "promotion"
	EngagementAbandonedCart EngagementType = "abandoned_cart"
	EngagementGeneral       EngagementType = "general"
)

// EngagementRequest asks the scheduler to deliver a proactive message.
// When Message is empty one is generated from the type and metadata.
// TriggerAt takes precedence over TriggerTimeRaw; when both are unset
// (or the raw form is unparseable) delivery defaults to one hour out.
type EngagementRequest struct {
	UserID         string         `json:"userId"`
	Type           EngagementType `json:"engagementType"`
	Message        string         `json:"message,omitempty"`
	TriggerAt      time.Time      `json:"triggerAt,omitzero"`
	TriggerTimeRaw string         `json:"triggerTime,omitempty"` // RFC 3339 or unix-seconds string
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Delivery methods for a scheduled engagement.
const (
	DeliveryImmediate = "immediate"
	DeliveryDeferred  = "deferred"
)

// SchedulingResult reports how an engagement request was handled.
type SchedulingResult struct {
	Status         string    `json:"status"` // "success" | "error"
	MessageID      string    `json:"messageId,omitempty"`
	ScheduledTime  time.Time `json:"scheduledTime,omitzero"`
	DeliveryMethod string    `json:"deliveryMethod,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// EngagementTask is the durable record of a deferred delivery.
type EngagementTask struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      EngagementType `json:"engagementType"`
	Message   string         `json:"message"`
	TriggerAt time.Time      `json:"triggerAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Status    string         `json:"status"` // "pending" | "sent" | "failed"
	CreatedAt time.Time      `json:"createdAt"`
}
