// Package delivery moves proactive messages to users: an in-process
// broadcaster feeds live subscribers (the websocket feed), and a worker
// drains the durable queue of deferred tasks.
package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

// Event is one delivered engagement, as seen by feed subscribers.
type Event struct {
	MessageID string                `json:"messageId"`
	UserID    string                `json:"userId"`
	Type      domain.EngagementType `json:"engagementType"`
	Message   string                `json:"message"`
	Metadata  map[string]any        `json:"metadata,omitempty"`
	SentAt    time.Time             `json:"sentAt"`
}

// subscriberBuffer bounds each subscriber's channel. A subscriber that
// falls this far behind starts losing events rather than blocking
// publishers.
const subscriberBuffer = 16

// Broadcaster fans delivered engagements out to live subscribers. It
// implements the immediate delivery path.
type Broadcaster struct {
	log *logging.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(log *logging.Logger) *Broadcaster {
	return &Broadcaster{
		log:  log.Sub("delivery"),
		subs: make(map[chan Event]struct{}),
	}
}

// Publish delivers a message now, fanning it out to all subscribers,
// and returns the generated message ID.
func (b *Broadcaster) Publish(_ context.Context, userID, message string, typ domain.EngagementType, metadata map[string]any) (string, error) {
	ev := Event{
		MessageID: uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Message:   message,
		Metadata:  metadata,
		SentAt:    time.Now(),
	}

	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber, drop rather than block the caller.
		}
	}
	b.mu.Unlock()

	b.log.Info().
		Str("messageId", ev.MessageID).
		Str("userId", userID).
		Str("type", string(typ)).
		Msg("engagement published")
	return ev.MessageID, nil
}

// Subscribe registers a feed subscriber. The returned cancel func must
// be called to release the subscription.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
