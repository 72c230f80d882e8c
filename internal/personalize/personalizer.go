// Package personalize rewrites outbound responses using stored user
// preferences and recent interaction history.
package personalize

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

// ProfileStore supplies user preference data.
type ProfileStore interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// InteractionStore records exchanges and serves recent ones back.
type InteractionStore interface {
	Append(ctx context.Context, in domain.Interaction) error
	RecentByUser(ctx context.Context, userID string, limit int) ([]domain.Interaction, error)
}

// recentLimit bounds how many past interactions the personalizer reads.
const recentLimit = 5

// Personalizer applies profile- and history-based rewrites to responses.
type Personalizer struct {
	profiles     ProfileStore
	interactions InteractionStore
	log          *logging.Logger
	now          func() time.Time
}

// New builds a personalizer. Either store may be nil, in which case the
// corresponding rewrites are skipped.
func New(profiles ProfileStore, interactions InteractionStore, log *logging.Logger) *Personalizer {
	return &Personalizer{
		profiles:     profiles,
		interactions: interactions,
		log:          log.Sub("personalize"),
		now:          time.Now,
	}
}

// Personalize rewrites message for the user and logs the interaction.
// Store failures degrade to the unmodified message; they never surface
// as errors.
func (p *Personalizer) Personalize(ctx context.Context, userID, sessionID, message, intent string) string {
	var profile *domain.UserProfile
	if p.profiles != nil {
		var err error
		profile, err = p.profiles.GetOrCreate(ctx, userID)
		if err != nil {
			p.log.Warn().Err(err).Str("userId", userID).Msg("profile lookup failed")
		}
	}

	var recent []domain.Interaction
	if p.interactions != nil {
		var err error
		recent, err = p.interactions.RecentByUser(ctx, userID, recentLimit)
		if err != nil {
			p.log.Warn().Err(err).Str("userId", userID).Msg("interaction lookup failed")
		}

		if err := p.interactions.Append(ctx, domain.Interaction{
			UserID:    userID,
			SessionID: sessionID,
			Message:   message,
			Intent:    intent,
			Timestamp: p.now(),
		}); err != nil {
			p.log.Warn().Err(err).Str("userId", userID).Msg("interaction append failed")
		}
	}

	return Apply(message, profile, recent, intent, p.now())
}

// Apply performs the personalization rewrites in order: name prefix,
// follow-up framing, then time-of-day greeting. It is pure so the rules
// are testable without stores.
func Apply(message string, profile *domain.UserProfile, recent []domain.Interaction, intent string, now time.Time) string {
	out := message

	if name := profile.DisplayName(); name != "" &&
		!strings.Contains(strings.ToLower(out), strings.ToLower(name)) {
		out = name + ", " + lowerFirst(out)
	}

	if len(recent) > 0 && intent != "" && recent[0].Intent == intent {
		out = "To follow up on our previous conversation, " + strings.ToLower(out)
	}

	// Keyed on the incoming message, not the rewritten text, so a name
	// or follow-up prefix does not suppress the greeting.
	if startsWithGreeting(message) {
		out = timeGreeting(now.Hour()) + " " + out
	}

	return out
}

func startsWithGreeting(s string) bool {
	lower := strings.ToLower(s)
	for _, g := range []string{"hi", "hello", "hey"} {
		if strings.HasPrefix(lower, g) {
			return true
		}
	}
	return false
}

func timeGreeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good morning!"
	case hour >= 12 && hour < 17:
		return "Good afternoon!"
	case hour >= 17 && hour < 22:
		return "Good evening!"
	default:
		return "Hello!"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
