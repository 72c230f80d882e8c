// Package knowledge answers informational questions. A real backend can
// be plugged in through Provider; without one, a small canned-answer
// table keeps the conversation moving.
package knowledge

import (
	"context"
	"strings"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

// Answer is a knowledge lookup result.
type Answer struct {
	AnswerText string          `json:"answer"`
	Confidence float64         `json:"confidence"`
	Sources    []domain.Source `json:"sources,omitempty"`
}

// Provider is a knowledge backend.
type Provider interface {
	Answer(ctx context.Context, query string, filters map[string]string) (Answer, error)
}

// fallbackEntry maps trigger keywords to a canned answer.
type fallbackEntry struct {
	keywords []string
	answer   string
}

var fallbackTable = []fallbackEntry{
	{[]string{"how to", "how do i"},
		"Please check our help center at https://support.example.com for detailed instructions."},
	{[]string{"contact", "support", "help"},
		"You can reach our support team at support@example.com or call us at 1-800-EXAMPLE."},
	{[]string{"pricing", "cost", "how much"},
		"For the most up-to-date pricing information, please visit our pricing page at https://example.com/pricing."},
	{[]string{"refund", "return", "cancel"},
		"For refund and return requests, please contact our support team with your order number."},
}

const (
	fallbackDefault = "I'm having trouble accessing the knowledge base. Please try again later or contact support for assistance."
	fallbackEmpty   = "I didn't receive a question to look up. How can I help you?"
)

// FallbackAnswer returns a canned answer for the query. It is used when
// no provider is configured or the provider fails.
func FallbackAnswer(query string) Answer {
	if strings.TrimSpace(query) == "" {
		return Answer{AnswerText: fallbackEmpty, Confidence: 0}
	}

	q := strings.ToLower(query)
	for _, entry := range fallbackTable {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return Answer{AnswerText: entry.answer, Confidence: 0.6}
			}
		}
	}
	return Answer{AnswerText: fallbackDefault, Confidence: 0.3}
}

// Service wraps an optional Provider with the canned fallback.
type Service struct {
	provider Provider
	log      *logging.Logger
}

// NewService builds a knowledge service. provider may be nil.
func NewService(provider Provider, log *logging.Logger) *Service {
	return &Service{provider: provider, log: log.Sub("knowledge")}
}

// Answer queries the provider and falls back to canned answers when the
// provider is missing or errors. It never fails.
func (s *Service) Answer(ctx context.Context, query string, filters map[string]string) Answer {
	if strings.TrimSpace(query) == "" {
		return FallbackAnswer(query)
	}
	if s.provider == nil {
		return FallbackAnswer(query)
	}

	ans, err := s.provider.Answer(ctx, query, filters)
	if err != nil {
		s.log.Warn().Err(err).Msg("knowledge provider failed, using fallback")
		return FallbackAnswer(query)
	}
	return ans
}
