package escalate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

func testEvaluator(t *testing.T, cfg Config) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator(cfg, logging.New(nil, "silent"))
	require.NoError(t, err)
	return ev
}

func turn(role domain.Role, content string, md map[string]any) domain.ConversationTurn {
	return domain.ConversationTurn{Role: role, Content: content, Timestamp: time.Now(), Metadata: md}
}

func TestNewEvaluatorDefaults(t *testing.T) {
	ev := testEvaluator(t, Config{})
	assert.Equal(t, []string{
		"multiple_unsuccessful_attempts",
		"high_priority_keywords",
		"sentiment_escalation",
		"explicit_escalation_request",
	}, ev.Rules())
}

func TestNewEvaluatorUnknownRule(t *testing.T) {
	_, err := NewEvaluator(Config{Rules: []string{"no_such_rule"}}, logging.New(nil, "silent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_rule")
}

func TestEvaluateNoMatch(t *testing.T) {
	ev := testEvaluator(t, Config{})
	dec := ev.Evaluate(Input{UserID: "u1", Message: "what are your opening hours?"}, nil)
	assert.False(t, dec.NeedsEscalation)
	assert.Equal(t, domain.PriorityNone, dec.Priority)
	assert.Empty(t, dec.Rule)
}

func TestEvaluateHighPriorityPhrase(t *testing.T) {
	ev := testEvaluator(t, Config{})
	dec := ev.Evaluate(Input{UserID: "u1", Message: "This is URGENT, my site is down"}, nil)
	require.True(t, dec.NeedsEscalation)
	assert.Equal(t, "high_priority_keywords", dec.Rule)
	assert.Equal(t, domain.PriorityHigh, dec.Priority)
	assert.Equal(t, "senior_support", dec.SuggestedAgent)
	assert.Equal(t, "High-priority phrase detected: this is urgent", dec.Reason)
}

func TestEvaluateSentiment(t *testing.T) {
	ev := testEvaluator(t, Config{})

	// Two distinct negative words.
	dec := ev.Evaluate(Input{Message: "this is terrible and the support is useless"}, nil)
	require.True(t, dec.NeedsEscalation)
	assert.Equal(t, "sentiment_escalation", dec.Rule)
	assert.Equal(t, "customer_relations", dec.SuggestedAgent)
	assert.Equal(t, "Negative sentiment detected", dec.Reason)

	// One negative word plus repeated exclamation marks.
	dec = ev.Evaluate(Input{Message: "I am so frustrated!! nothing helps"}, nil)
	require.True(t, dec.NeedsEscalation)
	assert.Equal(t, "sentiment_escalation", dec.Rule)

	// One negative word, one exclamation mark: not enough.
	dec = ev.Evaluate(Input{Message: "a bit frustrated! but ok"}, nil)
	assert.False(t, dec.NeedsEscalation)
}

func TestEvaluateExplicitRequest(t *testing.T) {
	ev := testEvaluator(t, Config{Rules: []string{"explicit_escalation_request"}})
	dec := ev.Evaluate(Input{Message: "please connect me with an agent"}, nil)
	require.True(t, dec.NeedsEscalation)
	assert.Equal(t, "explicit_escalation_request", dec.Rule)
	assert.Equal(t, "customer_service", dec.SuggestedAgent)
	assert.Equal(t, "User explicitly requested human assistance", dec.Reason)
}

func TestEvaluateUnsuccessfulAttempts(t *testing.T) {
	ev := testEvaluator(t, Config{MaxAttempts: 3})

	failed := map[string]any{"unsuccessful": true}
	window := []domain.ConversationTurn{
		turn(domain.RoleUser, "it still does not help", nil),
		turn(domain.RoleAssistant, "have you tried restarting?", failed),
		turn(domain.RoleAssistant, "maybe clear the cache", failed),
	}

	dec := ev.Evaluate(Input{Message: "still broken"}, window)
	require.True(t, dec.NeedsEscalation)
	assert.Equal(t, "multiple_unsuccessful_attempts", dec.Rule)
	assert.Equal(t, domain.PriorityMedium, dec.Priority)
	assert.Equal(t, "customer_service", dec.SuggestedAgent)
	assert.Equal(t, "User has had 3 unsuccessful attempts", dec.Reason)
}

func TestEvaluateUnsuccessfulAttemptsOutsideWindow(t *testing.T) {
	ev := testEvaluator(t, Config{MaxAttempts: 3})

	failed := map[string]any{"unsuccessful": true}
	// The failed turns fall outside the trailing three turns.
	window := []domain.ConversationTurn{
		turn(domain.RoleAssistant, "try this", failed),
		turn(domain.RoleAssistant, "or that", failed),
		turn(domain.RoleUser, "ok", nil),
		turn(domain.RoleAssistant, "great", nil),
		turn(domain.RoleUser, "thanks", nil),
	}

	dec := ev.Evaluate(Input{Message: "one more question"}, window)
	assert.False(t, dec.NeedsEscalation)
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	ev := testEvaluator(t, Config{})

	// Matches both high_priority_keywords and explicit_escalation_request;
	// the earlier rule in the order must win.
	dec := ev.Evaluate(Input{Message: "I want to speak to a human"}, nil)
	require.True(t, dec.NeedsEscalation)
	assert.Equal(t, "high_priority_keywords", dec.Rule)
	assert.Equal(t, "senior_support", dec.SuggestedAgent)
}

func TestEvaluatePanickingRuleIsSkipped(t *testing.T) {
	ev := testEvaluator(t, Config{Rules: []string{"sentiment_escalation"}})
	ev.rules = append([]Rule{{
		Name:            "broken",
		DefaultPriority: domain.PriorityLow,
		Condition: func(Input, []domain.ConversationTurn) domain.RuleOutcome {
			panic("boom")
		},
	}}, ev.rules...)

	dec := ev.Evaluate(Input{Message: "this is horrible and useless"}, nil)
	require.True(t, dec.NeedsEscalation)
	assert.Equal(t, "sentiment_escalation", dec.Rule)
}

func TestEvaluateFallbacks(t *testing.T) {
	ev := testEvaluator(t, Config{Rules: []string{"sentiment_escalation"}})
	ev.rules = []Rule{{
		Name:            "bare",
		DefaultPriority: domain.PriorityCritical,
		Condition: func(Input, []domain.ConversationTurn) domain.RuleOutcome {
			return domain.RuleOutcome{NeedsEscalation: true}
		},
	}}

	dec := ev.Evaluate(Input{Message: "anything"}, nil)
	require.True(t, dec.NeedsEscalation)
	assert.Equal(t, fmt.Sprintf("Triggered by rule: %s", "bare"), dec.Reason)
	assert.Equal(t, domain.PriorityCritical, dec.Priority)
}
