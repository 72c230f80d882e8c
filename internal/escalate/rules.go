package escalate

import (
	"fmt"
	"strings"

	"github.com/soyeahso/deskflow/internal/domain"
)

const defaultMaxAttempts = 3

// Built-in rule names.
const (
	RuleMultipleAttempts = "multiple_unsuccessful_attempts"
	RuleHighPriority     = "high_priority_keywords"
	RuleSentiment        = "sentiment_escalation"
	RuleExplicitRequest  = "explicit_escalation_request"
)

// defaultRuleOrder is the evaluation order when none is configured.
// Order matters: first match wins, not highest severity.
var defaultRuleOrder = []string{
	RuleMultipleAttempts,
	RuleHighPriority,
	RuleSentiment,
	RuleExplicitRequest,
}

// ruleTable resolves a rule name to its constructor. Conditions are
// pure functions; the config only parameterizes thresholds.
var ruleTable = map[string]func(cfg Config) Rule{
	RuleMultipleAttempts: func(cfg Config) Rule {
		return Rule{
			Name:            RuleMultipleAttempts,
			DefaultPriority: domain.PriorityMedium,
			Condition:       multipleUnsuccessfulAttempts(cfg.MaxAttempts),
		}
	},
	RuleHighPriority: func(Config) Rule {
		return Rule{
			Name:            RuleHighPriority,
			DefaultPriority: domain.PriorityHigh,
			Condition:       highPriorityKeywords,
		}
	},
	RuleSentiment: func(Config) Rule {
		return Rule{
			Name:            RuleSentiment,
			DefaultPriority: domain.PriorityHigh,
			Condition:       negativeSentiment,
		}
	},
	RuleExplicitRequest: func(Config) Rule {
		return Rule{
			Name:            RuleExplicitRequest,
			DefaultPriority: domain.PriorityHigh,
			Condition:       explicitEscalationRequest,
		}
	},
}

// highPriorityPhrases trigger immediate hand-off regardless of history.
var highPriorityPhrases = []string{
	"speak to a human",
	"talk to a person",
	"let me talk to a manager",
	"this is urgent",
	"i need help now",
	"emergency",
	"critical issue",
	"not working at all",
	"cancel my account",
	"i want to cancel",
}

// negativeWords is a crude frustration proxy; counted by presence, not
// occurrences, matching the substring semantics of the phrase rules.
var negativeWords = []string{
	"angry", "frustrated", "disappointed", "terrible", "awful",
	"horrible", "worst", "hate", "useless", "waste",
}

// explicitRequestPhrases are direct asks for a human.
var explicitRequestPhrases = []string{
	"speak to a human",
	"talk to a real person",
	"connect me with an agent",
	"let me talk to someone",
	"transfer me to a person",
}

// multipleUnsuccessfulAttempts escalates once the assistant has failed
// maxAttempts-1 times within the trailing maxAttempts turns. The -1
// accounts for the current turn, which has not been answered yet.
func multipleUnsuccessfulAttempts(maxAttempts int) Condition {
	return func(_ Input, window []domain.ConversationTurn) domain.RuleOutcome {
		tail := window
		if len(tail) > maxAttempts {
			tail = tail[len(tail)-maxAttempts:]
		}

		failed := 0
		for _, turn := range tail {
			if turn.Role == domain.RoleAssistant && turn.Unsuccessful() {
				failed++
			}
		}

		if failed >= maxAttempts-1 {
			return domain.RuleOutcome{
				NeedsEscalation: true,
				Reason:          fmt.Sprintf("User has had %d unsuccessful attempts", failed+1),
				Priority:        domain.PriorityMedium,
				SuggestedAgent:  "customer_service",
			}
		}
		return domain.RuleOutcome{}
	}
}

func highPriorityKeywords(in Input, _ []domain.ConversationTurn) domain.RuleOutcome {
	msg := strings.ToLower(in.Message)
	for _, phrase := range highPriorityPhrases {
		if strings.Contains(msg, phrase) {
			return domain.RuleOutcome{
				NeedsEscalation: true,
				Reason:          "High-priority phrase detected: " + phrase,
				Priority:        domain.PriorityHigh,
				SuggestedAgent:  "senior_support",
			}
		}
	}
	return domain.RuleOutcome{}
}

func negativeSentiment(in Input, _ []domain.ConversationTurn) domain.RuleOutcome {
	msg := strings.ToLower(in.Message)

	negatives := 0
	for _, word := range negativeWords {
		if strings.Contains(msg, word) {
			negatives++
		}
	}
	exclamations := strings.Count(msg, "!")

	if negatives > 1 || (negatives > 0 && exclamations > 1) {
		return domain.RuleOutcome{
			NeedsEscalation: true,
			Reason:          "Negative sentiment detected",
			Priority:        domain.PriorityHigh,
			SuggestedAgent:  "customer_relations",
		}
	}
	return domain.RuleOutcome{}
}

func explicitEscalationRequest(in Input, _ []domain.ConversationTurn) domain.RuleOutcome {
	msg := strings.ToLower(in.Message)
	for _, phrase := range explicitRequestPhrases {
		if strings.Contains(msg, phrase) {
			return domain.RuleOutcome{
				NeedsEscalation: true,
				Reason:          "User explicitly requested human assistance",
				Priority:        domain.PriorityHigh,
				SuggestedAgent:  "customer_service",
			}
		}
	}
	return domain.RuleOutcome{}
}
