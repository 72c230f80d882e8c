// Package escalate decides when a conversation should be handed to a
// human agent. Rules are evaluated in a fixed configured order; the
// first rule that triggers wins and later rules are skipped.
package escalate

import (
	"fmt"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

// Input carries the current turn being evaluated.
type Input struct {
	UserID    string
	SessionID string
	Message   string
}

// Condition is a pure rule predicate over the current input and the
// trailing history window.
type Condition func(in Input, window []domain.ConversationTurn) domain.RuleOutcome

// Rule pairs a named condition with its default priority, used when the
// outcome does not set one.
type Rule struct {
	Name            string
	DefaultPriority domain.Priority
	Condition       Condition
}

// Config tunes the evaluator.
type Config struct {
	// MaxAttempts is the window for the unsuccessful-attempts rule.
	// Zero selects the default of 3.
	MaxAttempts int
	// Rules lists rule names in evaluation order. Empty selects the
	// built-in default order.
	Rules []string
}

// Evaluator runs an ordered rule list against each turn.
type Evaluator struct {
	rules []Rule
	log   *logging.Logger
}

// NewEvaluator builds an evaluator by resolving the configured rule
// names through the built-in rule table. Unknown names are an error.
func NewEvaluator(cfg Config, log *logging.Logger) (*Evaluator, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	names := cfg.Rules
	if len(names) == 0 {
		names = defaultRuleOrder
	}

	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		build, ok := ruleTable[name]
		if !ok {
			return nil, fmt.Errorf("unknown escalation rule: %s", name)
		}
		rules = append(rules, build(cfg))
	}

	return &Evaluator{rules: rules, log: log.Sub("escalate")}, nil
}

// Rules returns the names of the configured rules in evaluation order.
func (e *Evaluator) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// Evaluate runs the rules in order and returns the first triggering
// outcome. A rule that panics is logged and treated as no-match; the
// evaluator itself never fails.
func (e *Evaluator) Evaluate(in Input, window []domain.ConversationTurn) domain.EscalationDecision {
	for _, rule := range e.rules {
		outcome := e.run(rule, in, window)
		if !outcome.NeedsEscalation {
			continue
		}

		decision := domain.EscalationDecision{
			NeedsEscalation: true,
			Reason:          outcome.Reason,
			Priority:        outcome.Priority,
			SuggestedAgent:  outcome.SuggestedAgent,
			Rule:            rule.Name,
		}
		if decision.Reason == "" {
			decision.Reason = fmt.Sprintf("Triggered by rule: %s", rule.Name)
		}
		if decision.Priority == "" || decision.Priority == domain.PriorityNone {
			decision.Priority = rule.DefaultPriority
		}

		e.log.Info().
			Str("rule", rule.Name).
			Str("priority", string(decision.Priority)).
			Str("sessionId", in.SessionID).
			Msg("escalation triggered")
		return decision
	}

	return domain.EscalationDecision{NeedsEscalation: false, Priority: domain.PriorityNone}
}

// run invokes one rule, containing panics so a broken rule cannot abort
// evaluation of the remaining rules.
func (e *Evaluator) run(rule Rule, in Input, window []domain.ConversationTurn) (outcome domain.RuleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("rule", rule.Name).
				Any("panic", r).
				Msg("escalation rule failed, skipping")
			outcome = domain.RuleOutcome{}
		}
	}()
	return rule.Condition(in, window)
}
