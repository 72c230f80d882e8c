package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// knownEscalationRules mirrors the rule table in the escalate package.
var knownEscalationRules = []string{
	"multiple_unsuccessful_attempts",
	"high_priority_keywords",
	"sentiment_escalation",
	"explicit_escalation_request",
}

// knownIntents is the routing taxonomy.
var knownIntents = []string{
	"billing", "technical_support", "product_information",
	"account_management", "order_status", "refund_request",
	"general_inquiry",
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	if cfg.History.MaxSize < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "history.maxSize",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.History.MaxSize),
		})
	}
	if cfg.History.Window > cfg.History.MaxSize && cfg.History.MaxSize > 0 {
		issues = append(issues, ValidationIssue{
			Path:    "history.window",
			Message: fmt.Sprintf("window %d exceeds maxSize %d", cfg.History.Window, cfg.History.MaxSize),
		})
	}

	if cfg.Escalation.MaxAttempts < 2 {
		issues = append(issues, ValidationIssue{
			Path:    "escalation.maxAttempts",
			Message: fmt.Sprintf("must be at least 2, got %d", cfg.Escalation.MaxAttempts),
		})
	}
	for _, rule := range cfg.Escalation.Rules {
		if !slices.Contains(knownEscalationRules, rule) {
			issues = append(issues, ValidationIssue{
				Path:    "escalation.rules",
				Message: fmt.Sprintf("unknown rule %q", rule),
			})
		}
	}

	for _, it := range cfg.Routing.KnowledgeIntents {
		if !slices.Contains(knownIntents, it) {
			issues = append(issues, ValidationIssue{
				Path:    "routing.knowledgeIntents",
				Message: fmt.Sprintf("unknown intent %q", it),
			})
		}
	}

	if cfg.Engagement.WorkerIntervalSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "engagement.workerIntervalSeconds",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Engagement.WorkerIntervalSeconds),
		})
	}

	return issues
}
