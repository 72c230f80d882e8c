package domain

import "time"

// Priority ranks an escalation for the human support queue.
type Priority string

const (
	PriorityNone     Priority = "none"
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// RuleOutcome is the result of evaluating a single escalation rule.
// Priority and SuggestedAgent may be left empty to fall back to the
// rule's configured defaults.
type RuleOutcome struct {
	NeedsEscalation bool     `json:"needsEscalation"`
	Reason          string   `json:"reason,omitempty"`
	Priority        Priority `json:"priority,omitempty"`
	SuggestedAgent  string   `json:"suggestedAgent,omitempty"`
}

// EscalationDecision is the terminal result of evaluating all rules
// against one turn. Priority is PriorityNone iff NeedsEscalation is false.
type EscalationDecision struct {
	NeedsEscalation bool     `json:"needsEscalation"`
	Reason          string   `json:"reason,omitempty"`
	Priority        Priority `json:"priority"`
	SuggestedAgent  string   `json:"suggestedAgent,omitempty"`
	Rule            string   `json:"rule,omitempty"`
}

// Escalation record lifecycle states.
const (
	EscalationPending    = "pending"
	EscalationInProgress = "in_progress"
	EscalationResolved   = "resolved"
	EscalationCancelled  = "cancelled"
)

// EscalationRecord is the persisted form of an escalation handed to the
// human support queue.
type EscalationRecord struct {
	ID              string             `json:"id"`
	UserID          string             `json:"userId"`
	SessionID       string             `json:"sessionId"`
	Status          string             `json:"status"`
	Reason          string             `json:"reason"`
	Priority        Priority           `json:"priority"`
	SuggestedAgent  string             `json:"suggestedAgent,omitempty"`
	AssignedAgent   string             `json:"assignedAgent,omitempty"`
	ResolutionNotes string             `json:"resolutionNotes,omitempty"`
	Snapshot        []ConversationTurn `json:"snapshot,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	ResolvedAt      *time.Time         `json:"resolvedAt,omitempty"`
}
