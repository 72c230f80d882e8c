package domain

import "time"

// Source is a knowledge document that contributed to a response.
type Source struct {
	Title   string `json:"title"`
	Link    string `json:"link,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// EscalationDetails is the escalation payload attached to a Response.
type EscalationDetails struct {
	Escalated      bool      `json:"escalated"`
	Reason         string    `json:"reason,omitempty"`
	Priority       Priority  `json:"priority,omitempty"`
	SuggestedAgent string    `json:"suggestedAgent,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Response is the single result shape the orchestrator returns to its
// caller. Failures are also expressed as a Response (intent "error"),
// never as a raw error.
type Response struct {
	ResponseText           string             `json:"response"`
	Intent                 string             `json:"intent"`
	Confidence             float64            `json:"confidence"`
	Source                 string             `json:"source"`
	Metadata               map[string]any     `json:"metadata,omitempty"`
	RequiresFollowUp       bool               `json:"requiresFollowUp"`
	SuggestedResponses     []string           `json:"suggestedResponses,omitempty"`
	Sources                []Source           `json:"sources,omitempty"`
	Escalation             *EscalationDetails `json:"escalation,omitempty"`
	PersonalizationApplied bool               `json:"personalizationApplied,omitempty"`
}
