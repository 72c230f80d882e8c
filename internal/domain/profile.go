package domain

import "time"

// UserProfile holds stored preference data used for personalization.
// Unknown users get a default profile with empty preferences.
type UserProfile struct {
	UserID      string            `json:"userId"`
	Preferences map[string]string `json:"preferences"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// DisplayName returns the user's stored name, or "" when unknown.
func (p *UserProfile) DisplayName() string {
	if p == nil {
		return ""
	}
	name := p.Preferences["name"]
	if name == "there" {
		// Legacy placeholder value, treated as unset.
		return ""
	}
	return name
}

// Interaction is one logged exchange with a user, used by the
// personalizer to detect repeated topics.
type Interaction struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId,omitempty"`
	Message   string    `json:"message"`
	Intent    string    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
