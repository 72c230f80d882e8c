// Package intent maps user messages to a fixed intent taxonomy using
// keyword matching, with an optional remote classifier tried first.
package intent

import (
	"context"
	"strings"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

// RemoteClassifier is an external model-backed classifier. The keyword
// table is the fallback when it is absent or fails.
type RemoteClassifier interface {
	Classify(ctx context.Context, message string) (domain.IntentResult, error)
}

// intentKeywords pairs an intent with its trigger keywords. Declaration
// order is the tie-break: the first intent with any match wins.
type intentKeywords struct {
	intent   string
	keywords []string
}

var keywordTable = []intentKeywords{
	{domain.IntentBilling, []string{"bill", "invoice", "payment", "charge", "refund", "pricing"}},
	{domain.IntentTechnicalSupport, []string{"help", "support", "issue", "problem", "not working", "error"}},
	{domain.IntentProductInformation, []string{"feature", "how to", "what is", "can i", "does it", "product"}},
	{domain.IntentAccountManagement, []string{"account", "login", "sign up", "password", "profile"}},
	{domain.IntentOrderStatus, []string{"order", "track", "delivery", "shipping", "when will"}},
	{domain.IntentRefundRequest, []string{"refund", "return", "cancel", "money back"}},
	{domain.IntentGeneralInquiry, []string{"hello", "hi", "hey", "thank", "thanks", "bye"}},
}

// Classifier resolves a message to an intent. With a nil remote it is
// purely keyword-driven and never fails.
type Classifier struct {
	remote RemoteClassifier
	log    *logging.Logger
}

// NewClassifier builds a classifier. remote may be nil.
func NewClassifier(remote RemoteClassifier, log *logging.Logger) *Classifier {
	return &Classifier{remote: remote, log: log.Sub("intent")}
}

// Classify resolves the message's intent. Empty or whitespace-only
// input short-circuits to unknown without consulting the remote.
func (c *Classifier) Classify(ctx context.Context, message string) domain.IntentResult {
	if strings.TrimSpace(message) == "" {
		return domain.IntentResult{Intent: domain.IntentUnknown, Confidence: 0}
	}

	if c.remote != nil {
		res, err := c.remote.Classify(ctx, message)
		if err == nil {
			return res
		}
		c.log.Warn().Err(err).Msg("remote classifier failed, using keyword fallback")
	}

	return classifyKeywords(message)
}

// classifyKeywords scans the whole table, picks the first intent with a
// keyword hit, and scores it by how many intents matched overall.
// Confidence is capped at 0.9.
func classifyKeywords(message string) domain.IntentResult {
	msg := strings.ToLower(message)

	first := ""
	matched := 0
	for _, entry := range keywordTable {
		for _, kw := range entry.keywords {
			if strings.Contains(msg, kw) {
				matched++
				if first == "" {
					first = entry.intent
				}
				break
			}
		}
	}
	if matched == 0 {
		return domain.IntentResult{Intent: domain.IntentGeneralInquiry, Confidence: 0.3}
	}

	confidence := 0.3 + 0.1*float64(matched)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return domain.IntentResult{Intent: first, Confidence: confidence}
}
