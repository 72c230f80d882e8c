package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
)

type stubRemote struct {
	result domain.IntentResult
	err    error
	calls  int
}

func (s *stubRemote) Classify(_ context.Context, _ string) (domain.IntentResult, error) {
	s.calls++
	return s.result, s.err
}

func testClassifier(remote RemoteClassifier) *Classifier {
	return NewClassifier(remote, logging.New(nil, "silent"))
}

func TestClassifyKeywords(t *testing.T) {
	tests := []struct {
		message    string
		intent     string
		confidence float64
	}{
		{"I have a question about my bill", domain.IntentBilling, 0.4},
		{"the invoice shows a wrong charge", domain.IntentBilling, 0.4},
		{"the app is not working, I see an error", domain.IntentTechnicalSupport, 0.4},
		{"how to enable this feature", domain.IntentProductInformation, 0.4},
		{"I forgot my password", domain.IntentAccountManagement, 0.4},
		{"when will my order arrive", domain.IntentOrderStatus, 0.4},
		{"I want my money back", domain.IntentRefundRequest, 0.4},
		{"hello there", domain.IntentGeneralInquiry, 0.4},
		{"the weather is nice today", domain.IntentGeneralInquiry, 0.3},
		// Two intents match (billing, technical_support); the first wins
		// and the score counts both.
		{"I have a billing problem", domain.IntentBilling, 0.5},
	}

	c := testClassifier(nil)
	for _, tc := range tests {
		res := c.Classify(context.Background(), tc.message)
		assert.Equal(t, tc.intent, res.Intent, tc.message)
		assert.InDelta(t, tc.confidence, res.Confidence, 1e-9, tc.message)
	}
}

func TestClassifyTableOrderWins(t *testing.T) {
	// "refund" is a billing keyword and a refund_request keyword;
	// billing appears first in the table.
	res := testClassifier(nil).Classify(context.Background(), "I need a refund")
	assert.Equal(t, domain.IntentBilling, res.Intent)
}

func TestClassifyEmptyMessage(t *testing.T) {
	remote := &stubRemote{result: domain.IntentResult{Intent: domain.IntentBilling, Confidence: 0.99}}
	c := testClassifier(remote)

	for _, msg := range []string{"", "   ", "\t\n"} {
		res := c.Classify(context.Background(), msg)
		assert.Equal(t, domain.IntentUnknown, res.Intent)
		assert.Zero(t, res.Confidence)
	}
	assert.Zero(t, remote.calls, "remote must not be consulted for empty input")
}

func TestClassifyRemotePreferred(t *testing.T) {
	remote := &stubRemote{result: domain.IntentResult{Intent: domain.IntentOrderStatus, Confidence: 0.95}}
	res := testClassifier(remote).Classify(context.Background(), "hello, about my bill")
	assert.Equal(t, domain.IntentOrderStatus, res.Intent)
	assert.Equal(t, 0.95, res.Confidence)
}

func TestClassifyRemoteFailureFallsBack(t *testing.T) {
	remote := &stubRemote{err: errors.New("model unavailable")}
	res := testClassifier(remote).Classify(context.Background(), "question about my invoice")
	assert.Equal(t, domain.IntentBilling, res.Intent)
	assert.Equal(t, 1, remote.calls)
}

func TestConfidenceCap(t *testing.T) {
	// All seven intents match: 0.3 + 0.7 capped at 0.9, billing first.
	res := testClassifier(nil).Classify(context.Background(),
		"hello, i need help with my bill, account, order, a refund and product features")
	assert.Equal(t, domain.IntentBilling, res.Intent)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}
