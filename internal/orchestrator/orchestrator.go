// Package orchestrator runs the message pipeline: history, escalation,
// intent routing, knowledge lookup, personalization and proactive
// engagement, in that order.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/escalate"
	"github.com/soyeahso/deskflow/internal/history"
	"github.com/soyeahso/deskflow/internal/knowledge"
	"github.com/soyeahso/deskflow/internal/logging"
)

// Classifier resolves a message to an intent.
type Classifier interface {
	Classify(ctx context.Context, message string) domain.IntentResult
}

// Knowledge answers informational queries.
type Knowledge interface {
	Answer(ctx context.Context, query string, filters map[string]string) knowledge.Answer
}

// Personalizer rewrites a response for a user.
type Personalizer interface {
	Personalize(ctx context.Context, userID, sessionID, message, intent string) string
}

// EngagementScheduler queues or delivers proactive messages.
type EngagementScheduler interface {
	Schedule(ctx context.Context, req domain.EngagementRequest) domain.SchedulingResult
}

// EscalationStore persists escalation records for the support queue.
type EscalationStore interface {
	Create(ctx context.Context, rec domain.EscalationRecord) (domain.EscalationRecord, error)
}

// DefaultHistoryWindow is the trailing turn count the escalation rules
// see.
const DefaultHistoryWindow = 5

// defaultKnowledgeIntents are the intents routed to the knowledge path.
var defaultKnowledgeIntents = []string{
	domain.IntentBilling,
	domain.IntentProductInformation,
	domain.IntentGeneralInquiry,
}

// Canned responses for pipeline outcomes.
const (
	ackResponse = "I'll help you with that. Let me check the best way to assist you."

	errorResponse = "I'm sorry, I encountered an error processing your request. " +
		"Our team has been notified."

	initFailedResponse = "System initialization failed. Please try again later."

	escalationResponse = "I've escalated your request to our support team with %s. " +
		"Someone will get back to you as soon as possible. " +
		"In the meantime, is there anything else I can help you with?"

	followUpMessage = "Hi! I noticed you were interested in our products. " +
		"Do you have any questions I can help with?"
)

// Config tunes the orchestrator.
type Config struct {
	// MaxHistorySize bounds each session's in-memory history.
	// Zero selects the history package default.
	MaxHistorySize int
	// HistoryWindow is how many trailing turns escalation rules see.
	// Zero selects DefaultHistoryWindow.
	HistoryWindow int
	// KnowledgeIntents overrides which intents take the knowledge path.
	KnowledgeIntents []string
	// Escalation configures the rule evaluator built at Initialize.
	Escalation escalate.Config
}

// Deps are the orchestrator's collaborators. Any of them may be nil;
// the corresponding pipeline step is skipped.
type Deps struct {
	Classifier   Classifier
	Knowledge    Knowledge
	Personalizer Personalizer
	Scheduler    EngagementScheduler
	Escalations  EscalationStore
}

// Request is one inbound user message. Metadata is attached to the
// recorded user turn.
type Request struct {
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId,omitempty"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Orchestrator is the conversational pipeline. It is safe for
// concurrent use; turns within one session are serialized by the
// history store.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	history *history.Store
	log     *logging.Logger

	// Initialization is guarded by a plain mutex rather than sync.Once
	// so a failed attempt can be retried on the next message.
	initMu      sync.Mutex
	initialized bool
	evaluator   *escalate.Evaluator

	knowledgeIntents map[string]bool
}

// New builds an orchestrator. Call Initialize before processing, or
// let the first message trigger it.
func New(cfg Config, deps Deps, log *logging.Logger) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	intents := cfg.KnowledgeIntents
	if len(intents) == 0 {
		intents = defaultKnowledgeIntents
	}
	set := make(map[string]bool, len(intents))
	for _, it := range intents {
		set[it] = true
	}

	return &Orchestrator{
		cfg:              cfg,
		deps:             deps,
		history:          history.NewStore(cfg.MaxHistorySize),
		log:              log.Sub("orchestrator"),
		knowledgeIntents: set,
	}
}

// History exposes the session history store for maintenance tasks.
func (o *Orchestrator) History() *history.Store {
	return o.history
}

// Initialize builds the escalation evaluator. It is idempotent and
// safe to call concurrently; a failure leaves the orchestrator
// uninitialized so a later call can retry.
func (o *Orchestrator) Initialize() error {
	o.initMu.Lock()
	defer o.initMu.Unlock()
	if o.initialized {
		return nil
	}

	ev, err := escalate.NewEvaluator(o.cfg.Escalation, o.log)
	if err != nil {
		return fmt.Errorf("building escalation evaluator: %w", err)
	}
	o.evaluator = ev
	o.initialized = true
	o.log.Info().Strs("rules", ev.Rules()).Msg("orchestrator initialized")
	return nil
}

// ProcessMessage runs one message through the pipeline. Failures are
// reported as an error-shaped Response; the method never returns an
// error and never panics.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req Request) (resp domain.Response) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Any("panic", r).Str("userId", req.UserID).Msg("message pipeline panicked")
			resp = domain.Response{
				ResponseText: errorResponse,
				Intent:       domain.IntentError,
				Source:       "orchestrator",
			}
		}
	}()

	if err := o.Initialize(); err != nil {
		o.log.Error().Err(err).Msg("initialization failed")
		return domain.Response{
			ResponseText: initFailedResponse,
			Intent:       domain.IntentError,
			Source:       "orchestrator",
		}
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	window := o.history.AppendAndWindow(req.SessionID, domain.ConversationTurn{
		Role:     domain.RoleUser,
		Content:  req.Message,
		Metadata: req.Metadata,
	}, o.cfg.HistoryWindow)

	decision := o.evaluator.Evaluate(escalate.Input{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
	}, window)
	if decision.NeedsEscalation {
		return o.escalate(ctx, req, decision, window)
	}

	result := o.classify(ctx, req.Message)
	text, source, sources := o.answer(ctx, req.Message, result.Intent)

	personalized, personalizationApplied := text, false
	if o.deps.Personalizer != nil {
		personalized = o.deps.Personalizer.Personalize(ctx, req.UserID, req.SessionID, text, result.Intent)
		personalizationApplied = true
	}

	o.history.Append(req.SessionID, domain.ConversationTurn{
		Role:     domain.RoleAssistant,
		Content:  personalized,
		Metadata: map[string]any{"intent": result.Intent},
	})

	o.checkEngagement(ctx, req.UserID, result.Intent)

	return domain.Response{
		ResponseText:           personalized,
		Intent:                 result.Intent,
		Confidence:             result.Confidence,
		Source:                 source,
		Sources:                sources,
		PersonalizationApplied: personalizationApplied,
	}
}

// escalate records the hand-off and builds the escalation response.
func (o *Orchestrator) escalate(ctx context.Context, req Request, decision domain.EscalationDecision, window []domain.ConversationTurn) domain.Response {
	o.history.Append(req.SessionID, domain.ConversationTurn{
		Role:    domain.RoleSystem,
		Content: fmt.Sprintf("[ESCALATION] %s (Priority: %s)", decision.Reason, decision.Priority),
		Metadata: map[string]any{
			"type":     "escalation",
			"priority": string(decision.Priority),
		},
	})

	if o.deps.Escalations != nil {
		_, err := o.deps.Escalations.Create(ctx, domain.EscalationRecord{
			UserID:         req.UserID,
			SessionID:      req.SessionID,
			Reason:         decision.Reason,
			Priority:       decision.Priority,
			SuggestedAgent: decision.SuggestedAgent,
			Snapshot:       window,
		})
		if err != nil {
			o.log.Error().Err(err).Str("sessionId", req.SessionID).Msg("persisting escalation failed")
		}
	}

	return domain.Response{
		ResponseText: fmt.Sprintf(escalationResponse, priorityPhrase(decision.Priority)),
		Intent:       domain.IntentEscalation,
		Confidence:   1.0,
		Source:       "escalation",
		Escalation: &domain.EscalationDetails{
			Escalated:      true,
			Reason:         decision.Reason,
			Priority:       decision.Priority,
			SuggestedAgent: decision.SuggestedAgent,
			Timestamp:      time.Now(),
		},
	}
}

func (o *Orchestrator) classify(ctx context.Context, message string) domain.IntentResult {
	if o.deps.Classifier == nil {
		return domain.IntentResult{Intent: domain.IntentGeneralInquiry, Confidence: 0.3}
	}
	return o.deps.Classifier.Classify(ctx, message)
}

// answer picks the response text for a non-escalated message.
func (o *Orchestrator) answer(ctx context.Context, message, intent string) (string, string, []domain.Source) {
	if o.deps.Knowledge != nil && o.knowledgeIntents[intent] {
		ans := o.deps.Knowledge.Answer(ctx, message, nil)
		return ans.AnswerText, "knowledge_base", ans.Sources
	}
	return ackResponse, "orchestrator", nil
}

// checkEngagement schedules follow-ups triggered by the current intent.
// It runs in the background; failures are logged and never affect the
// response.
func (o *Orchestrator) checkEngagement(ctx context.Context, userID, intent string) {
	if o.deps.Scheduler == nil || intent != domain.IntentProductInformation {
		return
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		res := o.deps.Scheduler.Schedule(bg, domain.EngagementRequest{
			UserID:    userID,
			Type:      domain.EngagementFollowUp,
			Message:   followUpMessage,
			TriggerAt: time.Now().Add(24 * time.Hour),
			Metadata:  map[string]any{"follow_up_type": "product_interest"},
		})
		if res.Status != "success" {
			o.log.Warn().Str("userId", userID).Str("detail", res.Message).Msg("follow-up scheduling failed")
		}
	}()
}

func priorityPhrase(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "high priority"
	case domain.PriorityCritical:
		return "top priority"
	case domain.PriorityMedium:
		return "priority"
	default:
		return "standard priority"
	}
}
