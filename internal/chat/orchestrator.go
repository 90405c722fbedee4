// Package chat implements the conversation orchestrator: the pipeline that
// turns one user message into one persisted AI response.
//
// A turn moves through fixed stages: persist the user message, retrieve
// relevant memories, generate a response, classify the user's mood, persist
// the AI message. The user message is durable before any model is called —
// whatever fails afterwards, the user's words are not lost. Model-side
// failures (unreachable backend, expired generation deadline) are retried
// once and then degrade to a fixed apology response with empty provenance;
// the HTTP layer never sees an error for a degraded turn.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memoroo/memoroo/internal/mood"
	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/internal/retrieval"
	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
	"github.com/memoroo/memoroo/pkg/provider/llm"
)

// apologyText is the fixed degraded-mode response. It is stored as a regular
// AI message so the conversation log reflects what the user actually saw.
const apologyText = "I'm sorry — I can't reach my memory right now. " +
	"Your message has been saved; please try again in a moment."

const (
	// ActionAnswerProvided marks a normally generated AI response.
	ActionAnswerProvided = "answer_provided"

	// ActionDegradedFallback marks the stored apology after model failures.
	ActionDegradedFallback = "degraded_fallback"
)

// defaultGenerationTimeout bounds a single generation attempt when the config
// does not set one.
const defaultGenerationTimeout = 30 * time.Second

// Options configures an [Orchestrator].
type Options struct {
	// GenerationTimeout bounds each individual generation attempt.
	GenerationTimeout time.Duration

	// MaxHistoryMessages caps how much conversation history enters the prompt.
	// Zero means unlimited.
	MaxHistoryMessages int

	// SystemPrompt overrides the built-in assistant framing.
	SystemPrompt string
}

// Orchestrator runs chat turns.
type Orchestrator struct {
	conversations memory.ConversationStore
	life          memory.LifeStore
	retriever     *retrieval.Service
	generator     llm.Provider
	classifier    *mood.Classifier
	metrics       *observe.Metrics
	opts          Options
	now           func() time.Time
}

// NewOrchestrator creates an [Orchestrator]. metrics may be nil, in which
// case the process-wide default instruments are used. life may be nil to
// disable mood log appending.
func NewOrchestrator(
	conversations memory.ConversationStore,
	life memory.LifeStore,
	retriever *retrieval.Service,
	generator llm.Provider,
	classifier *mood.Classifier,
	opts Options,
	metrics *observe.Metrics,
) *Orchestrator {
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaultGenerationTimeout
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Orchestrator{
		conversations: conversations,
		life:          life,
		retriever:     retriever,
		generator:     generator,
		classifier:    classifier,
		metrics:       metrics,
		opts:          opts,
		now:           time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// ChatTurn runs one full turn: persists userText as a user message in the
// conversation, retrieves context, generates a response, classifies the mood,
// and persists and returns the AI message.
//
// The returned message carries RelatedMemoryIDs equal to exactly the units
// retrieved for this turn, or none when the turn degraded. ChatTurn returns
// an error only for invalid input, a missing conversation, or a storage
// failure — model failures degrade instead.
func (o *Orchestrator) ChatTurn(ctx context.Context, ownerID, conversationID, userText string) (*memory.ChatMessage, error) {
	turnStart := time.Now()
	o.metrics.ActiveTurns.Add(ctx, 1)
	defer func() {
		o.metrics.ActiveTurns.Add(ctx, -1)
		o.metrics.TurnDuration.Record(ctx, time.Since(turnStart).Seconds())
	}()

	if userText == "" {
		return nil, apperr.New(apperr.KindInvalid, "chat: user message must not be empty")
	}
	conv, err := o.conversations.GetConversation(ctx, ownerID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("chat: load conversation: %w", err)
	}
	if conv == nil {
		return nil, apperr.New(apperr.KindNotFound, "chat: conversation %q not found", conversationID)
	}

	// Persist the user message before any model call.
	userMsg := memory.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           memory.RoleUser,
		Content:        userText,
		Timestamp:      o.now(),
	}
	if err := o.conversations.AppendMessage(ctx, ownerID, userMsg); err != nil {
		return nil, fmt.Errorf("chat: persist user message: %w", err)
	}

	// Retrieval and generation share the retry-then-degrade policy.
	excerpts, genErr := o.retrieveWithRetry(ctx, ownerID, userText)
	var content string
	if genErr == nil {
		content, genErr = o.generateWithRetry(ctx, ownerID, conversationID, excerpts)
	}

	// Mood classification is total and runs regardless of generation outcome;
	// the user's message deserves a mood log entry either way.
	label := o.classifier.Classify(ctx, userText)

	aiMsg := memory.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           memory.RoleAI,
		Timestamp:      o.now(),
		MoodContext:    string(label),
	}
	if genErr != nil {
		observe.Logger(ctx).Warn("chat turn degraded",
			"owner_id", ownerID, "conversation_id", conversationID, "error", genErr)
		aiMsg.Content = apologyText
		aiMsg.Action = ActionDegradedFallback
	} else {
		aiMsg.Content = content
		aiMsg.Action = ActionAnswerProvided
		for _, ex := range excerpts {
			aiMsg.RelatedMemoryIDs = append(aiMsg.RelatedMemoryIDs, ex.Unit.ID)
		}
	}

	if err := o.conversations.AppendMessage(ctx, ownerID, aiMsg); err != nil {
		return nil, fmt.Errorf("chat: persist ai message: %w", err)
	}
	o.metrics.RecordChatTurn(ctx, aiMsg.Action)

	o.appendMoodLog(ctx, ownerID, label)

	return &aiMsg, nil
}

// retrieveWithRetry runs retrieval, retrying once on a retryable model error.
func (o *Orchestrator) retrieveWithRetry(ctx context.Context, ownerID, userText string) ([]retrieval.Result, error) {
	excerpts, err := o.retriever.Search(ctx, ownerID, userText)
	if err != nil && apperr.Retryable(err) {
		observe.Logger(ctx).Warn("retrieval failed, retrying once", "error", err)
		excerpts, err = o.retriever.Search(ctx, ownerID, userText)
	}
	return excerpts, err
}

// generateWithRetry builds the prompt and calls the LLM, retrying once on a
// retryable model error. Each attempt gets its own generation deadline.
func (o *Orchestrator) generateWithRetry(ctx context.Context, ownerID, conversationID string, excerpts []retrieval.Result) (string, error) {
	history, err := o.conversations.ListMessages(ctx, ownerID, conversationID)
	if err != nil {
		return "", fmt.Errorf("chat: load history: %w", err)
	}
	req := buildPrompt(o.opts.SystemPrompt, excerpts, history, o.opts.MaxHistoryMessages)

	content, err := o.generateOnce(ctx, req)
	if err != nil && apperr.Retryable(err) {
		observe.Logger(ctx).Warn("generation failed, retrying once", "error", err)
		content, err = o.generateOnce(ctx, req)
	}
	return content, err
}

func (o *Orchestrator) generateOnce(ctx context.Context, req llm.CompletionRequest) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, o.opts.GenerationTimeout)
	defer cancel()

	start := time.Now()
	resp, err := o.generator.Complete(genCtx, req)
	o.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// appendMoodLog records the turn's mood label in the owner's Life OS log.
// The append is advisory: a failure is logged and never fails the turn.
func (o *Orchestrator) appendMoodLog(ctx context.Context, ownerID string, label mood.Label) {
	if o.life == nil || label == mood.LabelUnclassified {
		return
	}
	log := memory.MoodLog{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Label:     string(label),
		Timestamp: o.now(),
	}
	if err := o.life.AddMoodLog(ctx, log); err != nil {
		observe.Logger(ctx).Warn("mood log append failed", "owner_id", ownerID, "error", err)
	}
}
