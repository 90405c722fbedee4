// Package mood classifies the emotional tone of a user's chat message.
//
// Classification is advisory: the label is attached to the AI response and
// appended to the owner's mood log, but nothing downstream branches on it.
// Classify is therefore total — it always returns a label and never an error.
// When the LLM is unavailable or answers outside the label set, a keyword
// heuristic takes over; when even that has nothing to go on, the label is
// [LabelUnclassified].
package mood

import (
	"context"
	"strings"
	"time"

	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/pkg/provider/llm"
)

// Label is one of the closed set of mood labels.
type Label string

const (
	LabelNeutral      Label = "Neutral"
	LabelStressed     Label = "Stressed"
	LabelExcited      Label = "Excited"
	LabelCurious      Label = "Curious"
	LabelUnclassified Label = "Unclassified"
)

// labelSet maps lowercase label names for parsing LLM output.
var labelSet = map[string]Label{
	"neutral":  LabelNeutral,
	"stressed": LabelStressed,
	"excited":  LabelExcited,
	"curious":  LabelCurious,
}

// classifyPrompt instructs the model to answer with exactly one label.
const classifyPrompt = "Classify the emotional tone of the following message. " +
	"Answer with exactly one word from this list and nothing else: " +
	"Neutral, Stressed, Excited, Curious."

// defaultTimeout bounds the LLM call. Mood tagging sits on the chat turn's
// critical path, so a slow classifier falls through to keywords instead of
// delaying the response.
const defaultTimeout = 5 * time.Second

// Classifier assigns a mood label to user text.
type Classifier struct {
	provider llm.Provider
	timeout  time.Duration
	metrics  *observe.Metrics
}

// Option configures a [Classifier].
type Option func(*Classifier)

// WithTimeout overrides the per-call LLM deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithMetrics overrides the metrics instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Classifier) { c.metrics = m }
}

// NewClassifier creates a [Classifier]. provider may be nil, in which case
// only the keyword heuristic runs.
func NewClassifier(provider llm.Provider, opts ...Option) *Classifier {
	c := &Classifier{
		provider: provider,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Classify returns the mood label for text. It never returns an error: LLM
// failures degrade to the keyword heuristic, and empty input is
// [LabelUnclassified].
func (c *Classifier) Classify(ctx context.Context, text string) Label {
	start := time.Now()
	defer func() {
		c.metrics.MoodDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if strings.TrimSpace(text) == "" {
		return LabelUnclassified
	}

	if c.provider != nil {
		if label, ok := c.classifyLLM(ctx, text); ok {
			return label
		}
	}
	return keywordClassify(text)
}

// classifyLLM asks the model for a label. The second return is false when the
// call failed or the answer was not in the label set.
func (c *Classifier) classifyLLM(ctx context.Context, text string) (Label, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: classifyPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: text},
		},
		Temperature: 0.0,
		MaxTokens:   8,
	})
	if err != nil {
		observe.Logger(ctx).Debug("mood classification via LLM failed, using keywords", "error", err)
		return "", false
	}

	answer := strings.ToLower(strings.TrimSpace(strings.Trim(resp.Content, ".!\"'")))
	label, ok := labelSet[answer]
	if !ok {
		observe.Logger(ctx).Debug("mood classifier returned unknown label", "answer", resp.Content)
		return "", false
	}
	return label, true
}

// keywordClassify mirrors the rules of the heuristic sentiment detector:
// stress vocabulary wins over excitement, excitement over curiosity, and a
// question mark alone marks curiosity. Everything else is neutral.
func keywordClassify(text string) Label {
	lower := strings.ToLower(text)

	for _, kw := range []string{"stress", "worried", "anxious", "overwhelmed", "tired", "exhausted"} {
		if strings.Contains(lower, kw) {
			return LabelStressed
		}
	}
	for _, kw := range []string{"excited", "amazing", "great", "awesome", "love", "happy"} {
		if strings.Contains(lower, kw) {
			return LabelExcited
		}
	}
	if strings.Contains(text, "?") {
		return LabelCurious
	}
	for _, kw := range []string{"how", "why", "what", "wonder"} {
		if strings.HasPrefix(lower, kw+" ") {
			return LabelCurious
		}
	}
	return LabelNeutral
}
