package chat

import (
	"strings"

	"github.com/memoroo/memoroo/internal/retrieval"
	"github.com/memoroo/memoroo/pkg/memory"
	"github.com/memoroo/memoroo/pkg/provider/llm"
)

// defaultSystemPrompt frames the assistant as the owner's memory companion.
const defaultSystemPrompt = "You are Memoroo, a personal memory assistant. " +
	"Answer the user's message using the remembered context below when it is " +
	"relevant. If the context does not contain the answer, say so honestly " +
	"instead of inventing memories. Be concise and warm."

// buildPrompt assembles the completion request for one chat turn. Retrieved
// excerpts are appended to the system prompt verbatim, in retrieval order —
// the ranking carries information the model should see. History arrives in
// insertion order and already contains the persisted user message as its last
// element; only the most recent maxHistory messages are kept.
func buildPrompt(systemPrompt string, excerpts []retrieval.Result, history []memory.ChatMessage, maxHistory int) llm.CompletionRequest {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	if len(excerpts) > 0 {
		sb.WriteString("\n\nRemembered context:\n")
		for _, ex := range excerpts {
			sb.WriteString("- ")
			if ex.Unit.Title != "" {
				sb.WriteString(ex.Unit.Title)
				sb.WriteString(": ")
			}
			sb.WriteString(ex.Unit.Content)
			sb.WriteString("\n")
		}
	}

	if maxHistory > 0 && len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	messages := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == memory.RoleAI {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}

	return llm.CompletionRequest{
		SystemPrompt: sb.String(),
		Messages:     messages,
	}
}
