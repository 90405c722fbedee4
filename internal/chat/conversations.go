package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
)

// Conversations wraps [memory.ConversationStore] with validation and
// NotFound conflation for the HTTP layer. It shares the store with the
// [Orchestrator] but owns the CRUD surface.
type Conversations struct {
	store memory.ConversationStore
	now   func() time.Time
}

// NewConversations creates the conversation CRUD service.
func NewConversations(store memory.ConversationStore) *Conversations {
	return &Conversations{store: store, now: time.Now}
}

// Create stores a new conversation. A missing ID is generated and an empty
// title gets a placeholder.
func (c *Conversations) Create(ctx context.Context, conv memory.Conversation) (*memory.Conversation, error) {
	if conv.OwnerID == "" {
		return nil, apperr.New(apperr.KindInvalid, "chat: conversation requires an owner")
	}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.Title == "" {
		conv.Title = "Untitled conversation"
	}
	conv.CreatedAt = c.now()
	conv.UpdatedAt = conv.CreatedAt
	if err := c.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("chat: create conversation: %w", err)
	}
	return &conv, nil
}

// Get retrieves a conversation; missing and foreign-owned conversations are
// both KindNotFound.
func (c *Conversations) Get(ctx context.Context, ownerID, id string) (*memory.Conversation, error) {
	conv, err := c.store.GetConversation(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("chat: load conversation: %w", err)
	}
	if conv == nil {
		return nil, apperr.New(apperr.KindNotFound, "chat: conversation %q not found", id)
	}
	return conv, nil
}

// List returns the owner's conversations, most recently active first.
func (c *Conversations) List(ctx context.Context, ownerID string) ([]memory.Conversation, error) {
	convs, err := c.store.ListConversations(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("chat: list conversations: %w", err)
	}
	return convs, nil
}

// Delete removes a conversation and all of its messages. Missing
// conversations are not an error.
func (c *Conversations) Delete(ctx context.Context, ownerID, id string) error {
	if err := c.store.DeleteConversation(ctx, ownerID, id); err != nil {
		return fmt.Errorf("chat: delete conversation: %w", err)
	}
	return nil
}

// Messages returns the conversation's messages in insertion order. The
// conversation must exist for the owner.
func (c *Conversations) Messages(ctx context.Context, ownerID, conversationID string) ([]memory.ChatMessage, error) {
	if _, err := c.Get(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := c.store.ListMessages(ctx, ownerID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("chat: list messages: %w", err)
	}
	return msgs, nil
}

// DeleteMessage removes one message; missing messages are not an error.
func (c *Conversations) DeleteMessage(ctx context.Context, ownerID, messageID string) error {
	if err := c.store.DeleteMessage(ctx, ownerID, messageID); err != nil {
		return fmt.Errorf("chat: delete message: %w", err)
	}
	return nil
}
