package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/memoroo/memoroo/pkg/memory"
)

// CreateConversation implements [memory.ConversationStore].
func (s *Store) CreateConversation(ctx context.Context, c memory.Conversation) error {
	if c.OwnerID == "" || c.ID == "" {
		return fmt.Errorf("conversation store: create: owner id and id must not be empty")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	const q = `
		INSERT INTO conversations (id, owner_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.pool.Exec(ctx, q, c.ID, c.OwnerID, c.Title, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("conversation store: create: %w", err)
	}
	return nil
}

// GetConversation implements [memory.ConversationStore]. Returns (nil, nil)
// when the conversation does not exist under ownerID.
func (s *Store) GetConversation(ctx context.Context, ownerID, id string) (*memory.Conversation, error) {
	const q = `
		SELECT id, owner_id, title, created_at, updated_at
		FROM   conversations
		WHERE  owner_id = $1 AND id = $2`

	rows, err := s.pool.Query(ctx, q, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("conversation store: get: %w", err)
	}
	convs, err := collectConversations(rows)
	if err != nil {
		return nil, fmt.Errorf("conversation store: get: %w", err)
	}
	if len(convs) == 0 {
		return nil, nil
	}
	return &convs[0], nil
}

// ListConversations implements [memory.ConversationStore]. Most recently
// active first.
func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]memory.Conversation, error) {
	const q = `
		SELECT id, owner_id, title, created_at, updated_at
		FROM   conversations
		WHERE  owner_id = $1
		ORDER  BY updated_at DESC, id`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("conversation store: list: %w", err)
	}
	convs, err := collectConversations(rows)
	if err != nil {
		return nil, fmt.Errorf("conversation store: list: %w", err)
	}
	return convs, nil
}

// DeleteConversation implements [memory.ConversationStore]. Messages cascade
// via the chat_messages foreign key.
func (s *Store) DeleteConversation(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM conversations WHERE owner_id = $1 AND id = $2`
	if _, err := s.pool.Exec(ctx, q, ownerID, id); err != nil {
		return fmt.Errorf("conversation store: delete: %w", err)
	}
	return nil
}

// AppendMessage implements [memory.ConversationStore]. The conversation's
// updated_at refresh and the message insert happen in one transaction, and
// the ownership check rides on the UPDATE: zero rows affected means the
// conversation does not exist for ownerID.
func (s *Store) AppendMessage(ctx context.Context, ownerID string, msg memory.ChatMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.RelatedMemoryIDs == nil {
		msg.RelatedMemoryIDs = []string{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("conversation store: append message: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const touch = `
		UPDATE conversations SET updated_at = now()
		WHERE  owner_id = $1 AND id = $2`

	tag, err := tx.Exec(ctx, touch, ownerID, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("conversation store: append message: touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation store: append message: conversation %q not found", msg.ConversationID)
	}

	const insert = `
		INSERT INTO chat_messages
		    (id, conversation_id, role, content, timestamp, related_memory_ids, action, mood_context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, insert,
		msg.ID,
		msg.ConversationID,
		string(msg.Role),
		msg.Content,
		msg.Timestamp,
		msg.RelatedMemoryIDs,
		msg.Action,
		msg.MoodContext,
	)
	if err != nil {
		return fmt.Errorf("conversation store: append message: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("conversation store: append message: commit: %w", err)
	}
	return nil
}

// ListMessages implements [memory.ConversationStore]. Messages come back in
// insertion order (seq ascending). Fails when the conversation does not
// exist for ownerID.
func (s *Store) ListMessages(ctx context.Context, ownerID, conversationID string) ([]memory.ChatMessage, error) {
	conv, err := s.GetConversation(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation store: list messages: conversation %q not found", conversationID)
	}

	const q = `
		SELECT id, conversation_id, role, content, timestamp, related_memory_ids, action, mood_context
		FROM   chat_messages
		WHERE  conversation_id = $1
		ORDER  BY seq`

	rows, err := s.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation store: list messages: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("conversation store: list messages: %w", err)
	}
	return msgs, nil
}

// GetMessage implements [memory.ConversationStore]. The join against
// conversations enforces ownership; a message in someone else's conversation
// is indistinguishable from a missing one.
func (s *Store) GetMessage(ctx context.Context, ownerID, messageID string) (*memory.ChatMessage, error) {
	const q = `
		SELECT m.id, m.conversation_id, m.role, m.content, m.timestamp,
		       m.related_memory_ids, m.action, m.mood_context
		FROM   chat_messages m
		JOIN   conversations c ON c.id = m.conversation_id
		WHERE  c.owner_id = $1 AND m.id = $2`

	rows, err := s.pool.Query(ctx, q, ownerID, messageID)
	if err != nil {
		return nil, fmt.Errorf("conversation store: get message: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("conversation store: get message: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

// DeleteMessage implements [memory.ConversationStore].
func (s *Store) DeleteMessage(ctx context.Context, ownerID, messageID string) error {
	const q = `
		DELETE FROM chat_messages m
		USING  conversations c
		WHERE  c.id = m.conversation_id
		  AND  c.owner_id = $1
		  AND  m.id = $2`

	if _, err := s.pool.Exec(ctx, q, ownerID, messageID); err != nil {
		return fmt.Errorf("conversation store: delete message: %w", err)
	}
	return nil
}

// collectConversations scans pgx rows into a non-nil slice of Conversation values.
func collectConversations(rows pgx.Rows) ([]memory.Conversation, error) {
	convs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Conversation, error) {
		var c memory.Conversation
		if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return memory.Conversation{}, err
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	if convs == nil {
		convs = []memory.Conversation{}
	}
	return convs, nil
}

// collectMessages scans pgx rows into a non-nil slice of ChatMessage values.
func collectMessages(rows pgx.Rows) ([]memory.ChatMessage, error) {
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.ChatMessage, error) {
		var (
			m    memory.ChatMessage
			role string
		)
		if err := row.Scan(
			&m.ID,
			&m.ConversationID,
			&role,
			&m.Content,
			&m.Timestamp,
			&m.RelatedMemoryIDs,
			&m.Action,
			&m.MoodContext,
		); err != nil {
			return memory.ChatMessage{}, err
		}
		m.Role = memory.Role(role)
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	if msgs == nil {
		msgs = []memory.ChatMessage{}
	}
	return msgs, nil
}
