package memory

import "time"

// SourceType classifies what kind of record a [MemoryUnit] originated from.
// The vector index keys vectors by (owner, source type, source id), so the
// same id may exist under different source types without collision.
type SourceType string

const (
	// SourceCard is a free-form memory card (note, link, snippet).
	SourceCard SourceType = "card"

	// SourceNode is a knowledge-graph node.
	SourceNode SourceType = "node"

	// SourceWiki is a personal wiki entry.
	SourceWiki SourceType = "wiki"

	// SourceMessage is a chat message promoted into long-term memory.
	SourceMessage SourceType = "message"

	// SourceAttachment is text extracted from an uploaded attachment
	// (OCR output for images/PDFs, transcription output for voice notes).
	SourceAttachment SourceType = "attachment"
)

// IsValid reports whether s is a recognised source type.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceCard, SourceNode, SourceWiki, SourceMessage, SourceAttachment:
		return true
	}
	return false
}

// MemoryUnit is the universal embeddable record: one owner-scoped piece of
// remembered content, regardless of which surface created it.
//
// OwnerID is immutable after creation. A unit has at most one current vector
// in the index per embedding-model version; re-embedding replaces it.
type MemoryUnit struct {
	// ID is the unique identifier within (OwnerID, SourceType).
	ID string

	// OwnerID is the user account that exclusively controls this unit.
	OwnerID string

	// SourceType classifies the originating record.
	SourceType SourceType

	// Title is a short human-readable label. May be empty for raw captures.
	Title string

	// Content is the raw text used for embedding and for retrieval excerpts.
	Content string

	// Tags are free-form labels attached by the user or by metadata extraction.
	Tags []string

	// EmbeddingModel records which embedding model produced the unit's current
	// vector. Empty when the unit has not been embedded yet.
	EmbeddingModel string

	// CreatedAt is when the unit was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the unit content was last modified.
	UpdatedAt time.Time
}

// Hit is a single nearest-neighbour result from the [VectorIndex].
// Score is cosine similarity normalised to [0,1]: 1 means identical
// direction, 0 means orthogonal or opposite (negative cosine clamps to 0).
type Hit struct {
	SourceType SourceType
	SourceID   string
	Score      float64
}

// Role identifies the author of a [ChatMessage].
type Role string

const (
	// RoleUser marks a message written by the owning human.
	RoleUser Role = "user"

	// RoleAI marks a generated assistant response.
	RoleAI Role = "ai"
)

// IsValid reports whether r is a recognised message role.
func (r Role) IsValid() bool { return r == RoleUser || r == RoleAI }

// Conversation is an owner-scoped container for an ordered message sequence.
// Insertion order is causal order and is never rewritten.
type Conversation struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one turn half within a conversation. Messages are created
// once by the pipeline and are immutable afterwards; they are deleted
// individually or cascaded with their conversation.
type ChatMessage struct {
	// ID is the unique message identifier.
	ID string

	// ConversationID is the owning conversation.
	ConversationID string

	// Role is who authored the message.
	Role Role

	// Content is the message text.
	Content string

	// Timestamp is when the message was persisted.
	Timestamp time.Time

	// RelatedMemoryIDs lists the memory units that informed an AI response.
	// It is a point-in-time snapshot of the retrieval that produced this
	// specific message, never a live reference. Always empty for user
	// messages and for degraded fallback responses.
	RelatedMemoryIDs []string

	// Action optionally records a side effect taken during the turn
	// (e.g. "memory_created", "degraded_fallback").
	Action string

	// MoodContext is the advisory mood label classified from the user's
	// message of the same turn. Empty for user messages.
	MoodContext string
}

// Edge is a directed, typed link between two memory units of the same owner.
type Edge struct {
	OwnerID   string
	SourceID  string
	TargetID  string
	RelType   string
	CreatedAt time.Time
}

// MoodLog is one Life OS mood record. Entries are appended automatically by
// the chat pipeline's mood tagging and manually via the API.
type MoodLog struct {
	ID        string
	OwnerID   string
	Label     string
	Score     int // 0–100, 0 when unknown
	Note      string
	Timestamp time.Time
}

// TimelineEvent is one Life OS timeline record.
type TimelineEvent struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Timestamp   time.Time
}

// Habit is one Life OS tracked habit. Streak counts consecutive check-ins at
// the declared frequency; a check-in after a gap resets it to 1.
type Habit struct {
	ID          string
	OwnerID     string
	Name        string
	Frequency   string // "daily" or "weekly"
	Streak      int
	LastCheckIn time.Time
	CreatedAt   time.Time
}

// User is an account record. TokenDigest is the SHA-256 hex digest of the
// user's opaque API token; raw tokens are never stored.
type User struct {
	ID          string
	Email       string
	DisplayName string
	TokenDigest string
	CreatedAt   time.Time
}
