// Package memory defines the domain model and storage contracts of the
// Memoroo memory layer.
//
// The layer is organised as five owner-scoped stores:
//
//   - [UnitStore]: the universal record store for embeddable content
//     (cards, graph nodes, wiki entries, promoted messages, attachment text).
//   - [VectorIndex]: nearest-neighbour search over unit embeddings, keyed by
//     (owner, source type, source id).
//   - [ConversationStore]: conversations and their ordered chat messages.
//   - [GraphStore]: typed edges between units.
//   - [LifeStore]: Life OS records (mood logs, timeline events, habits).
//
// All interfaces are public so that external packages can supply alternative
// backends (Postgres/pgvector, in-memory, …) without depending on Memoroo
// internals. Every method is scoped to a single owner: no implementation may
// ever return or mutate another owner's data, and lookups of records owned by
// someone else behave exactly like lookups of records that do not exist.
//
// Every implementation must be safe for concurrent use.
package memory

import (
	"context"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Unit listing options
// ─────────────────────────────────────────────────────────────────────────────

// listOptions accumulates options for [UnitStore.ListUnits].
// Unexported — callers configure it via [ListOpt] functional options.
type listOptions struct {
	sourceTypes []SourceType
	search      string
	after       time.Time
	before      time.Time
	limit       int
}

// ListOpt is a functional option for [UnitStore.ListUnits].
type ListOpt func(*listOptions)

// WithSourceTypes restricts the listing to units whose SourceType is in the
// provided list. An empty list (the default) returns all types.
func WithSourceTypes(types ...SourceType) ListOpt {
	return func(o *listOptions) {
		o.sourceTypes = append(o.sourceTypes, types...)
	}
}

// WithSearch restricts the listing to units whose title or content contains
// the given substring (case-insensitive). Empty matches everything.
func WithSearch(q string) ListOpt {
	return func(o *listOptions) { o.search = q }
}

// WithCreatedAfter filters units created after this instant (exclusive).
func WithCreatedAfter(t time.Time) ListOpt {
	return func(o *listOptions) { o.after = t }
}

// WithCreatedBefore filters units created before this instant (exclusive).
func WithCreatedBefore(t time.Time) ListOpt {
	return func(o *listOptions) { o.before = t }
}

// WithLimit caps the number of units returned.
// A value of 0 means the implementation may apply its own default.
func WithLimit(n int) ListOpt {
	return func(o *listOptions) { o.limit = n }
}

// ListParams holds the resolved parameters from a slice of [ListOpt].
type ListParams struct {
	SourceTypes []SourceType
	Search      string
	After       time.Time
	Before      time.Time
	Limit       int
}

// ApplyListOpts applies a slice of [ListOpt] functional options and returns
// the resolved parameters. This helper allows storage backends to read the
// option values without accessing the unexported [listOptions] type.
func ApplyListOpts(opts []ListOpt) ListParams {
	o := &listOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return ListParams{
		SourceTypes: o.sourceTypes,
		Search:      o.search,
		After:       o.after,
		Before:      o.before,
		Limit:       o.limit,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// UnitStore
// ─────────────────────────────────────────────────────────────────────────────

// UnitStore persists [MemoryUnit] records.
//
// All lookups take the owner id explicitly; a unit that exists under a
// different owner is indistinguishable from a unit that does not exist.
// Implementations must be safe for concurrent use.
type UnitStore interface {
	// PutUnit upserts a unit. If a unit with the same (OwnerID, SourceType, ID)
	// already exists it is completely replaced and UpdatedAt is refreshed;
	// CreatedAt of the existing record is preserved.
	PutUnit(ctx context.Context, unit MemoryUnit) error

	// GetUnit retrieves a unit by id within the owner's namespace, regardless
	// of source type. Returns (nil, nil) when no such unit exists for owner.
	GetUnit(ctx context.Context, ownerID, id string) (*MemoryUnit, error)

	// ListUnits returns the owner's units matching the given options, ordered
	// by CreatedAt descending. Returns an empty (non-nil) slice when nothing
	// matches.
	ListUnits(ctx context.Context, ownerID string, opts ...ListOpt) ([]MemoryUnit, error)

	// DeleteUnit removes the unit and any edges referencing it. Deleting a
	// non-existent or foreign-owned unit is not an error.
	DeleteUnit(ctx context.Context, ownerID, id string) error
}

// ─────────────────────────────────────────────────────────────────────────────
// VectorIndex
// ─────────────────────────────────────────────────────────────────────────────

// VectorIndex stores unit embeddings and answers owner-scoped
// nearest-neighbour queries.
//
// Owner scoping is a security invariant, not a feature: Query must never
// surface a vector stored under a different owner, under any circumstance.
// Implementations must be safe for concurrent use.
type VectorIndex interface {
	// Upsert stores vector under (ownerID, sourceType, sourceID), replacing
	// any existing vector for that key. Idempotent. The vector length must
	// match the index's configured dimension.
	Upsert(ctx context.Context, ownerID string, sourceType SourceType, sourceID string, vector []float32) error

	// Query returns up to k hits nearest to vector among ownerID's vectors,
	// ordered by descending score. Equal scores order by the source's
	// creation time, newest first. k must be ≥ 1.
	//
	// An owner with zero indexed vectors yields an empty (non-nil) slice,
	// not an error.
	Query(ctx context.Context, ownerID string, vector []float32, k int) ([]Hit, error)

	// Delete removes the vector under (ownerID, sourceType, sourceID).
	// Deleting a non-existent key is not an error. A query issued by the
	// deleting request after Delete returns must not surface the key
	// (read-your-writes).
	Delete(ctx context.Context, ownerID string, sourceType SourceType, sourceID string) error
}

// ─────────────────────────────────────────────────────────────────────────────
// ConversationStore
// ─────────────────────────────────────────────────────────────────────────────

// ConversationStore persists conversations and their ordered messages.
//
// Message order is insertion order and is never rewritten. Implementations
// must be safe for concurrent use; writers to different conversations never
// coordinate.
type ConversationStore interface {
	// CreateConversation stores a new conversation.
	CreateConversation(ctx context.Context, c Conversation) error

	// GetConversation retrieves the owner's conversation by id.
	// Returns (nil, nil) when no such conversation exists for owner.
	GetConversation(ctx context.Context, ownerID, id string) (*Conversation, error)

	// ListConversations returns all of the owner's conversations ordered by
	// UpdatedAt descending. Returns an empty (non-nil) slice when none exist.
	ListConversations(ctx context.Context, ownerID string) ([]Conversation, error)

	// DeleteConversation removes the conversation and cascades to all its
	// messages. Deleting a non-existent conversation is not an error.
	DeleteConversation(ctx context.Context, ownerID, id string) error

	// AppendMessage appends msg to its conversation and refreshes the
	// conversation's UpdatedAt. Fails when the conversation does not exist
	// for ownerID.
	AppendMessage(ctx context.Context, ownerID string, msg ChatMessage) error

	// ListMessages returns the conversation's messages in insertion order.
	// Fails when the conversation does not exist for ownerID.
	ListMessages(ctx context.Context, ownerID, conversationID string) ([]ChatMessage, error)

	// GetMessage retrieves a single message by id, constrained to
	// conversations owned by ownerID. Returns (nil, nil) when not found.
	GetMessage(ctx context.Context, ownerID, messageID string) (*ChatMessage, error)

	// DeleteMessage removes a single message. Deleting a non-existent or
	// foreign-owned message is not an error.
	DeleteMessage(ctx context.Context, ownerID, messageID string) error
}

// ─────────────────────────────────────────────────────────────────────────────
// GraphStore
// ─────────────────────────────────────────────────────────────────────────────

// GraphStore persists typed edges between an owner's memory units.
// Implementations must be safe for concurrent use.
type GraphStore interface {
	// AddEdge upserts a directed edge. If an edge with the same
	// (OwnerID, SourceID, TargetID, RelType) exists it is replaced.
	// Fails when either endpoint does not exist for the owner.
	AddEdge(ctx context.Context, e Edge) error

	// DeleteEdge removes the edge identified by (sourceID, targetID, relType).
	// Deleting a non-existent edge is not an error.
	DeleteEdge(ctx context.Context, ownerID, sourceID, targetID, relType string) error

	// ListEdges returns all edges touching unitID (either endpoint), ordered
	// by CreatedAt descending. Returns an empty (non-nil) slice when none.
	ListEdges(ctx context.Context, ownerID, unitID string) ([]Edge, error)

	// Neighbors returns the units directly connected to unitID in either
	// direction. Returns an empty (non-nil) slice when none.
	Neighbors(ctx context.Context, ownerID, unitID string) ([]MemoryUnit, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// LifeStore
// ─────────────────────────────────────────────────────────────────────────────

// LifeStore persists the Life OS records: mood logs, timeline events, and
// habits. Implementations must be safe for concurrent use.
type LifeStore interface {
	// AddMoodLog appends a mood log entry.
	AddMoodLog(ctx context.Context, log MoodLog) error

	// ListMoodLogs returns the owner's mood logs ordered by Timestamp
	// descending. Returns an empty (non-nil) slice when none exist.
	ListMoodLogs(ctx context.Context, ownerID string) ([]MoodLog, error)

	// DeleteMoodLog removes one entry; missing entries are not an error.
	DeleteMoodLog(ctx context.Context, ownerID, id string) error

	// AddTimelineEvent appends a timeline event.
	AddTimelineEvent(ctx context.Context, ev TimelineEvent) error

	// ListTimelineEvents returns the owner's events ordered by Timestamp
	// descending. Returns an empty (non-nil) slice when none exist.
	ListTimelineEvents(ctx context.Context, ownerID string) ([]TimelineEvent, error)

	// DeleteTimelineEvent removes one event; missing events are not an error.
	DeleteTimelineEvent(ctx context.Context, ownerID, id string) error

	// PutHabit upserts a habit by (OwnerID, ID).
	PutHabit(ctx context.Context, h Habit) error

	// GetHabit retrieves a habit. Returns (nil, nil) when not found for owner.
	GetHabit(ctx context.Context, ownerID, id string) (*Habit, error)

	// ListHabits returns the owner's habits ordered by CreatedAt descending.
	// Returns an empty (non-nil) slice when none exist.
	ListHabits(ctx context.Context, ownerID string) ([]Habit, error)

	// DeleteHabit removes a habit; missing habits are not an error.
	DeleteHabit(ctx context.Context, ownerID, id string) error
}

// ─────────────────────────────────────────────────────────────────────────────
// UserStore
// ─────────────────────────────────────────────────────────────────────────────

// UserStore persists account records and resolves API token digests.
// Implementations must be safe for concurrent use.
type UserStore interface {
	// CreateUser stores a new user. Duplicate emails are rejected with an
	// error of kind Conflict.
	CreateUser(ctx context.Context, u User) error

	// GetUser retrieves a user by id. Returns (nil, nil) when not found.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByTokenDigest resolves the SHA-256 hex digest of an API token to
	// its user. Returns (nil, nil) when no user holds that token.
	GetUserByTokenDigest(ctx context.Context, digest string) (*User, error)
}
