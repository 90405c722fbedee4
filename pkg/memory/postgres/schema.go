// Package postgres provides the PostgreSQL-backed implementation of the
// Memoroo memory layer (units, vectors, conversations, graph, Life OS, users).
//
// All stores share a single [pgxpool.Pool] connection pool. The pgvector
// extension must be available in the target database; [Migrate] installs it
// automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.PutUnit(ctx, unit)
//	_ = store.Upsert(ctx, ownerID, memory.SourceCard, unit.ID, vector)
//	hits, _ := store.Query(ctx, ownerID, queryVec, 5)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ─────────────────────────────────────────────────────────────────────────────
// DDL — accounts
// ─────────────────────────────────────────────────────────────────────────────

const ddlUsers = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT         PRIMARY KEY,
    email         TEXT         NOT NULL UNIQUE,
    display_name  TEXT         NOT NULL DEFAULT '',
    token_digest  TEXT         NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_users_token_digest
    ON users (token_digest);
`

// ─────────────────────────────────────────────────────────────────────────────
// DDL — memory units + knowledge graph edges
// ─────────────────────────────────────────────────────────────────────────────

// Units are keyed by (owner_id, id) so that id collisions between owners are
// impossible at the schema level, not just by query discipline.
const ddlUnits = `
CREATE TABLE IF NOT EXISTS memory_units (
    owner_id         TEXT         NOT NULL,
    id               TEXT         NOT NULL,
    source_type      TEXT         NOT NULL,
    title            TEXT         NOT NULL DEFAULT '',
    content          TEXT         NOT NULL,
    tags             TEXT[]       NOT NULL DEFAULT '{}',
    embedding_model  TEXT         NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (owner_id, id)
);

CREATE INDEX IF NOT EXISTS idx_units_owner_created
    ON memory_units (owner_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_units_owner_source_type
    ON memory_units (owner_id, source_type);

CREATE TABLE IF NOT EXISTS edges (
    owner_id    TEXT         NOT NULL,
    source_id   TEXT         NOT NULL,
    target_id   TEXT         NOT NULL,
    rel_type    TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (owner_id, source_id, target_id, rel_type),
    FOREIGN KEY (owner_id, source_id) REFERENCES memory_units (owner_id, id) ON DELETE CASCADE,
    FOREIGN KEY (owner_id, target_id) REFERENCES memory_units (owner_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_edges_owner_source
    ON edges (owner_id, source_id);

CREATE INDEX IF NOT EXISTS idx_edges_owner_target
    ON edges (owner_id, target_id);
`

// ─────────────────────────────────────────────────────────────────────────────
// DDL — conversations + chat messages
// ─────────────────────────────────────────────────────────────────────────────

// chat_messages carries a BIGSERIAL seq so that insertion order survives
// identical timestamps.
const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT         PRIMARY KEY,
    owner_id    TEXT         NOT NULL,
    title       TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_owner_updated
    ON conversations (owner_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS chat_messages (
    id                  TEXT         PRIMARY KEY,
    conversation_id     TEXT         NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
    seq                 BIGSERIAL,
    role                TEXT         NOT NULL,
    content             TEXT         NOT NULL,
    timestamp           TIMESTAMPTZ  NOT NULL DEFAULT now(),
    related_memory_ids  TEXT[]       NOT NULL DEFAULT '{}',
    action              TEXT         NOT NULL DEFAULT '',
    mood_context        TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq
    ON chat_messages (conversation_id, seq);
`

// ─────────────────────────────────────────────────────────────────────────────
// DDL — Life OS
// ─────────────────────────────────────────────────────────────────────────────

const ddlLifeOS = `
CREATE TABLE IF NOT EXISTS mood_logs (
    id         TEXT         PRIMARY KEY,
    owner_id   TEXT         NOT NULL,
    label      TEXT         NOT NULL,
    score      INT          NOT NULL DEFAULT 0,
    note       TEXT         NOT NULL DEFAULT '',
    timestamp  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_mood_logs_owner_ts
    ON mood_logs (owner_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS timeline_events (
    id           TEXT         PRIMARY KEY,
    owner_id     TEXT         NOT NULL,
    title        TEXT         NOT NULL,
    description  TEXT         NOT NULL DEFAULT '',
    timestamp    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_timeline_owner_ts
    ON timeline_events (owner_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS habits (
    owner_id       TEXT         NOT NULL,
    id             TEXT         NOT NULL,
    name           TEXT         NOT NULL,
    frequency      TEXT         NOT NULL,
    streak         INT          NOT NULL DEFAULT 0,
    last_check_in  TIMESTAMPTZ,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (owner_id, id)
);
`

// ddlVectors returns the vector-index DDL with the embedding dimension
// substituted. The dimension is baked into the column type at schema creation
// time.
func ddlVectors(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS unit_vectors (
    owner_id     TEXT         NOT NULL,
    source_type  TEXT         NOT NULL,
    source_id    TEXT         NOT NULL,
    embedding    vector(%d),
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (owner_id, source_type, source_id)
);

CREATE INDEX IF NOT EXISTS idx_unit_vectors_embedding
    ON unit_vectors USING hnsw (embedding vector_cosine_ops);

CREATE INDEX IF NOT EXISTS idx_unit_vectors_owner
    ON unit_vectors (owner_id);
`, embeddingDimensions)
}

// Migrate creates or ensures all required database tables and extensions
// exist. It is idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS) and safe to call on every application start.
//
// embeddingDimensions must match the vector model configured for your
// deployment (e.g., 1536 for OpenAI text-embedding-3-small, 768 for
// nomic-embed-text). Changing this value after the first migration requires a
// manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlUsers,
		ddlUnits,
		ddlVectors(embeddingDimensions),
		ddlConversations,
		ddlLifeOS,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
