package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/memoroo/memoroo/pkg/memory"
)

// Upsert implements [memory.VectorIndex]. It stores the vector under
// (owner_id, source_type, source_id), replacing any existing vector for that
// key. The row's created_at is set on first insert and preserved across
// re-upserts so that the query tie-break order stays stable when a unit is
// re-embedded.
func (s *Store) Upsert(ctx context.Context, ownerID string, sourceType memory.SourceType, sourceID string, vector []float32) error {
	if ownerID == "" || sourceID == "" {
		return fmt.Errorf("vector index: upsert: owner id and source id must not be empty")
	}

	const q = `
		INSERT INTO unit_vectors (owner_id, source_type, source_id, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, source_type, source_id) DO UPDATE SET
		    embedding = EXCLUDED.embedding`

	_, err := s.pool.Exec(ctx, q, ownerID, string(sourceType), sourceID, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("vector index: upsert: %w", err)
	}
	return nil
}

// Query implements [memory.VectorIndex]. It returns up to k hits among
// ownerID's vectors, scored by cosine similarity normalised to [0,1].
//
// pgvector's <=> operator yields cosine distance (1 - cosine); the score is
// 1 - distance clamped into [0,1], so an opposite-direction vector scores 0
// rather than negative. Equal scores order by created_at descending (newest
// first). The owner_id condition is part of the SQL predicate; cross-owner
// vectors are never fetched, let alone filtered out afterwards.
func (s *Store) Query(ctx context.Context, ownerID string, vector []float32, k int) ([]memory.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("vector index: query: k must be >= 1, got %d", k)
	}

	const q = `
		SELECT source_type, source_id,
		       GREATEST(0, LEAST(1, 1 - (embedding <=> $1)))::float8 AS score
		FROM   unit_vectors
		WHERE  owner_id = $2
		ORDER  BY score DESC, created_at DESC, source_id
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vector), ownerID, k)
	if err != nil {
		return nil, fmt.Errorf("vector index: query: %w", err)
	}

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Hit, error) {
		var (
			h          memory.Hit
			sourceType string
		)
		if err := row.Scan(&sourceType, &h.SourceID, &h.Score); err != nil {
			return memory.Hit{}, err
		}
		h.SourceType = memory.SourceType(sourceType)
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("vector index: scan rows: %w", err)
	}
	if hits == nil {
		hits = []memory.Hit{}
	}
	return hits, nil
}

// Delete implements [memory.VectorIndex]. Deleting a non-existent key is not
// an error. The delete is synchronous; a query issued after Delete returns
// will not surface the key.
func (s *Store) Delete(ctx context.Context, ownerID string, sourceType memory.SourceType, sourceID string) error {
	const q = `DELETE FROM unit_vectors WHERE owner_id = $1 AND source_type = $2 AND source_id = $3`
	if _, err := s.pool.Exec(ctx, q, ownerID, string(sourceType), sourceID); err != nil {
		return fmt.Errorf("vector index: delete: %w", err)
	}
	return nil
}
