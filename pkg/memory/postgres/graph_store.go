package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/memoroo/memoroo/pkg/memory"
)

// pgForeignKeyViolation is the PostgreSQL error code raised when an edge
// references a unit that does not exist for the owner.
const pgForeignKeyViolation = "23503"

// AddEdge implements [memory.GraphStore]. It upserts a directed edge. The
// endpoint-existence check is the edges table's composite foreign keys into
// memory_units; a violation surfaces as a descriptive error rather than a
// raw SQLSTATE.
func (s *Store) AddEdge(ctx context.Context, e memory.Edge) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	const q = `
		INSERT INTO edges (owner_id, source_id, target_id, rel_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, source_id, target_id, rel_type) DO UPDATE SET
		    created_at = edges.created_at`

	_, err := s.pool.Exec(ctx, q, e.OwnerID, e.SourceID, e.TargetID, e.RelType, e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("graph store: add edge: endpoint unit not found for owner")
		}
		return fmt.Errorf("graph store: add edge: %w", err)
	}
	return nil
}

// DeleteEdge implements [memory.GraphStore]. Deleting a non-existent edge is
// not an error.
func (s *Store) DeleteEdge(ctx context.Context, ownerID, sourceID, targetID, relType string) error {
	const q = `
		DELETE FROM edges
		WHERE  owner_id = $1 AND source_id = $2 AND target_id = $3 AND rel_type = $4`

	if _, err := s.pool.Exec(ctx, q, ownerID, sourceID, targetID, relType); err != nil {
		return fmt.Errorf("graph store: delete edge: %w", err)
	}
	return nil
}

// ListEdges implements [memory.GraphStore]. Edges touching unitID on either
// side, newest first.
func (s *Store) ListEdges(ctx context.Context, ownerID, unitID string) ([]memory.Edge, error) {
	const q = `
		SELECT owner_id, source_id, target_id, rel_type, created_at
		FROM   edges
		WHERE  owner_id = $1
		  AND  (source_id = $2 OR target_id = $2)
		ORDER  BY created_at DESC, source_id, target_id`

	rows, err := s.pool.Query(ctx, q, ownerID, unitID)
	if err != nil {
		return nil, fmt.Errorf("graph store: list edges: %w", err)
	}

	edges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Edge, error) {
		var e memory.Edge
		if err := row.Scan(&e.OwnerID, &e.SourceID, &e.TargetID, &e.RelType, &e.CreatedAt); err != nil {
			return memory.Edge{}, err
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph store: scan rows: %w", err)
	}
	if edges == nil {
		edges = []memory.Edge{}
	}
	return edges, nil
}

// Neighbors implements [memory.GraphStore]. It returns the units directly
// connected to unitID in either direction, deduplicated.
func (s *Store) Neighbors(ctx context.Context, ownerID, unitID string) ([]memory.MemoryUnit, error) {
	const q = `
		SELECT u.owner_id, u.id, u.source_type, u.title, u.content, u.tags,
		       u.embedding_model, u.created_at, u.updated_at
		FROM   memory_units u
		WHERE  u.owner_id = $1
		  AND  u.id IN (
		        SELECT CASE WHEN source_id = $2 THEN target_id ELSE source_id END
		        FROM   edges
		        WHERE  owner_id = $1
		          AND  (source_id = $2 OR target_id = $2))
		ORDER  BY u.id`

	rows, err := s.pool.Query(ctx, q, ownerID, unitID)
	if err != nil {
		return nil, fmt.Errorf("graph store: neighbors: %w", err)
	}
	units, err := collectUnits(rows)
	if err != nil {
		return nil, fmt.Errorf("graph store: neighbors: %w", err)
	}
	return units, nil
}
