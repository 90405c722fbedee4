package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/memoroo/memoroo/pkg/memory"
)

// PutUnit implements [memory.UnitStore]. It upserts a unit keyed by
// (owner_id, id); an existing row is completely replaced except for its
// created_at, and updated_at is refreshed.
func (s *Store) PutUnit(ctx context.Context, unit memory.MemoryUnit) error {
	if unit.OwnerID == "" || unit.ID == "" {
		return fmt.Errorf("unit store: put unit: owner id and id must not be empty")
	}
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = time.Now()
	}
	if unit.Tags == nil {
		unit.Tags = []string{}
	}

	const q = `
		INSERT INTO memory_units
		    (owner_id, id, source_type, title, content, tags, embedding_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (owner_id, id) DO UPDATE SET
		    source_type      = EXCLUDED.source_type,
		    title            = EXCLUDED.title,
		    content          = EXCLUDED.content,
		    tags             = EXCLUDED.tags,
		    embedding_model  = EXCLUDED.embedding_model,
		    updated_at       = now()`

	_, err := s.pool.Exec(ctx, q,
		unit.OwnerID,
		unit.ID,
		string(unit.SourceType),
		unit.Title,
		unit.Content,
		unit.Tags,
		unit.EmbeddingModel,
		unit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("unit store: put unit: %w", err)
	}
	return nil
}

// GetUnit implements [memory.UnitStore]. Returns (nil, nil) when the unit
// does not exist under ownerID.
func (s *Store) GetUnit(ctx context.Context, ownerID, id string) (*memory.MemoryUnit, error) {
	const q = `
		SELECT owner_id, id, source_type, title, content, tags, embedding_model, created_at, updated_at
		FROM   memory_units
		WHERE  owner_id = $1 AND id = $2`

	rows, err := s.pool.Query(ctx, q, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("unit store: get unit: %w", err)
	}
	units, err := collectUnits(rows)
	if err != nil {
		return nil, fmt.Errorf("unit store: get unit: %w", err)
	}
	if len(units) == 0 {
		return nil, nil
	}
	return &units[0], nil
}

// ListUnits implements [memory.UnitStore]. All non-zero options apply as AND
// conditions; results come back newest first.
func (s *Store) ListUnits(ctx context.Context, ownerID string, opts ...memory.ListOpt) ([]memory.MemoryUnit, error) {
	params := memory.ApplyListOpts(opts)

	args := []any{ownerID} // $1 = owner scope, always present
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"owner_id = $1"}
	if len(params.SourceTypes) > 0 {
		types := make([]string, len(params.SourceTypes))
		for i, st := range params.SourceTypes {
			types[i] = string(st)
		}
		conditions = append(conditions, "source_type = ANY("+next(types)+")")
	}
	if params.Search != "" {
		arg := next("%" + params.Search + "%")
		conditions = append(conditions, "(title ILIKE "+arg+" OR content ILIKE "+arg+")")
	}
	if !params.After.IsZero() {
		conditions = append(conditions, "created_at > "+next(params.After))
	}
	if !params.Before.IsZero() {
		conditions = append(conditions, "created_at < "+next(params.Before))
	}

	q := "SELECT owner_id, id, source_type, title, content, tags, embedding_model, created_at, updated_at\n" +
		"FROM   memory_units\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY created_at DESC, id"

	if params.Limit > 0 {
		args = append(args, params.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("unit store: list units: %w", err)
	}
	units, err := collectUnits(rows)
	if err != nil {
		return nil, fmt.Errorf("unit store: list units: %w", err)
	}
	return units, nil
}

// DeleteUnit implements [memory.UnitStore]. Edges touching the unit go with
// it via ON DELETE CASCADE. Deleting a non-existent or foreign-owned unit is
// not an error.
func (s *Store) DeleteUnit(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM memory_units WHERE owner_id = $1 AND id = $2`
	if _, err := s.pool.Exec(ctx, q, ownerID, id); err != nil {
		return fmt.Errorf("unit store: delete unit: %w", err)
	}
	return nil
}

// collectUnits scans pgx rows into a non-nil slice of MemoryUnit values.
func collectUnits(rows pgx.Rows) ([]memory.MemoryUnit, error) {
	units, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.MemoryUnit, error) {
		var (
			u          memory.MemoryUnit
			sourceType string
		)
		if err := row.Scan(
			&u.OwnerID,
			&u.ID,
			&sourceType,
			&u.Title,
			&u.Content,
			&u.Tags,
			&u.EmbeddingModel,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return memory.MemoryUnit{}, err
		}
		u.SourceType = memory.SourceType(sourceType)
		return u, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	if units == nil {
		units = []memory.MemoryUnit{}
	}
	return units, nil
}
