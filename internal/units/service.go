// Package units implements the memory-unit service: owner-scoped CRUD over
// cards, graph nodes, wiki entries and attachment texts, with the vector
// index kept in lockstep.
//
// Writes embed synchronously: when Create or Update returns, the unit is
// already searchable (read-your-writes). Deletes remove the vector in the
// same call. ReindexAll re-embeds an owner's entire corpus after an
// embedding-model switch.
package units

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
	"github.com/memoroo/memoroo/pkg/provider/embeddings"
)

const (
	// reindexBatchSize is the number of units embedded per provider call
	// during ReindexAll.
	reindexBatchSize = 32

	// reindexConcurrency bounds the in-flight embedding batches.
	reindexConcurrency = 4
)

// Service owns all writes to the unit store, the vector index, and the graph.
type Service struct {
	store    memory.UnitStore
	index    memory.VectorIndex
	graph    memory.GraphStore
	embedder embeddings.Provider
	metrics  *observe.Metrics
	now      func() time.Time
}

// NewService creates a unit [Service]. metrics may be nil to use the
// process-wide default instruments.
func NewService(store memory.UnitStore, index memory.VectorIndex, graph memory.GraphStore, embedder embeddings.Provider, metrics *observe.Metrics) *Service {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Service{
		store:    store,
		index:    index,
		graph:    graph,
		embedder: embedder,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Create stores a new unit and indexes its embedding before returning. A
// missing ID is generated; OwnerID, a valid SourceType, and non-empty Content
// are required.
func (s *Service) Create(ctx context.Context, unit memory.MemoryUnit) (*memory.MemoryUnit, error) {
	if err := validateUnit(&unit); err != nil {
		return nil, err
	}
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	unit.CreatedAt = s.now()
	unit.UpdatedAt = unit.CreatedAt
	return s.put(ctx, unit)
}

// Update replaces an existing unit's content and re-indexes it. The unit
// must already exist for the owner.
func (s *Service) Update(ctx context.Context, unit memory.MemoryUnit) (*memory.MemoryUnit, error) {
	if err := validateUnit(&unit); err != nil {
		return nil, err
	}
	if unit.ID == "" {
		return nil, apperr.New(apperr.KindInvalid, "units: update requires an id")
	}
	existing, err := s.store.GetUnit(ctx, unit.OwnerID, unit.ID)
	if err != nil {
		return nil, fmt.Errorf("units: load unit: %w", err)
	}
	if existing == nil {
		return nil, apperr.New(apperr.KindNotFound, "units: unit %q not found", unit.ID)
	}
	unit.CreatedAt = existing.CreatedAt
	unit.UpdatedAt = s.now()
	return s.put(ctx, unit)
}

// put persists the unit, embeds it, and upserts the vector.
func (s *Service) put(ctx context.Context, unit memory.MemoryUnit) (*memory.MemoryUnit, error) {
	start := time.Now()
	vector, err := s.embedder.Embed(ctx, embeddingText(unit))
	if err != nil {
		return nil, fmt.Errorf("units: embed unit %q: %w", unit.ID, err)
	}
	s.metrics.EmbeddingDuration.Record(ctx, time.Since(start).Seconds())

	unit.EmbeddingModel = s.embedder.ModelID()
	if err := s.store.PutUnit(ctx, unit); err != nil {
		return nil, fmt.Errorf("units: store unit %q: %w", unit.ID, err)
	}
	if err := s.index.Upsert(ctx, unit.OwnerID, unit.SourceType, unit.ID, vector); err != nil {
		return nil, fmt.Errorf("units: index unit %q: %w", unit.ID, err)
	}
	s.metrics.RecordUnitIndexed(ctx, string(unit.SourceType))
	return &unit, nil
}

// Get retrieves one unit. A unit that does not exist for the owner — whether
// missing or owned by someone else — is KindNotFound.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*memory.MemoryUnit, error) {
	unit, err := s.store.GetUnit(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("units: load unit: %w", err)
	}
	if unit == nil {
		return nil, apperr.New(apperr.KindNotFound, "units: unit %q not found", id)
	}
	return unit, nil
}

// List returns the owner's units matching the given options.
func (s *Service) List(ctx context.Context, ownerID string, opts ...memory.ListOpt) ([]memory.MemoryUnit, error) {
	units, err := s.store.ListUnits(ctx, ownerID, opts...)
	if err != nil {
		return nil, fmt.Errorf("units: list units: %w", err)
	}
	return units, nil
}

// Delete removes the unit and its vector. Missing units are not an error;
// the result state is identical.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	unit, err := s.store.GetUnit(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("units: load unit: %w", err)
	}
	if unit == nil {
		return nil
	}
	if err := s.store.DeleteUnit(ctx, ownerID, id); err != nil {
		return fmt.Errorf("units: delete unit %q: %w", id, err)
	}
	if err := s.index.Delete(ctx, ownerID, unit.SourceType, id); err != nil {
		return fmt.Errorf("units: deindex unit %q: %w", id, err)
	}
	return nil
}

// AddEdge links two of the owner's units. Both endpoints must exist.
func (s *Service) AddEdge(ctx context.Context, e memory.Edge) error {
	if e.OwnerID == "" || e.SourceID == "" || e.TargetID == "" || e.RelType == "" {
		return apperr.New(apperr.KindInvalid, "units: edge requires owner, endpoints, and rel type")
	}
	for _, id := range []string{e.SourceID, e.TargetID} {
		unit, err := s.store.GetUnit(ctx, e.OwnerID, id)
		if err != nil {
			return fmt.Errorf("units: load edge endpoint: %w", err)
		}
		if unit == nil {
			return apperr.New(apperr.KindNotFound, "units: edge endpoint %q not found", id)
		}
	}
	e.CreatedAt = s.now()
	if err := s.graph.AddEdge(ctx, e); err != nil {
		return fmt.Errorf("units: add edge: %w", err)
	}
	return nil
}

// DeleteEdge removes one edge; missing edges are not an error.
func (s *Service) DeleteEdge(ctx context.Context, ownerID, sourceID, targetID, relType string) error {
	if err := s.graph.DeleteEdge(ctx, ownerID, sourceID, targetID, relType); err != nil {
		return fmt.Errorf("units: delete edge: %w", err)
	}
	return nil
}

// ListEdges returns all edges touching the unit.
func (s *Service) ListEdges(ctx context.Context, ownerID, unitID string) ([]memory.Edge, error) {
	edges, err := s.graph.ListEdges(ctx, ownerID, unitID)
	if err != nil {
		return nil, fmt.Errorf("units: list edges: %w", err)
	}
	return edges, nil
}

// Neighbors returns the units directly linked to unitID.
func (s *Service) Neighbors(ctx context.Context, ownerID, unitID string) ([]memory.MemoryUnit, error) {
	neighbors, err := s.graph.Neighbors(ctx, ownerID, unitID)
	if err != nil {
		return nil, fmt.Errorf("units: list neighbors: %w", err)
	}
	return neighbors, nil
}

// ReindexAll re-embeds every unit of the owner with the current embedding
// model and upserts the fresh vectors. Batches run concurrently; the first
// failure cancels the rest. Returns the number of units reindexed.
func (s *Service) ReindexAll(ctx context.Context, ownerID string) (int, error) {
	units, err := s.store.ListUnits(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("units: list for reindex: %w", err)
	}
	if len(units) == 0 {
		return 0, nil
	}

	modelID := s.embedder.ModelID()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexConcurrency)

	for start := 0; start < len(units); start += reindexBatchSize {
		batch := units[start:min(start+reindexBatchSize, len(units))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, u := range batch {
				texts[i] = embeddingText(u)
			}
			vectors, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("units: embed batch: %w", err)
			}
			for i, u := range batch {
				if err := s.index.Upsert(gctx, ownerID, u.SourceType, u.ID, vectors[i]); err != nil {
					return fmt.Errorf("units: reindex unit %q: %w", u.ID, err)
				}
				u.EmbeddingModel = modelID
				if err := s.store.PutUnit(gctx, u); err != nil {
					return fmt.Errorf("units: update model tag on %q: %w", u.ID, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	observe.Logger(ctx).Info("reindex complete",
		"owner_id", ownerID, "units", len(units), "model", modelID)
	return len(units), nil
}

// embeddingText is the canonical text embedded for a unit: the title gives
// the vector a strong signal even when the content is long.
func embeddingText(u memory.MemoryUnit) string {
	if u.Title == "" {
		return u.Content
	}
	return u.Title + "\n" + u.Content
}

func validateUnit(unit *memory.MemoryUnit) error {
	if unit.OwnerID == "" {
		return apperr.New(apperr.KindInvalid, "units: owner id must not be empty")
	}
	if !unit.SourceType.IsValid() {
		return apperr.New(apperr.KindInvalid, "units: unknown source type %q", unit.SourceType)
	}
	if unit.Content == "" {
		return apperr.New(apperr.KindInvalid, "units: content must not be empty")
	}
	return nil
}
