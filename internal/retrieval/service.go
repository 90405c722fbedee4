// Package retrieval implements the RAG search stage of the chat pipeline:
// embed the query, run an owner-scoped nearest-neighbour search, and hydrate
// the hits into memory units.
//
// Callers never touch the vector index directly; this package is the only
// read path into it. Hits whose source unit has been deleted since indexing
// are dropped silently — a stale vector is an artifact of eventual cleanup,
// not an error the user can act on.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/pkg/memory"
	"github.com/memoroo/memoroo/pkg/provider/embeddings"
)

const (
	// defaultTopK is the number of hits requested when the caller passes 0.
	defaultTopK = 5

	// overfetchFactor compensates for hits lost to deleted source units. The
	// index may return vectors whose unit is gone; fetching extra candidates
	// keeps the final result close to k without a second round trip.
	overfetchFactor = 2
)

// Result is one retrieved memory with its similarity score in [0,1].
type Result struct {
	Unit  memory.MemoryUnit
	Score float64
}

// Options configures a [Service].
type Options struct {
	// TopK is the number of results to return. Zero means defaultTopK.
	TopK int

	// MinScore drops hits scoring below this threshold. Zero keeps everything.
	MinScore float64
}

// Service performs retrieval for chat turns and for the explicit search API.
type Service struct {
	embedder embeddings.Provider
	index    memory.VectorIndex
	units    memory.UnitStore
	metrics  *observe.Metrics
	topK     int
	minScore float64
}

// NewService creates a retrieval [Service]. metrics may be nil, in which case
// the process-wide default instruments are used.
func NewService(embedder embeddings.Provider, index memory.VectorIndex, units memory.UnitStore, opts Options, metrics *observe.Metrics) *Service {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Service{
		embedder: embedder,
		index:    index,
		units:    units,
		metrics:  metrics,
		topK:     opts.TopK,
		minScore: opts.MinScore,
	}
}

// Search embeds query and returns the owner's nearest memory units ordered by
// descending score. Results below the configured minimum score are dropped,
// as are hits whose source unit no longer exists. An owner with no memories
// gets an empty (non-nil) slice.
func (s *Service) Search(ctx context.Context, ownerID, query string) ([]Result, error) {
	return s.SearchK(ctx, ownerID, query, s.topK)
}

// SearchK is [Service.Search] with an explicit result count, used by the
// search API's limit parameter. k ≤ 0 falls back to the configured default.
func (s *Service) SearchK(ctx context.Context, ownerID, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = s.topK
	}

	embedStart := time.Now()
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	s.metrics.EmbeddingDuration.Record(ctx, time.Since(embedStart).Seconds())

	queryStart := time.Now()
	hits, err := s.index.Query(ctx, ownerID, vector, k*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query index: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < s.minScore {
			// Hits arrive ordered by score; everything after this is lower.
			break
		}
		unit, err := s.units.GetUnit(ctx, ownerID, hit.SourceID)
		if err != nil {
			return nil, fmt.Errorf("retrieval: hydrate unit %q: %w", hit.SourceID, err)
		}
		if unit == nil {
			// Source deleted after indexing; skip the stale vector.
			continue
		}
		results = append(results, Result{Unit: *unit, Score: hit.Score})
		if len(results) == k {
			break
		}
	}

	s.metrics.RetrievalDuration.Record(ctx, time.Since(queryStart).Seconds())
	s.metrics.RetrievalHits.Record(ctx, int64(len(results)))

	observe.Logger(ctx).Debug("retrieval complete",
		"owner_id", ownerID, "hits", len(results), "k", k)

	return results, nil
}
