package units

import (
	"context"
	"testing"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
	memmock "github.com/memoroo/memoroo/pkg/memory/mock"
	embmock "github.com/memoroo/memoroo/pkg/provider/embeddings/mock"
)

func newService(embedder *embmock.Provider) (*Service, *memmock.Store) {
	store := memmock.New()
	return NewService(store, store, store, embedder, nil), store
}

// TestCreate_EmbedsAndIndexes verifies a created unit is stored, tagged with
// the embedding model, and immediately searchable.
func TestCreate_EmbedsAndIndexes(t *testing.T) {
	embedder := &embmock.Provider{EmbedResult: []float32{1, 0}, ModelIDValue: "embed-v1"}
	svc, store := newService(embedder)
	ctx := context.Background()

	created, err := svc.Create(ctx, memory.MemoryUnit{
		OwnerID:    "owner-1",
		SourceType: memory.SourceCard,
		Title:      "Hike",
		Content:    "Saturday at dawn",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("Create did not assign an id")
	}
	if created.EmbeddingModel != "embed-v1" {
		t.Errorf("EmbeddingModel = %q, want embed-v1", created.EmbeddingModel)
	}

	// Read-your-writes: the vector is queryable as soon as Create returns.
	hits, err := store.Query(ctx, "owner-1", []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 || hits[0].SourceID != created.ID {
		t.Errorf("hits = %v, want the created unit", hits)
	}

	// The embedded text includes the title.
	if len(embedder.EmbedCalls) != 1 {
		t.Fatalf("Embed called %d times, want 1", len(embedder.EmbedCalls))
	}
	if embedder.EmbedCalls[0].Text != "Hike\nSaturday at dawn" {
		t.Errorf("embedded text = %q", embedder.EmbedCalls[0].Text)
	}
}

// TestCreate_Validation verifies the invalid-input cases.
func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(&embmock.Provider{})
	ctx := context.Background()

	cases := []struct {
		name string
		unit memory.MemoryUnit
	}{
		{"missing owner", memory.MemoryUnit{SourceType: memory.SourceCard, Content: "x"}},
		{"bad source type", memory.MemoryUnit{OwnerID: "o", SourceType: "bogus", Content: "x"}},
		{"empty content", memory.MemoryUnit{OwnerID: "o", SourceType: memory.SourceCard}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.unit); !apperr.IsKind(err, apperr.KindInvalid) {
				t.Errorf("error = %v, want KindInvalid", err)
			}
		})
	}
}

// TestUpdate_PreservesCreatedAt verifies updates keep the original creation
// time and reject missing units.
func TestUpdate_PreservesCreatedAt(t *testing.T) {
	embedder := &embmock.Provider{EmbedResult: []float32{1, 0}, ModelIDValue: "embed-v1"}
	svc, _ := newService(embedder)
	ctx := context.Background()

	created, err := svc.Create(ctx, memory.MemoryUnit{
		OwnerID: "owner-1", SourceType: memory.SourceCard, Content: "before",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, memory.MemoryUnit{
		ID: created.ID, OwnerID: "owner-1", SourceType: memory.SourceCard, Content: "after",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v → %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.Content != "after" {
		t.Errorf("Content = %q, want after", updated.Content)
	}

	_, err = svc.Update(ctx, memory.MemoryUnit{
		ID: "ghost", OwnerID: "owner-1", SourceType: memory.SourceCard, Content: "x",
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("updating missing unit: error = %v, want KindNotFound", err)
	}
}

// TestGet_NotFoundConflatesOwnership verifies foreign units look missing.
func TestGet_NotFoundConflatesOwnership(t *testing.T) {
	embedder := &embmock.Provider{EmbedResult: []float32{1, 0}}
	svc, _ := newService(embedder)
	ctx := context.Background()

	created, err := svc.Create(ctx, memory.MemoryUnit{
		OwnerID: "owner-1", SourceType: memory.SourceCard, Content: "mine",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, "owner-2", created.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("foreign get: error = %v, want KindNotFound", err)
	}
	if _, err := svc.Get(ctx, "owner-1", "ghost"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("missing get: error = %v, want KindNotFound", err)
	}
}

// TestDelete_RemovesVector verifies the index entry goes away with the unit
// and that deleting a missing unit is a no-op.
func TestDelete_RemovesVector(t *testing.T) {
	embedder := &embmock.Provider{EmbedResult: []float32{1, 0}}
	svc, store := newService(embedder)
	ctx := context.Background()

	created, err := svc.Create(ctx, memory.MemoryUnit{
		OwnerID: "owner-1", SourceType: memory.SourceCard, Content: "ephemeral",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, "owner-1", created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, err := store.Query(ctx, "owner-1", []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("vector still queryable after delete: %v", hits)
	}

	if err := svc.Delete(ctx, "owner-1", "ghost"); err != nil {
		t.Errorf("deleting missing unit: %v, want nil", err)
	}
}

// TestAddEdge_ValidatesEndpoints verifies edges require both units to exist
// for the owner.
func TestAddEdge_ValidatesEndpoints(t *testing.T) {
	embedder := &embmock.Provider{EmbedResult: []float32{1, 0}}
	svc, _ := newService(embedder)
	ctx := context.Background()

	a, err := svc.Create(ctx, memory.MemoryUnit{OwnerID: "owner-1", SourceType: memory.SourceNode, Content: "a"})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := svc.Create(ctx, memory.MemoryUnit{OwnerID: "owner-1", SourceType: memory.SourceNode, Content: "b"})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if err := svc.AddEdge(ctx, memory.Edge{
		OwnerID: "owner-1", SourceID: a.ID, TargetID: b.ID, RelType: "relates_to",
	}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	edges, err := svc.ListEdges(ctx, "owner-1", a.ID)
	if err != nil {
		t.Fatalf("ListEdges: %v", err)
	}
	if len(edges) != 1 || edges[0].TargetID != b.ID {
		t.Errorf("edges = %v, want one edge to %s", edges, b.ID)
	}

	err = svc.AddEdge(ctx, memory.Edge{
		OwnerID: "owner-1", SourceID: a.ID, TargetID: "ghost", RelType: "relates_to",
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("missing endpoint: error = %v, want KindNotFound", err)
	}
}

// TestReindexAll verifies every unit is re-embedded and retagged with the
// current model.
func TestReindexAll(t *testing.T) {
	embedder := &embmock.Provider{EmbedResult: []float32{1, 0}, ModelIDValue: "embed-v1"}
	svc, store := newService(embedder)
	ctx := context.Background()

	var ids []string
	for _, content := range []string{"a", "b", "c"} {
		u, err := svc.Create(ctx, memory.MemoryUnit{
			OwnerID: "owner-1", SourceType: memory.SourceCard, Content: content,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, u.ID)
	}

	// Simulate a model upgrade.
	embedder.ModelIDValue = "embed-v2"
	embedder.EmbedBatchResult = [][]float32{{0, 1}, {0, 1}, {0, 1}}

	n, err := svc.ReindexAll(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if n != 3 {
		t.Errorf("reindexed %d units, want 3", n)
	}
	if len(embedder.EmbedBatchCalls) != 1 {
		t.Errorf("EmbedBatch called %d times, want 1", len(embedder.EmbedBatchCalls))
	}

	for _, id := range ids {
		u, err := store.GetUnit(ctx, "owner-1", id)
		if err != nil || u == nil {
			t.Fatalf("GetUnit %s: %v %v", id, u, err)
		}
		if u.EmbeddingModel != "embed-v2" {
			t.Errorf("unit %s EmbeddingModel = %q, want embed-v2", id, u.EmbeddingModel)
		}
	}

	// Vectors moved to the new embedding.
	hits, err := store.Query(ctx, "owner-1", []float32{0, 1}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	for _, h := range hits {
		if h.Score < 0.99 {
			t.Errorf("hit %s score = %v, want ~1.0 against new vector", h.SourceID, h.Score)
		}
	}
}

// TestReindexAll_EmptyOwner verifies an owner without units is a no-op.
func TestReindexAll_EmptyOwner(t *testing.T) {
	embedder := &embmock.Provider{}
	svc, _ := newService(embedder)

	n, err := svc.ReindexAll(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if n != 0 {
		t.Errorf("reindexed %d units, want 0", n)
	}
	if len(embedder.EmbedBatchCalls) != 0 {
		t.Errorf("EmbedBatch called %d times for empty owner, want 0", len(embedder.EmbedBatchCalls))
	}
}
