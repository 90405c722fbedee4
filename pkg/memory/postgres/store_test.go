package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/memoroo/memoroo/pkg/memory"
	"github.com/memoroo/memoroo/pkg/memory/postgres"
)

const testEmbeddingDim = 4

// testDSN returns the test database DSN from the environment, or skips the
// test if MEMOROO_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MEMOROO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MEMOROO_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
// It calls t.Cleanup to close the store when the test finishes.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	// Use a bare pool to drop and recreate the schema.
	cleanPool := mustPool(t, ctx, dsn)
	t.Cleanup(cleanPool.Close)
	dropSchema(t, ctx, cleanPool)

	store, err := postgres.NewStore(ctx, dsn, testEmbeddingDim)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

// mustPool opens a pgxpool with pgvector types registered.
func mustPool(t *testing.T, ctx context.Context, dsn string) *pgxpool.Pool {
	t.Helper()
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// best-effort: pgvector may not be installed yet on a fresh DB
		_ = pgxvec.RegisterTypes(ctx, conn)
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return pool
}

// dropSchema removes all tables created by Migrate in reverse dependency order.
func dropSchema(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS edges CASCADE",
		"DROP TABLE IF EXISTS unit_vectors CASCADE",
		"DROP TABLE IF EXISTS chat_messages CASCADE",
		"DROP TABLE IF EXISTS conversations CASCADE",
		"DROP TABLE IF EXISTS mood_logs CASCADE",
		"DROP TABLE IF EXISTS timeline_events CASCADE",
		"DROP TABLE IF EXISTS habits CASCADE",
		"DROP TABLE IF EXISTS memory_units CASCADE",
		"DROP TABLE IF EXISTS users CASCADE",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("dropSchema %q: %v", stmt, err)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Units
// ─────────────────────────────────────────────────────────────────────────────

func TestUnits_PutGetList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	unit := memory.MemoryUnit{
		ID:         "u1",
		OwnerID:    "alice",
		SourceType: memory.SourceCard,
		Title:      "grocery list",
		Content:    "eggs, milk, coffee",
		Tags:       []string{"errands"},
	}
	if err := store.PutUnit(ctx, unit); err != nil {
		t.Fatalf("PutUnit: %v", err)
	}

	got, err := store.GetUnit(ctx, "alice", "u1")
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if got == nil {
		t.Fatal("GetUnit returned nil for existing unit")
	}
	if got.Title != unit.Title || got.Content != unit.Content {
		t.Errorf("got %+v, want title/content of %+v", got, unit)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "errands" {
		t.Errorf("Tags = %v, want [errands]", got.Tags)
	}

	// Upsert replaces content, keeps created_at.
	unit.Content = "eggs, milk, coffee, bread"
	if err := store.PutUnit(ctx, unit); err != nil {
		t.Fatalf("PutUnit (upsert): %v", err)
	}
	got2, err := store.GetUnit(ctx, "alice", "u1")
	if err != nil {
		t.Fatalf("GetUnit after upsert: %v", err)
	}
	if got2.Content != unit.Content {
		t.Errorf("Content = %q, want %q", got2.Content, unit.Content)
	}
	if !got2.CreatedAt.Equal(got.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert: %v != %v", got2.CreatedAt, got.CreatedAt)
	}

	// Foreign-owned lookup behaves like a miss.
	foreign, err := store.GetUnit(ctx, "bob", "u1")
	if err != nil {
		t.Fatalf("GetUnit (foreign): %v", err)
	}
	if foreign != nil {
		t.Errorf("foreign-owned unit visible: %+v", foreign)
	}

	list, err := store.ListUnits(ctx, "alice", memory.WithSourceTypes(memory.SourceCard))
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}

	empty, err := store.ListUnits(ctx, "bob")
	if err != nil {
		t.Fatalf("ListUnits (bob): %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", empty)
	}
}

func TestUnits_SearchFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, u := range []memory.MemoryUnit{
		{ID: "a", OwnerID: "alice", SourceType: memory.SourceWiki, Title: "Go concurrency", Content: "channels and goroutines"},
		{ID: "b", OwnerID: "alice", SourceType: memory.SourceWiki, Title: "Cooking", Content: "pasta recipes"},
	} {
		if err := store.PutUnit(ctx, u); err != nil {
			t.Fatalf("PutUnit(%s): %v", u.ID, err)
		}
	}

	found, err := store.ListUnits(ctx, "alice", memory.WithSearch("goroutine"))
	if err != nil {
		t.Fatalf("ListUnits(search): %v", err)
	}
	if len(found) != 1 || found[0].ID != "a" {
		t.Errorf("search result = %+v, want unit a", found)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Vector index
// ─────────────────────────────────────────────────────────────────────────────

func TestVectors_QueryOrderingAndIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	vecs := map[string][]float32{
		"exact": {1, 0, 0, 0},
		"near":  {1, 1, 0, 0},
		"far":   {0, 0, 1, 0},
	}
	for id, v := range vecs {
		if err := store.Upsert(ctx, "alice", memory.SourceCard, id, v); err != nil {
			t.Fatalf("Upsert(%s): %v", id, err)
		}
	}
	// Another owner's perfect match must never surface.
	if err := store.Upsert(ctx, "bob", memory.SourceCard, "bobs-secret", []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("Upsert(bob): %v", err)
	}

	hits, err := store.Query(ctx, "alice", []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("len = %d, want 3", len(hits))
	}
	if hits[0].SourceID != "exact" {
		t.Errorf("hits[0] = %+v, want exact", hits[0])
	}
	if hits[0].Score < 0.999 {
		t.Errorf("exact score = %f, want ~1", hits[0].Score)
	}
	for _, h := range hits {
		if h.SourceID == "bobs-secret" {
			t.Fatal("cross-owner vector surfaced in query results")
		}
		if h.Score < 0 || h.Score > 1 {
			t.Errorf("score %f outside [0,1]", h.Score)
		}
	}

	// k caps the result count.
	one, err := store.Query(ctx, "alice", []float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Query(k=1): %v", err)
	}
	if len(one) != 1 || one[0].SourceID != "exact" {
		t.Errorf("k=1 result = %+v, want [exact]", one)
	}
}

func TestVectors_DeleteReadYourWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "alice", memory.SourceCard, "gone", []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Delete(ctx, "alice", memory.SourceCard, "gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, err := store.Query(ctx, "alice", []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("deleted vector still surfaced: %+v", hits)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Conversations
// ─────────────────────────────────────────────────────────────────────────────

func TestConversations_AppendListCascade(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, memory.Conversation{ID: "c1", OwnerID: "alice", Title: "notes"}); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	ts := time.Now()
	for i, id := range []string{"m1", "m2", "m3"} {
		msg := memory.ChatMessage{
			ID:             id,
			ConversationID: "c1",
			Role:           memory.RoleUser,
			Content:        id,
			Timestamp:      ts, // identical timestamps: order must still hold
		}
		if i == 2 {
			msg.Role = memory.RoleAI
			msg.RelatedMemoryIDs = []string{"u1", "u2"}
			msg.MoodContext = "Curious"
		}
		if err := store.AppendMessage(ctx, "alice", msg); err != nil {
			t.Fatalf("AppendMessage(%s): %v", id, err)
		}
	}

	msgs, err := store.ListMessages(ctx, "alice", "c1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d].ID = %s, want %s (insertion order)", i, msgs[i].ID, want)
		}
	}
	if len(msgs[2].RelatedMemoryIDs) != 2 {
		t.Errorf("RelatedMemoryIDs = %v, want two ids", msgs[2].RelatedMemoryIDs)
	}

	// Appending into a foreign conversation fails.
	err = store.AppendMessage(ctx, "bob", memory.ChatMessage{ID: "mx", ConversationID: "c1", Role: memory.RoleUser})
	if err == nil {
		t.Error("expected error appending into a foreign conversation")
	}

	// Cascade.
	if err := store.DeleteConversation(ctx, "alice", "c1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	gone, err := store.GetMessage(ctx, "alice", "m1")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if gone != nil {
		t.Errorf("message survived conversation delete: %+v", gone)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph
// ─────────────────────────────────────────────────────────────────────────────

func TestGraph_EdgesAndNeighbors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.PutUnit(ctx, memory.MemoryUnit{ID: id, OwnerID: "alice", SourceType: memory.SourceNode, Content: id}); err != nil {
			t.Fatalf("PutUnit(%s): %v", id, err)
		}
	}

	if err := store.AddEdge(ctx, memory.Edge{OwnerID: "alice", SourceID: "a", TargetID: "b", RelType: "related"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	// Missing endpoint is rejected via the composite foreign key.
	if err := store.AddEdge(ctx, memory.Edge{OwnerID: "alice", SourceID: "a", TargetID: "ghost", RelType: "related"}); err == nil {
		t.Error("expected error for missing edge endpoint")
	}

	neighbors, err := store.Neighbors(ctx, "alice", "a")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].ID != "b" {
		t.Errorf("neighbors = %+v, want [b]", neighbors)
	}

	// Deleting a unit cascades to its edges.
	if err := store.DeleteUnit(ctx, "alice", "b"); err != nil {
		t.Fatalf("DeleteUnit: %v", err)
	}
	edges, err := store.ListEdges(ctx, "alice", "a")
	if err != nil {
		t.Fatalf("ListEdges: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("edges after endpoint delete = %+v, want none", edges)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Life OS + users
// ─────────────────────────────────────────────────────────────────────────────

func TestLifeOS_HabitsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	h := memory.Habit{ID: "h1", OwnerID: "alice", Name: "run", Frequency: "daily"}
	if err := store.PutHabit(ctx, h); err != nil {
		t.Fatalf("PutHabit: %v", err)
	}

	// Zero LastCheckIn round-trips as zero through the nullable column.
	got, err := store.GetHabit(ctx, "alice", "h1")
	if err != nil {
		t.Fatalf("GetHabit: %v", err)
	}
	if got == nil || !got.LastCheckIn.IsZero() {
		t.Errorf("got %+v, want habit with zero LastCheckIn", got)
	}

	h.Streak = 2
	h.LastCheckIn = time.Now()
	if err := store.PutHabit(ctx, h); err != nil {
		t.Fatalf("PutHabit (check-in): %v", err)
	}
	got, err = store.GetHabit(ctx, "alice", "h1")
	if err != nil {
		t.Fatalf("GetHabit after check-in: %v", err)
	}
	if got.Streak != 2 || got.LastCheckIn.IsZero() {
		t.Errorf("got %+v, want streak 2 with check-in set", got)
	}
}

func TestUsers_CreateAndResolveToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u := memory.User{ID: "u1", Email: "a@example.com", DisplayName: "Alice", TokenDigest: "digest1"}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := store.CreateUser(ctx, memory.User{ID: "u2", Email: "a@example.com"}); err == nil {
		t.Error("expected error for duplicate email")
	}

	byToken, err := store.GetUserByTokenDigest(ctx, "digest1")
	if err != nil {
		t.Fatalf("GetUserByTokenDigest: %v", err)
	}
	if byToken == nil || byToken.ID != "u1" {
		t.Errorf("byToken = %+v, want u1", byToken)
	}

	empty, err := store.GetUserByTokenDigest(ctx, "")
	if err != nil {
		t.Fatalf("GetUserByTokenDigest(empty): %v", err)
	}
	if empty != nil {
		t.Errorf("empty digest resolved a user: %+v", empty)
	}
}
