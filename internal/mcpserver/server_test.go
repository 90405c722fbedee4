package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memoroo/memoroo/internal/config"
	"github.com/memoroo/memoroo/internal/retrieval"
	"github.com/memoroo/memoroo/internal/units"
	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
	memmock "github.com/memoroo/memoroo/pkg/memory/mock"
	embmock "github.com/memoroo/memoroo/pkg/provider/embeddings/mock"
)

func newServer(t *testing.T) (*Server, *memmock.Store) {
	t.Helper()
	store := memmock.New()
	embedder := &embmock.Provider{
		EmbedResult:     []float32{1, 0},
		DimensionsValue: 2,
		ModelIDValue:    "embed-v1",
	}
	retriever := retrieval.NewService(embedder, store, store, retrieval.Options{TopK: 3}, nil)
	unitSvc := units.NewService(store, store, store, embedder, nil)

	srv, err := New(config.MCPConfig{Enabled: true, OwnerID: "owner-1"}, retriever, unitSvc, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, store
}

// resultText extracts the text payload from a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want *mcp.TextContent", res.Content[0])
	}
	return text.Text
}

// TestNew_RequiresOwner verifies the server refuses to start unpinned.
func TestNew_RequiresOwner(t *testing.T) {
	_, err := New(config.MCPConfig{Enabled: true}, nil, nil, "test")
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("error = %v, want KindInvalid", err)
	}
}

// TestRemember_StoresSearchableUnit verifies a remembered card is returned by
// memory_search within the same session.
func TestRemember_StoresSearchableUnit(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	res, _, err := srv.handleRemember(ctx, nil, rememberInput{
		Title:   "Hike",
		Content: "Hike planned for Saturday at dawn.",
		Tags:    []string{"outdoors"},
	})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if res.IsError {
		t.Fatalf("remember failed: %s", resultText(t, res))
	}
	var stored rememberOutput
	if err := json.Unmarshal([]byte(resultText(t, res)), &stored); err != nil {
		t.Fatalf("decode remember result: %v", err)
	}
	if stored.ID == "" || stored.SourceType != "card" {
		t.Errorf("stored = %+v, want card with id", stored)
	}

	searchRes, _, err := srv.handleMemorySearch(ctx, nil, searchInput{Query: "when is the hike?"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var out struct {
		Count   int         `json:"count"`
		Results []searchHit `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultText(t, searchRes)), &out); err != nil {
		t.Fatalf("decode search result: %v", err)
	}
	if out.Count != 1 || out.Results[0].ID != stored.ID {
		t.Errorf("search results = %+v, want the remembered unit", out)
	}
}

// TestMemorySearch_ScopedToPinnedOwner verifies foreign memories never leak
// through the stdio tools.
func TestMemorySearch_ScopedToPinnedOwner(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()

	foreignSvc := units.NewService(store, store, store, &embmock.Provider{
		EmbedResult: []float32{1, 0}, DimensionsValue: 2, ModelIDValue: "embed-v1",
	}, nil)
	if _, err := foreignSvc.Create(ctx, memory.MemoryUnit{
		OwnerID:    "owner-2",
		SourceType: memory.SourceCard,
		Title:      "secret",
		Content:    "someone else's note",
	}); err != nil {
		t.Fatalf("seed foreign unit: %v", err)
	}

	res, _, err := srv.handleMemorySearch(ctx, nil, searchInput{Query: "secret"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"count": 0`) {
		t.Errorf("foreign memory leaked: %s", text)
	}
}

// TestTools_RejectEmptyArguments verifies tool-level errors instead of
// protocol errors for missing required fields.
func TestTools_RejectEmptyArguments(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	res, _, err := srv.handleMemorySearch(ctx, nil, searchInput{})
	if err != nil || !res.IsError {
		t.Errorf("empty query: err = %v, IsError = %v, want tool error", err, res.IsError)
	}

	res, _, err = srv.handleRemember(ctx, nil, rememberInput{Title: "no content"})
	if err != nil || !res.IsError {
		t.Errorf("empty content: err = %v, IsError = %v, want tool error", err, res.IsError)
	}
}
