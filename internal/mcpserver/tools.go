package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/pkg/memory"
)

// searchInput is the argument schema for the memory_search tool.
type searchInput struct {
	Query string `json:"query" jsonschema:"required,Natural-language search query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Maximum number of results; server default when omitted"`
}

// searchHit is one memory_search result entry.
type searchHit struct {
	ID         string   `json:"id"`
	SourceType string   `json:"source_type"`
	Title      string   `json:"title,omitempty"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	Score      float64  `json:"score"`
}

func (s *Server) handleMemorySearch(ctx context.Context, _ *mcp.CallToolRequest, input searchInput) (*mcp.CallToolResult, any, error) {
	if input.Query == "" {
		return errorResult("query is required"), nil, nil
	}

	results, err := s.retriever.SearchK(ctx, s.ownerID, input.Query, input.TopK)
	if err != nil {
		observe.Logger(ctx).Error("mcp memory_search failed", "error", err)
		return errorResult("search failed: " + err.Error()), nil, nil
	}

	hits := make([]searchHit, len(results))
	for i, res := range results {
		hits[i] = searchHit{
			ID:         res.Unit.ID,
			SourceType: string(res.Unit.SourceType),
			Title:      res.Unit.Title,
			Content:    res.Unit.Content,
			Tags:       res.Unit.Tags,
			Score:      res.Score,
		}
	}
	return jsonResult(map[string]any{"count": len(hits), "results": hits}), nil, nil
}

// rememberInput is the argument schema for the remember tool.
type rememberInput struct {
	Content string   `json:"content" jsonschema:"required,The text to remember"`
	Title   string   `json:"title,omitempty" jsonschema:"Short label for the memory"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Free-form labels"`
}

// rememberOutput echoes what was stored.
type rememberOutput struct {
	ID         string `json:"id"`
	SourceType string `json:"source_type"`
	Title      string `json:"title,omitempty"`
}

func (s *Server) handleRemember(ctx context.Context, _ *mcp.CallToolRequest, input rememberInput) (*mcp.CallToolResult, any, error) {
	if input.Content == "" {
		return errorResult("content is required"), nil, nil
	}

	unit, err := s.units.Create(ctx, memory.MemoryUnit{
		OwnerID:    s.ownerID,
		SourceType: memory.SourceCard,
		Title:      input.Title,
		Content:    input.Content,
		Tags:       input.Tags,
	})
	if err != nil {
		observe.Logger(ctx).Error("mcp remember failed", "error", err)
		return errorResult("store failed: " + err.Error()), nil, nil
	}

	return jsonResult(rememberOutput{
		ID:         unit.ID,
		SourceType: string(unit.SourceType),
		Title:      unit.Title,
	}), nil, nil
}
