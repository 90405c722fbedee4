// Package mcpserver exposes the memory layer to external MCP clients over
// stdio.
//
// Two tools are registered: "memory_search" runs the same owner-scoped
// semantic retrieval the chat pipeline uses, and "remember" stores a new
// memory card. The stdio transport carries no credentials, so the server is
// pinned at construction to a single owner id from the configuration; tools
// never accept an owner argument.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memoroo/memoroo/internal/config"
	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/internal/retrieval"
	"github.com/memoroo/memoroo/internal/units"
	"github.com/memoroo/memoroo/pkg/apperr"
)

// Server is the MCP stdio server for one owner's memory.
type Server struct {
	mcp       *mcp.Server
	ownerID   string
	retriever *retrieval.Service
	units     *units.Service
}

// New creates a [Server] pinned to cfg.OwnerID and registers its tools.
// cfg.OwnerID must be non-empty.
func New(cfg config.MCPConfig, retriever *retrieval.Service, unitSvc *units.Service, version string) (*Server, error) {
	if cfg.OwnerID == "" {
		return nil, apperr.New(apperr.KindInvalid, "mcpserver: owner_id must be set; stdio transport carries no auth")
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "memoroo",
			Version: version,
		}, nil),
		ownerID:   cfg.OwnerID,
		retriever: retriever,
		units:     unitSvc,
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_search",
		Description: "Search the owner's personal memory by meaning. Returns the most relevant memory units with similarity scores.",
	}, s.handleMemorySearch)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remember",
		Description: "Store a new memory card. The card is embedded immediately and becomes searchable before the tool returns.",
	}, s.handleRemember)

	return s, nil
}

// Run serves on stdio and blocks until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	observe.Logger(ctx).Info("mcp server started", "owner_id", s.ownerID, "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// textResult wraps text in a successful tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult returns a tool-level failure the model can read and recover
// from, rather than a protocol error.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// jsonResult marshals v into a text result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to encode result: " + err.Error())
	}
	return textResult(string(data))
}
