package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jward/semdiff"
	"github.com/jward/semdiff/internal/store"
)

// AddSemanticDiffTool registers the semantic_diff tool with an MCP server.
func AddSemanticDiffTool(s *server.MCPServer, cfg Config) {
	tool := mcp.NewTool(
		"semantic_diff",
		mcp.WithDescription("Compare two versions of a project and list the declarations that were added, deleted or modified (listeners, functions, types, service members). Returns JSON with loadDesignDiagrams and semanticDiffs."),
		mcp.WithString("original",
			mcp.Required(),
			mcp.Description("Root directory of the original project")),
		mcp.WithString("modified",
			mcp.Required(),
			mcp.Description("Root directory of the modified project")),
		mcp.WithString("filter",
			mcp.Description("Optional Risor expression over change_type, kind, uri, file, start_line and end_line, e.g. 'kind == \"OBJECT_FUNCTION\"'")),
	)

	s.AddTool(tool, createSemanticDiffHandler(cfg))
}

func createSemanticDiffHandler(cfg Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		original, ok := argsMap["original"].(string)
		if !ok || original == "" {
			return mcp.NewToolResultError("original parameter is required"), nil
		}
		modified, ok := argsMap["modified"].(string)
		if !ok || modified == "" {
			return mcp.NewToolResultError("modified parameter is required"), nil
		}
		filter, _ := argsMap["filter"].(string)

		opts := []semdiff.Option{semdiff.WithLogger(cfg.Logger)}
		if cfg.Scheme != "" {
			opts = append(opts, semdiff.WithScheme(cfg.Scheme))
		}
		if cfg.Store != nil {
			opts = append(opts, semdiff.WithStore(cfg.Store))
		}
		if filter != "" {
			opts = append(opts, semdiff.WithFilter(filter))
		}
		engine, err := semdiff.New(opts...)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		defer engine.Close()

		loadOpts := []semdiff.LoadOption{semdiff.WithLoadLogger(cfg.Logger)}
		if cfg.Ignore != nil {
			loadOpts = append(loadOpts, semdiff.WithIgnore(cfg.Ignore...))
		}
		orig, err := semdiff.LoadProject(ctx, original, loadOpts...)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mod, err := semdiff.LoadProject(ctx, modified, loadOpts...)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := engine.ComputeAsync(ctx, orig, mod).Wait(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		jsonData, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

// HistoryEntry is one run as reported by the history tool.
type HistoryEntry struct {
	ID                 string `json:"id"`
	OriginalRoot       string `json:"originalRoot"`
	ModifiedRoot       string `json:"modifiedRoot"`
	CreatedAt          string `json:"createdAt"`
	DiffCount          int    `json:"diffCount"`
	LoadDesignDiagrams bool   `json:"loadDesignDiagrams"`
}

// AddHistoryTool registers the semantic_diff_history tool.
func AddHistoryTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool(
		"semantic_diff_history",
		mcp.WithDescription("List recent semantic diff runs, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of runs to return (default: 20)")),
	)
	s.AddTool(tool, createHistoryHandler(st))
}

func createHistoryHandler(st *store.Store) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := 20
		if argsMap, ok := request.Params.Arguments.(map[string]interface{}); ok {
			if l, ok := argsMap["limit"].(float64); ok && l > 0 {
				limit = int(l)
			}
		}
		runs, err := st.Runs(limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entries := make([]HistoryEntry, 0, len(runs))
		for _, r := range runs {
			entries = append(entries, HistoryEntry{
				ID:                 r.ID,
				OriginalRoot:       r.OriginalRoot,
				ModifiedRoot:       r.ModifiedRoot,
				CreatedAt:          r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
				DiffCount:          r.DiffCount,
				LoadDesignDiagrams: r.LoadDesignDiagrams,
			})
		}
		jsonData, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
