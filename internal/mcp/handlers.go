package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/advdiff/internal/config"
	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env ops.Env) *Handlers {
	if env.Config == nil {
		env.Config = config.DefaultConfig()
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	return &Handlers{env: env}
}

// Request types for each tool

// CompareRequest represents the arguments for diff_compare.
type CompareRequest struct {
	Dataset         string `json:"dataset,omitempty"`
	Samples         *int   `json:"samples,omitempty"`
	SnippetLen      int    `json:"snippet_len,omitempty"`
	OriginalFile    string `json:"original_file,omitempty"`
	AdversarialFile string `json:"adversarial_file,omitempty"`
	Refresh         bool   `json:"refresh,omitempty"`
}

// CachePurgeRequest represents the arguments for cache_purge.
type CachePurgeRequest struct {
	Dataset       *string `json:"dataset,omitempty"`
	OlderThanDays *int    `json:"older_than_days,omitempty"`
}

// Handler implementations

// HandleCompare handles the diff_compare tool call.
func (h *Handlers) HandleCompare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CompareRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	samples := ops.DefaultMaxSamples
	if input.Samples != nil {
		samples = *input.Samples
	}

	// Paths arrive from an agent, so they are always checked against the
	// allowed directories.
	result, err := ops.Compare(ctx, h.env, ops.CompareInput{
		Variant:         input.Dataset,
		MaxSamples:      samples,
		SnippetLen:      input.SnippetLen,
		OriginalFile:    input.OriginalFile,
		AdversarialFile: input.AdversarialFile,
		Refresh:         input.Refresh,
		RestrictPaths:   true,
	}, ops.Discard)
	if err != nil {
		return h.fail(err), nil
	}

	return successResult(result)
}

// HandleCacheList handles the cache_list tool call.
func (h *Handlers) HandleCacheList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[struct{}](req); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CacheList(ctx, h.env)
	if err != nil {
		return h.fail(err), nil
	}

	return successResult(result)
}

// HandleCachePurge handles the cache_purge tool call.
func (h *Handlers) HandleCachePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CachePurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CachePurge(ctx, h.env, ops.CachePurgeInput{
		Dataset:       input.Dataset,
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return h.fail(err), nil
	}

	return successResult(result)
}

// fail logs internal errors with their cause before the details are
// stripped from the tool result.
func (h *Handlers) fail(err error) *mcp.CallToolResult {
	if aErr, ok := errors.As(err); !ok || aErr.Code == errors.ErrInternal {
		h.env.Logger.Error("tool call failed", zap.Error(err))
	}
	return errorResult(err)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if aErr, ok := errors.As(err); ok {
		msg := aErr.Message
		// Keep context added by fmt.Errorf wrappers, e.g. "original: ...".
		if prefix, found := strings.CutSuffix(err.Error(), aErr.Error()); found && prefix != "" && aErr.Code != errors.ErrInternal {
			msg = prefix + msg
		}
		errorObj := map[string]any{
			"code":    aErr.Code,
			"message": msg,
			"status":  aErr.Status,
		}
		if aErr.Code != errors.ErrInternal && aErr.Details != nil {
			errorObj["details"] = aErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
