package mcp

import (
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/advdiff/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"diff", "cache"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     func() mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"diff_compare": {
		def:     compareToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompare },
	},
	"cache_list": {
		def:     cacheListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCacheList },
	},
	"cache_purge": {
		def:     cachePurgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCachePurge },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "cache_purge" → "cache").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	tools := make([]string, 0)
	for _, name := range AllToolNames() {
		if slices.Contains(types, GetTypeForTool(name)) {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the advdiff tools registered.
// Tools listed in DisabledTools or belonging to DisabledTypes are skipped.
func NewServer(env ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"advdiff",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)
	cfg := h.env.Config

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def(), entry.handler(h))
	}

	return s
}

// Run serves the MCP tools over stdio until stdin closes.
func Run(env ops.Env, version string) error {
	return server.ServeStdio(NewServer(env, version))
}
