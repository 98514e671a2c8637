package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/voxcore/voxcore/internal/voice/llm"
)

// MCPServerConfig describes one external MCP server to import tools
// from, over either stdio or streamable HTTP.
type MCPServerConfig struct {
	Name    string
	Command string // stdio transport: executable + args, space-separated
	URL     string // streamable-HTTP transport
	Env     map[string]string
}

// mcpHost is the default MCPSource: a thin client over one or more MCP
// servers, discovering their tool catalogues at connect time.
type mcpHost struct {
	mu      sync.RWMutex
	client  *mcpsdk.Client
	tools   map[string]*mcpsdk.ClientSession // tool name -> owning session
	schemas map[string]llm.ToolSpec
}

func NewMCPHost() *mcpHost {
	return &mcpHost{
		client:  mcpsdk.NewClient(&mcpsdk.Implementation{Name: "voxcore", Version: "1.0.0"}, nil),
		tools:   make(map[string]*mcpsdk.ClientSession),
		schemas: make(map[string]llm.ToolSpec),
	}
}

// Connect dials one MCP server and registers its tools.
func (h *mcpHost) Connect(ctx context.Context, cfg MCPServerConfig) error {
	var transport mcpsdk.Transport
	switch {
	case cfg.URL != "":
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	case cfg.Command != "":
		parts := strings.Fields(cfg.Command)
		if len(parts) == 0 {
			return fmt.Errorf("mcp server %q: empty command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}
	default:
		return fmt.Errorf("mcp server %q: neither Command nor URL set", cfg.Name)
	}

	session, err := h.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect mcp server %q: %w", cfg.Name, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return fmt.Errorf("list tools for mcp server %q: %w", cfg.Name, err)
		}
		h.tools[tool.Name] = session
		h.schemas[tool.Name] = llm.ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schemaToMap(tool.InputSchema),
		}
	}
	return nil
}

func (h *mcpHost) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.tools[name]
	return ok
}

// Specs returns the tool specs of every tool discovered across
// connected servers, for merging into an agent's available tool list.
func (h *mcpHost) Specs() []llm.ToolSpec {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]llm.ToolSpec, 0, len(h.schemas))
	for _, spec := range h.schemas {
		out = append(out, spec)
	}
	return out
}

func (h *mcpHost) Call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	h.mu.RLock()
	session, ok := h.tools[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mcp tool %q not registered", name)
	}

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("call mcp tool %q: %w", name, err)
	}

	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if result.IsError {
		return map[string]any{"error": sb.String()}, nil
	}
	return map[string]any{"response": sb.String()}, nil
}

// schemaToMap converts the SDK's schema value to a plain map via a JSON
// round-trip, since InputSchema's concrete type is SDK-internal, not a
// bare map.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
