package tools

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/metrics"
	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/repository"
)

// Executor resolves a tool call by name — built-in, DB-backed custom
// webhook, or MCP — executes it, and logs the attempt.
type Executor struct {
	customFuncs *repository.CustomFunctionRepository
	callLogs    *repository.FunctionCallLogRepository
	httpClient  *http.Client
	mcp         MCPSource
	metrics     *metrics.Metrics
}

// MCPSource resolves and calls tools hosted by an external MCP server.
// Optional: a nil MCPSource means no MCP tools are available.
type MCPSource interface {
	Has(name string) bool
	Call(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

func NewExecutor(customFuncs *repository.CustomFunctionRepository, callLogs *repository.FunctionCallLogRepository, mcp MCPSource, m *metrics.Metrics) *Executor {
	return &Executor{
		customFuncs: customFuncs,
		callLogs:    callLogs,
		httpClient:  &http.Client{},
		mcp:         mcp,
		metrics:     m,
	}
}

// Execute runs one tool call by name, logging it to function_call_logs
// before and after. callID may be nil when the call isn't yet
// persisted. recentMessages feeds custom functions configured with
// payload_mode=full_context (the six most recent user/assistant messages).
func (e *Executor) Execute(ctx context.Context, callID *uuid.UUID, name string, args map[string]any, recentMessages []string) map[string]any {
	log := logger.WithComponent("tools")

	entry := &models.FunctionCallLog{
		CallID:       callID,
		FunctionName: name,
		Arguments:    models.JSONMap(args),
		Status:       models.FunctionCallExecuting,
		ExecutedAt:   time.Now(),
	}
	if err := e.callLogs.Create(entry); err != nil {
		log.Warn().Err(err).Str("function", name).Msg("failed to record function_call_log")
	}

	result, mcpErr := e.run(ctx, name, args, recentMessages, callIDString(callID))
	if mcpErr != nil {
		if entry.ID != uuid.Nil {
			_ = e.callLogs.Fail(entry.ID, mcpErr.Error())
		}
		log.Error().Err(mcpErr).Str("function", name).Msg("tool execution error")
		e.metrics.RecordToolCall(ctx, name, "error")
		return map[string]any{"error": mcpErr.Error()}
	}

	status := "completed"
	if errMsg, hasErr := result["error"]; hasErr {
		status = "failed"
		if entry.ID != uuid.Nil {
			_ = e.callLogs.Fail(entry.ID, fmt.Sprintf("%v", errMsg))
		}
	} else if entry.ID != uuid.Nil {
		_ = e.callLogs.Complete(entry.ID, models.JSONMap(result))
	}
	e.metrics.RecordToolCall(ctx, name, status)
	return result
}

// run dispatches by name: built-ins first, then any tool the MCP source
// has registered, then the custom-function store. Unknown functions and
// webhook failures come back as a normal {"error": ...} result (which
// Execute logs as failed), the same way the call-control tools never
// raise — only a genuinely unexpected MCP transport failure surfaces as
// a Go error here.
func (e *Executor) run(ctx context.Context, name string, args map[string]any, recentMessages []string, callID string) (map[string]any, error) {
	if result, ok := runBuiltin(name, args); ok {
		return result, nil
	}

	if e.mcp != nil && e.mcp.Has(name) {
		return e.mcp.Call(ctx, name, args)
	}

	fn, err := e.customFuncs.GetByName(name)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("unknown function: %s", name)}, nil
	}
	if fn.WebhookURL == "" {
		return map[string]any{"error": "no webhook URL configured"}, nil
	}
	return e.callWebhook(ctx, *fn, args, recentMessages, callID), nil
}

// LookupCustom returns the active custom function definition by name, if
// any, so the session can decide whether to run filler speech around
// the call.
func (e *Executor) LookupCustom(name string) (*models.CustomFunction, bool) {
	fn, err := e.customFuncs.GetByName(name)
	if err != nil {
		return nil, false
	}
	return fn, true
}

func callIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
