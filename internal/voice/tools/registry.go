// Package tools implements the tool registry and executor (C6): the
// fixed set of built-in call-control tools, DB-backed custom webhook
// functions, and an optional MCP tool source, all dispatched through
// one Execute entrypoint and logged to function_call_logs.
package tools

import (
	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/voice/llm"
)

// builtinSpecs mirrors the four call-control tools every agent may
// enable, in JSON-schema form for the LLM client.
var builtinSpecs = map[string]llm.ToolSpec{
	"end_call": {
		Name:        "end_call",
		Description: "End the current phone call.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{"type": "string", "description": "Reason for ending the call"},
			},
			"required": []string{"reason"},
		},
	},
	"transfer_call": {
		Name:        "transfer_call",
		Description: "Transfer the call to another phone number or department.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"to_number":  map[string]any{"type": "string", "description": "Phone number to transfer to"},
				"department": map[string]any{"type": "string", "description": "Department name"},
			},
			"required": []string{},
		},
	},
	"check_availability": {
		Name:        "check_availability",
		Description: "Check availability for a given date and time.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{"type": "string", "description": "Date (YYYY-MM-DD)"},
				"time": map[string]any{"type": "string", "description": "Time (HH:MM)"},
			},
			"required": []string{"date"},
		},
	},
	"book_appointment": {
		Name:        "book_appointment",
		Description: "Book an appointment for the caller.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string", "description": "Caller's name"},
				"date":  map[string]any{"type": "string", "description": "Date (YYYY-MM-DD)"},
				"time":  map[string]any{"type": "string", "description": "Time (HH:MM)"},
				"notes": map[string]any{"type": "string", "description": "Additional notes"},
			},
			"required": []string{"name", "date", "time"},
		},
	},
}

// IsBuiltin reports whether name is one of the four call-control tools.
func IsBuiltin(name string) bool {
	_, ok := builtinSpecs[name]
	return ok
}

// SpecsForAgent resolves an agent's ToolsEnabled list into LLM tool
// specs: built-ins come from builtinSpecs, everything else is looked
// up among the active custom functions passed in.
func SpecsForAgent(toolsEnabled []string, custom []models.CustomFunction) []llm.ToolSpec {
	customByName := make(map[string]models.CustomFunction, len(custom))
	for _, fn := range custom {
		customByName[fn.Name] = fn
	}

	specs := make([]llm.ToolSpec, 0, len(toolsEnabled))
	for _, name := range toolsEnabled {
		if spec, ok := builtinSpecs[name]; ok {
			specs = append(specs, spec)
			continue
		}
		fn, ok := customByName[name]
		if !ok {
			continue
		}
		specs = append(specs, customFunctionSpec(fn))
	}
	return specs
}

func customFunctionSpec(fn models.CustomFunction) llm.ToolSpec {
	params := map[string]any(fn.Parameters)
	if _, hasType := params["type"]; !hasType {
		params = map[string]any{
			"type":       "object",
			"properties": map[string]any(fn.Parameters),
			"required":   []string{},
		}
	}
	desc := fn.Description
	if desc == "" {
		desc = "Custom function: " + fn.Name
	}
	return llm.ToolSpec{Name: fn.Name, Description: desc, Parameters: params}
}
