package models

// HTTPMethod restricts CustomFunction.Method to the methods the executor
// knows how to build a request for.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)

// PayloadMode controls whether a custom function's webhook body carries
// only the LLM-supplied arguments or also a _call_context block.
type PayloadMode string

const (
	PayloadArgsOnly    PayloadMode = "args_only"
	PayloadFullContext PayloadMode = "full_context"
)

// CustomFunction is a DB-backed tool definition the orchestrator resolves
// by name from Agent.ToolsEnabled. Execution is an HTTP webhook; a row
// with an empty WebhookURL yields a "no webhook URL configured" error.
// Metadata is not read when routing a call: a tool name registered by
// the configured MCP tool source is sent there before this table is
// consulted.
type CustomFunction struct {
	BaseModel

	Name        string  `gorm:"uniqueIndex;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Parameters  JSONMap `gorm:"type:jsonb" json:"parameters"`

	WebhookURL string      `json:"webhook_url,omitempty"`
	Method     HTTPMethod  `gorm:"default:POST" json:"method"`
	Headers    JSONMap     `gorm:"type:jsonb" json:"headers,omitempty"`

	TimeoutSeconds int `gorm:"default:30" json:"timeout_seconds"`
	RetryCount     int `gorm:"default:0" json:"retry_count"`

	ResponseMapping JSONMap `gorm:"type:jsonb" json:"response_mapping,omitempty"`

	SpeakDuringExecution string `json:"speak_during_execution,omitempty"`
	SpeakOnFailure       string `json:"speak_on_failure,omitempty"`

	PayloadMode     PayloadMode `gorm:"default:args_only" json:"payload_mode"`
	StoreVariables  StringList  `gorm:"type:jsonb" json:"store_variables,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Metadata JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}
