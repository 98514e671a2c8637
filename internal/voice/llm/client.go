// Package llm implements the LLM client (C4): provider dispatch by model
// name prefix over real provider SDKs, normalized to a single streaming
// event schema (text_delta / tool_call / done) regardless of backend.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxcore/voxcore/internal/logger"
)

// Message is one turn in a conversation. Role is "system", "user", or
// "assistant".
type Message struct {
	Role    string
	Content string
}

// ToolSpec describes one callable tool in JSON-schema form, provider
// agnostic.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// EventType discriminates StreamEvent.
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventToolCall  EventType = "tool_call"
	EventDone      EventType = "done"
)

// StreamEvent is one unit of a normalized LLM stream.
type StreamEvent struct {
	Type      EventType
	Content   string
	ToolName  string
	ToolArgs  map[string]any
}

// Client dispatches to the configured provider SDKs based on model name.
type Client struct {
	openaiKey    string
	anthropicKey string
	deepseekKey  string
	groqKey      string
	googleKey    string
}

func NewClient(openaiKey, anthropicKey, deepseekKey, groqKey, googleKey string) *Client {
	return &Client{
		openaiKey:    openaiKey,
		anthropicKey: anthropicKey,
		deepseekKey:  deepseekKey,
		groqKey:      groqKey,
		googleKey:    googleKey,
	}
}

type provider string

const (
	providerOpenAI    provider = "openai"
	providerAnthropic provider = "anthropic"
	providerDeepSeek  provider = "deepseek"
	providerGroq      provider = "groq"
	providerGoogle    provider = "google"
)

func providerFor(model string) provider {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude"):
		return providerAnthropic
	case strings.HasPrefix(m, "deepseek"):
		return providerDeepSeek
	case strings.HasPrefix(m, "gemini"):
		return providerGoogle
	case strings.HasPrefix(m, "llama"), strings.HasPrefix(m, "mixtral"):
		return providerGroq
	default:
		return providerOpenAI
	}
}

// Stream dispatches to the provider matching model's name and returns a
// normalized event channel. The channel is closed after a final
// EventDone; if ctx is cancelled first it is closed without one. When
// the stream cannot be started, err is non-nil and the channel is nil.
func (c *Client) Stream(ctx context.Context, systemPrompt string, messages []Message, model string, temperature float64, maxTokens int, tools []ToolSpec) (<-chan StreamEvent, error) {
	log := logger.WithComponent("llm")
	p := providerFor(model)
	log.Debug().Str("model", model).Str("provider", string(p)).Msg("dispatching LLM stream")

	switch p {
	case providerAnthropic:
		if c.anthropicKey == "" {
			return nil, fmt.Errorf("anthropic API key not configured")
		}
		return c.streamAnthropic(ctx, c.anthropicKey, systemPrompt, messages, model, temperature, maxTokens, tools)
	case providerDeepSeek:
		if c.deepseekKey == "" {
			return nil, fmt.Errorf("deepseek API key not configured")
		}
		return c.streamOpenAICompatible(ctx, c.deepseekKey, "https://api.deepseek.com/v1", systemPrompt, messages, model, temperature, maxTokens, tools)
	case providerGroq:
		if c.groqKey == "" {
			return nil, fmt.Errorf("groq API key not configured")
		}
		return c.streamOpenAICompatible(ctx, c.groqKey, "https://api.groq.com/openai/v1", systemPrompt, messages, model, temperature, maxTokens, tools)
	case providerGoogle:
		if c.googleKey == "" {
			return nil, fmt.Errorf("google API key not configured")
		}
		return c.streamGoogle(ctx, systemPrompt, messages, model, tools)
	default:
		if c.openaiKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		return c.streamOpenAICompatible(ctx, c.openaiKey, "", systemPrompt, messages, model, temperature, maxTokens, tools)
	}
}

// Generate collects a full non-streaming response, for one-shot uses
// like RAG query rewriting.
func (c *Client) Generate(ctx context.Context, systemPrompt string, messages []Message, model string, temperature float64, maxTokens int) (string, error) {
	events, err := c.Stream(ctx, systemPrompt, messages, model, temperature, maxTokens, nil)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for ev := range events {
		if ev.Type == EventTextDelta {
			sb.WriteString(ev.Content)
		}
	}
	return sb.String(), nil
}
