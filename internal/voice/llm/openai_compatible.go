package llm

import (
	"context"
	"encoding/json"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/voxcore/voxcore/internal/logger"
)

// streamOpenAICompatible drives any Chat Completions-compatible endpoint
// (OpenAI itself, or DeepSeek/Groq behind a custom base URL) through the
// real openai-go SDK.
func (c *Client) streamOpenAICompatible(ctx context.Context, apiKey, baseURL, systemPrompt string, messages []Message, model string, temperature float64, maxTokens int, tools []ToolSpec) (<-chan StreamEvent, error) {
	log := logger.WithComponent("llm")

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := sdk.NewClient(opts...)

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: buildOpenAIMessages(systemPrompt, messages),
	}
	if maxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(maxTokens))
	}
	if temperature > 0 {
		params.Temperature = sdk.Float(temperature)
	}
	if len(tools) > 0 {
		params.Tools = buildOpenAITools(tools)
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan StreamEvent, 64)
	go func() {
		defer close(out)
		defer stream.Close()

		type accCall struct {
			name string
			args string
		}
		calls := map[int64]*accCall{}
		order := []int64{}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if delta.Content != "" {
				select {
				case out <- StreamEvent{Type: EventTextDelta, Content: delta.Content}:
				case <-ctx.Done():
					return
				}
			}
			for _, tc := range delta.ToolCalls {
				idx := tc.Index
				acc, ok := calls[idx]
				if !ok {
					acc = &accCall{}
					calls[idx] = acc
					order = append(order, idx)
				}
				if tc.Function.Name != "" {
					acc.name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					acc.args += tc.Function.Arguments
				}
			}
		}
		if err := stream.Err(); err != nil {
			log.Warn().Err(err).Msg("openai-compatible stream ended with error")
		}

		for _, idx := range order {
			acc := calls[idx]
			args := map[string]any{}
			if acc.args != "" {
				_ = json.Unmarshal([]byte(acc.args), &args)
			}
			select {
			case out <- StreamEvent{Type: EventToolCall, ToolName: acc.name, ToolArgs: args}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case out <- StreamEvent{Type: EventDone}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

func buildOpenAIMessages(systemPrompt string, messages []Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, sdk.SystemMessage(systemPrompt))
	}
	for _, m := range messages {
		switch m.Role {
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

func buildOpenAITools(tools []ToolSpec) []sdk.ChatCompletionToolUnionParam {
	out := make([]sdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, sdk.ChatCompletionFunctionTool(sdk.FunctionDefinitionParam{
			Name:        t.Name,
			Description: sdk.String(t.Description),
			Parameters:  t.Parameters,
		}))
	}
	return out
}
