package llm

import (
	"context"
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/voxcore/voxcore/internal/logger"
)

const anthropicDefaultMaxTokens = 1024

func (c *Client) streamAnthropic(ctx context.Context, apiKey, systemPrompt string, messages []Message, model string, temperature float64, maxTokens int, tools []ToolSpec) (<-chan StreamEvent, error) {
	log := logger.WithComponent("llm")

	sdk := anthropic.NewClient(option.WithAPIKey(apiKey))

	msgs := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	tokens := int64(maxTokens)
	if tokens <= 0 {
		tokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  msgs,
		MaxTokens: tokens,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}
	if len(tools) > 0 {
		params.Tools = buildAnthropicTools(tools)
	}

	stream := sdk.Messages.NewStreaming(ctx, params)

	out := make(chan StreamEvent, 64)
	go func() {
		defer close(out)
		defer stream.Close()

		type toolBuf struct {
			name string
			args strings.Builder
		}
		toolBufs := map[int64]*toolBuf{}
		order := []int64{}

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				if block, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					tb := &toolBuf{name: block.Name}
					toolBufs[ev.Index] = tb
					order = append(order, ev.Index)
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						select {
						case out <- StreamEvent{Type: EventTextDelta, Content: delta.Text}:
						case <-ctx.Done():
							return
						}
					}
				case anthropic.InputJSONDelta:
					if tb := toolBufs[ev.Index]; tb != nil {
						tb.args.WriteString(delta.PartialJSON)
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			log.Warn().Err(err).Msg("anthropic stream ended with error")
		}

		for _, idx := range order {
			tb := toolBufs[idx]
			args := map[string]any{}
			if tb.args.Len() > 0 {
				_ = json.Unmarshal([]byte(tb.args.String()), &args)
			}
			select {
			case out <- StreamEvent{Type: EventToolCall, ToolName: tb.name, ToolArgs: args}:
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

func buildAnthropicTools(tools []ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := t.Parameters["properties"]; ok {
			schema.Properties = props
		}
		if req, ok := t.Parameters["required"].([]string); ok {
			schema.Required = req
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}})
	}
	return out
}
