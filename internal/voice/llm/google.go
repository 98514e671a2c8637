package llm

import (
	"context"

	genai "google.golang.org/genai"

	"github.com/voxcore/voxcore/internal/logger"
)

func (c *Client) streamGoogle(ctx context.Context, systemPrompt string, messages []Message, model string, tools []ToolSpec) (<-chan StreamEvent, error) {
	log := logger.WithComponent("llm")

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.googleKey})
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	stream := client.Models.GenerateContentStream(ctx, model, contents, cfg)

	out := make(chan StreamEvent, 64)
	go func() {
		defer close(out)

		for resp, streamErr := range stream {
			if streamErr != nil {
				log.Warn().Err(streamErr).Msg("google stream ended with error")
				break
			}
			if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					select {
					case out <- StreamEvent{Type: EventTextDelta, Content: part.Text}:
					case <-ctx.Done():
						return
					}
				}
				if part.FunctionCall != nil {
					select {
					case out <- StreamEvent{Type: EventToolCall, ToolName: part.FunctionCall.Name, ToolArgs: part.FunctionCall.Args}:
					case <-ctx.Done():
						return
					}
				}
			}
		}

		select {
		case out <- StreamEvent{Type: EventDone}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// toGenaiSchema does a best-effort conversion of a JSON-schema-shaped map
// (as used by every other provider's ToolSpec.Parameters) into genai's
// typed Schema, since genai does not accept a raw map.
func toGenaiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}
	props, _ := params["properties"].(map[string]any)
	if len(props) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			p, _ := raw.(map[string]any)
			schema.Properties[name] = propSchema(p)
		}
	}
	if required, ok := params["required"].([]string); ok {
		schema.Required = required
	}
	return schema
}

func propSchema(p map[string]any) *genai.Schema {
	s := &genai.Schema{Type: genai.TypeString}
	t, _ := p["type"].(string)
	switch t {
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	}
	if desc, ok := p["description"].(string); ok {
		s.Description = desc
	}
	return s
}
