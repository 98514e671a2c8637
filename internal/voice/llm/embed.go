package llm

import (
	"context"
	"fmt"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// Embed generates one embedding vector via OpenAI's embeddings
// endpoint. model defaults to text-embedding-3-small when empty.
func (c *Client) Embed(ctx context.Context, text, model string) ([]float32, error) {
	if c.openaiKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	if model == "" {
		model = defaultEmbeddingModel
	}

	client := sdk.NewClient(option.WithAPIKey(c.openaiKey))
	resp, err := client.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: model,
		Input: sdk.EmbeddingNewParamsInputUnion{OfString: sdk.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response had no data")
	}

	embedding := resp.Data[0].Embedding
	out := make([]float32, len(embedding))
	for i, v := range embedding {
		out[i] = float32(v)
	}
	return out, nil
}
