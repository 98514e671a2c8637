// Package rag implements the retrieval-augmented-generation retriever
// (C7): embed the caller's utterance, query the knowledge base's
// namespace in the vector store, and concatenate the hits into a
// system message injected immediately before the user turn.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/vectorstore"
	"github.com/voxcore/voxcore/internal/voice/llm"
)

const (
	defaultTopK        = 5
	chunkSeparator     = "\n\n---\n\n"
	embeddingModelMeta = "embedding_model"
	namespaceConfigKey = "namespace"
)

// Embedder is the subset of llm.Client the retriever needs; modeled as
// an interface so session tests can fake it without a real API key.
type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float32, error)
}

type Retriever struct {
	store    vectorstore.Store
	embedder Embedder
}

func NewRetriever(store vectorstore.Store, embedder Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Retrieve returns the concatenated chunk text for kb and a final user
// utterance, or ok=false if kb is nil, inactive, or the query returns
// no chunks — in all of those cases no context should be injected.
func (r *Retriever) Retrieve(ctx context.Context, kb *models.KnowledgeBase, utterance string) (context string, ok bool, err error) {
	if kb == nil || !kb.IsActive {
		return "", false, nil
	}

	embedModel, _ := kb.Config[embeddingModelMeta].(string)

	vector, err := r.embedder.Embed(ctx, utterance, embedModel)
	if err != nil {
		return "", false, fmt.Errorf("embed query: %w", err)
	}

	namespace, _ := kb.Config[namespaceConfigKey].(string)

	results, err := r.store.Query(ctx, namespace, vector, defaultTopK)
	if err != nil {
		return "", false, fmt.Errorf("query knowledge base %s: %w", kb.ID, err)
	}
	if len(results) == 0 {
		logger.WithComponent("rag").Debug().Str("knowledge_base_id", kb.ID.String()).Msg("no chunks retrieved")
		return "", false, nil
	}

	chunks := make([]string, 0, len(results))
	for _, res := range results {
		if res.Content != "" {
			chunks = append(chunks, res.Content)
		}
	}
	if len(chunks) == 0 {
		return "", false, nil
	}

	return strings.Join(chunks, chunkSeparator), true, nil
}

// InjectBeforeLastUser returns messages with a system message carrying
// context inserted immediately before the last message, if that last
// message has role "user". Otherwise the context is appended as a
// trailing system message.
func InjectBeforeLastUser(messages []llm.Message, context string) []llm.Message {
	contextMsg := llm.Message{Role: "system", Content: context}
	if len(messages) == 0 || messages[len(messages)-1].Role != "user" {
		return append(messages, contextMsg)
	}

	out := make([]llm.Message, 0, len(messages)+1)
	out = append(out, messages[:len(messages)-1]...)
	out = append(out, contextMsg, messages[len(messages)-1])
	return out
}
