package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const payloadContentField = "_content"

// QdrantStore is the alternative vector store backend, reached over
// Qdrant's gRPC API (default port 6334). One Qdrant collection per
// namespace.
type QdrantStore struct {
	client *qdrant.Client
	dim    int
}

func NewQdrantStore(host string, port int, apiKey string, dim int) (*QdrantStore, error) {
	cfg := &qdrant.Config{Host: host, Port: port}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &QdrantStore{client: client, dim: dim}, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, namespace string) error {
	exists, err := s.client.CollectionExists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: namespace,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (s *QdrantStore) Upsert(ctx context.Context, namespace, id string, vector []float32, content string, metadata map[string]string) error {
	if err := s.ensureCollection(ctx, namespace); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	pointUUID := id
	if _, err := uuid.Parse(id); err != nil {
		pointUUID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
	}

	payload := map[string]any{payloadContentField: content, "_original_id": id}
	for k, v := range metadata {
		payload[k] = v
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: namespace,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointUUID),
			Vectors: qdrant.NewVectorsDense(vector),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

func (s *QdrantStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}
	if err := s.ensureCollection(ctx, namespace); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	limit := uint64(topK)
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: namespace,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		metadata := map[string]string{}
		var content, originalID string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				switch k {
				case payloadContentField:
					content = v.GetStringValue()
				case "_original_id":
					originalID = v.GetStringValue()
				default:
					metadata[k] = v.GetStringValue()
				}
			}
		}
		id := originalID
		if id == "" {
			id = hit.Id.GetUuid()
		}
		out = append(out, Result{ID: id, Score: float64(hit.Score), Content: content, Metadata: metadata})
	}
	return out, nil
}

func (s *QdrantStore) Delete(ctx context.Context, namespace, id string) error {
	pointUUID := id
	if _, err := uuid.Parse(id); err != nil {
		pointUUID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: namespace,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointUUID)),
	})
	return err
}
