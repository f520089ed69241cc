package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointNamespace is the fixed UUID namespace used to derive Qdrant point IDs
// from human-readable item IDs. Deriving the point ID with UUIDv5 keeps it
// deterministic: re-ingesting the same (dataset, row) pair produces the same
// point ID, so the upsert overwrites the prior entry instead of duplicating it.
var pointNamespace = uuid.MustParse("8f3c1c3a-06b2-4c4e-9a70-6f1f6a2cbb55")

// reserved payload keys that carry Item fields rather than opaque metadata.
const (
	payloadID     = "id"
	payloadText   = "text"
	payloadSource = "source"
	payloadRow    = "row"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection. Used only when the collection has to be created.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant collection using the
// cosine metric. Reported distances are cosine distances (1 - similarity),
// so smaller means more similar.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// Collection returns the name of the collection this store operates on.
func (s *QdrantStore) Collection() string { return s.cfg.Collection }

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// pointID derives the deterministic Qdrant point UUID from a human-readable
// item ID such as "staffs_3".
func pointID(itemID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(itemID)).String()
}

// Upsert stores or updates a batch of items with their embeddings.
// The embeddings slice must be parallel to items. Existing point IDs are
// overwritten in place.
func (s *QdrantStore) Upsert(ctx context.Context, items []Item, embeddings [][]float32) error {
	if len(items) != len(embeddings) {
		return fmt.Errorf("qdrant: %d items but %d embeddings", len(items), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(items))
	for i, item := range items {
		payload := map[string]interface{}{
			payloadID:     item.ID,
			payloadText:   item.Text,
			payloadSource: item.Source,
			payloadRow:    item.Row,
		}
		for k, v := range item.Metadata {
			if _, reserved := payload[k]; !reserved {
				payload[k] = v
			}
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(item.ID)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Search performs a cosine similarity search and returns up to topK items
// ordered by ascending distance. Qdrant reports cosine similarity scores in
// descending order; converting each to 1 - score yields the ascending
// distance ordering the retrieval contract requires.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Item, error) {
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	items := make([]Item, 0, len(results))
	for _, r := range results {
		item := Item{
			Distance: 1 - r.GetScore(),
			Metadata: make(map[string]string),
		}
		for k, v := range r.GetPayload() {
			switch k {
			case payloadID:
				item.ID = v.GetStringValue()
			case payloadText:
				item.Text = v.GetStringValue()
			case payloadSource:
				item.Source = v.GetStringValue()
			case payloadRow:
				item.Row = int(v.GetIntegerValue())
			default:
				item.Metadata[k] = valueToString(v)
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// Count returns the number of points currently stored in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	exact := true
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return count, nil
}

// Delete removes items from the collection by their human-readable IDs.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(pointID(id)))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}

	return nil
}

// Ping calls the Qdrant HealthCheck RPC. Returns nil when the server is
// reachable, a descriptive error otherwise.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// valueToString renders an arbitrary payload value as text for the opaque
// metadata map.
func valueToString(v *qdrant.Value) string {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(kind.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(kind.DoubleValue, 'f', -1, 64)
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue)
	default:
		return v.String()
	}
}
