package rag

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/chefai-go/internal/recipe"
)

// pointNamespace scopes the UUIDv5 point IDs derived from recipe IDs.
// Qdrant only accepts unsigned integers or UUIDs as point IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/54b3r/chefai-go/recipe"))

// Payload keys stored with every point.
const (
	payloadID           = "id"
	payloadTitle        = "title"
	payloadIngredients  = "ingredients"
	payloadInstructions = "instructions"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection used as the recipe index.
	Collection string

	// APIKey is the Qdrant API key. Required unless Host is a loopback address.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// Validate applies defaults and checks that the configuration is usable.
// A remote Qdrant without an API key is rejected up front so misconfiguration
// surfaces at startup instead of as an auth error on the first query.
func (c *QdrantConfig) Validate() error {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = DefaultIndex
	}
	if c.APIKey == "" && !IsLoopback(c.Host) {
		return fmt.Errorf("rag: QDRANT_API_KEY is required for remote Qdrant host %q: set it in the environment or .env", c.Host)
	}
	return nil
}

// IsLoopback reports whether host names the local machine.
func IsLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// QdrantStore implements VectorStore backed by a Qdrant collection.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore validates cfg and connects to Qdrant. The collection is not
// created here; call [EnsureIndex] from the ingestion path.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// PointID maps a recipe ID onto the deterministic UUID used as its Qdrant
// point ID, so re-ingesting a recipe overwrites the same point.
func PointID(recipeID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recipeID)).String()
}

// Index returns the collection name.
func (s *QdrantStore) Index() string { return s.cfg.Collection }

// ListIndexes returns every collection on the Qdrant server.
func (s *QdrantStore) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("qdrant: list collections: %w", err)
	}
	return names, nil
}

// CreateIndex creates a collection with the given vector size and metric.
func (s *QdrantStore) CreateIndex(ctx context.Context, name string, dimension int, metric Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d", dimension)
	}
	distance, err := qdrantDistance(metric)
	if err != nil {
		return err
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension), //nolint:gosec // checked positive above
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
	}
	return nil
}

// Upsert writes a single point carrying the full recipe as payload.
func (s *QdrantStore) Upsert(ctx context.Context, id string, vector []float32, r recipe.Recipe) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(PointID(id)),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadID:           id,
				payloadTitle:        r.Title,
				payloadIngredients:  r.Ingredients,
				payloadInstructions: r.Instructions,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %q failed: %w", id, err)
	}
	return nil
}

// Query performs a cosine similarity search and returns the top-k matches.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	limit := uint64(topK) //nolint:gosec // topK is a small positive constant
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, p := range results {
		matches = append(matches, matchFromPayload(p.GetId().GetUuid(), p.GetScore(), p.GetPayload()))
	}
	return matches, nil
}

// Ping calls the Qdrant HealthCheck RPC.
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

// matchFromPayload rebuilds a Match from a point payload. Points written by
// older ingests without an "id" key fall back to the point UUID.
func matchFromPayload(pointID string, score float32, payload map[string]*qdrant.Value) Match {
	m := Match{ID: pointID, Score: score}
	if v, ok := payload[payloadID]; ok && v.GetStringValue() != "" {
		m.ID = v.GetStringValue()
	}
	m.Recipe = recipe.Recipe{
		ID:           m.ID,
		Title:        payload[payloadTitle].GetStringValue(),
		Ingredients:  payload[payloadIngredients].GetStringValue(),
		Instructions: payload[payloadInstructions].GetStringValue(),
	}
	return m
}

// qdrantDistance maps a Metric onto the Qdrant distance enum.
func qdrantDistance(m Metric) (qdrant.Distance, error) {
	switch m {
	case MetricCosine, "":
		return qdrant.Distance_Cosine, nil
	default:
		return qdrant.Distance_UnknownDistance, fmt.Errorf("qdrant: unsupported metric %q", m)
	}
}
