// Package vectorstore provides a Qdrant-backed cache of article embeddings.
// Screened review corpora are persisted here so later reviews can run
// similarity searches against previously seen articles without re-embedding.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
)

// Config holds the configuration for connecting to a Qdrant instance.
type Config struct {
	// Address is the host:port of the Qdrant gRPC endpoint (e.g. "localhost:6334").
	Address string
	// CollectionName is the Qdrant collection to use (e.g. "article_embeddings").
	CollectionName string
	// VectorSize is the dimensionality of the embedding vectors (e.g. 1536 for text-embedding-3-small).
	VectorSize uint64
}

// Validate checks that all required Config fields are set.
func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("vectorstore config: address is required")
	}
	if c.CollectionName == "" {
		return fmt.Errorf("vectorstore config: collection name is required")
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("vectorstore config: vector size must be > 0")
	}
	return nil
}

// ArticlePoint is an article embedding to be stored in the collection.
type ArticlePoint struct {
	// ArticleID is the article's unique identifier, used as the Qdrant point ID.
	ArticleID uuid.UUID
	// Embedding is the dense vector representation of the article text.
	Embedding []float32
	// Title is stored as payload so search results are readable without a
	// round trip to the session store.
	Title string
	// DOI is stored as payload when the article has one.
	DOI string
}

// SearchResult is a single match from a vector similarity search.
type SearchResult struct {
	// ArticleID is the unique identifier of the matched article.
	ArticleID uuid.UUID
	// Score is the cosine similarity score (higher is more similar).
	Score float32
	// Title is the stored article title, if present in the payload.
	Title string
}

// VectorStore defines the vector storage and retrieval operations used by
// the review pipeline.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not already exist.
	EnsureCollection(ctx context.Context) error
	// UpsertBatch inserts or updates article embeddings in the collection.
	UpsertBatch(ctx context.Context, points []ArticlePoint) error
	// Search finds the topK most similar vectors and returns their article IDs and scores.
	Search(ctx context.Context, vector []float32, topK uint64) ([]SearchResult, error)
	// Close releases the underlying gRPC connection.
	Close() error
}

// Compile-time check that Client implements VectorStore.
var _ VectorStore = (*Client)(nil)

// Client is a Qdrant vector store client that implements VectorStore via gRPC.
type Client struct {
	client         *pb.Client
	collectionName string
	vectorSize     uint64
}

// NewClient creates a new Qdrant client by dialing the configured gRPC address.
// The connection uses insecure credentials, suitable for internal network deployments.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, port, err := parseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: invalid address %q: %w", cfg.Address, err)
	}

	qdrantClient, err := pb.NewClient(&pb.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: failed to create client: %w", err)
	}

	return &Client{
		client:         qdrantClient,
		collectionName: cfg.CollectionName,
		vectorSize:     cfg.VectorSize,
	}, nil
}

// EnsureCollection checks whether the configured collection exists and creates it
// with cosine distance if it does not.
func (c *Client) EnsureCollection(ctx context.Context) error {
	exists, err := c.client.CollectionExists(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("vectorstore: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &pb.CreateCollection{
		CollectionName: c.collectionName,
		VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
			Size:     c.vectorSize,
			Distance: pb.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: failed to create collection %q: %w", c.collectionName, err)
	}

	return nil
}

// UpsertBatch inserts or updates article embedding points. Article UUIDs are
// used as point IDs, so repeated runs over the same corpus are idempotent.
func (c *Client) UpsertBatch(ctx context.Context, points []ArticlePoint) error {
	if len(points) == 0 {
		return nil
	}

	pbPoints := make([]*pb.PointStruct, 0, len(points))
	for _, point := range points {
		payload := map[string]any{}
		if point.Title != "" {
			payload["title"] = point.Title
		}
		if point.DOI != "" {
			payload["doi"] = point.DOI
		}
		pbPoints = append(pbPoints, &pb.PointStruct{
			Id:      pb.NewIDUUID(point.ArticleID.String()),
			Vectors: pb.NewVectors(point.Embedding...),
			Payload: pb.NewValueMap(payload),
		})
	}

	wait := true
	_, err := c.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.collectionName,
		Wait:           &wait,
		Points:         pbPoints,
	})
	if err != nil {
		return fmt.Errorf("vectorstore: failed to upsert %d points: %w", len(points), err)
	}

	return nil
}

// Search performs a nearest-neighbor vector search returning up to topK results
// ordered by cosine similarity (descending).
func (c *Client) Search(ctx context.Context, vector []float32, topK uint64) ([]SearchResult, error) {
	scored, err := c.client.Query(ctx, &pb.QueryPoints{
		CollectionName: c.collectionName,
		Query:          pb.NewQueryDense(vector),
		Limit:          &topK,
		WithPayload:    pb.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(scored))
	for _, sp := range scored {
		if sp.Id == nil {
			continue
		}
		uuidStr := sp.Id.GetUuid()
		if uuidStr == "" {
			continue
		}
		articleID, err := uuid.Parse(uuidStr)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: invalid UUID in search result %q: %w", uuidStr, err)
		}
		result := SearchResult{
			ArticleID: articleID,
			Score:     sp.Score,
		}
		if title, ok := sp.Payload["title"]; ok {
			result.Title = title.GetStringValue()
		}
		results = append(results, result)
	}

	return results, nil
}

// Close releases the gRPC connection to Qdrant.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// parseAddress splits an address string of the form "host:port" into its components.
func parseAddress(addr string) (string, int, error) {
	host, portStr, err := splitHostPort(addr)
	if err != nil {
		return "", 0, err
	}

	port, err := parsePort(portStr)
	if err != nil {
		return "", 0, err
	}

	return host, port, nil
}

// splitHostPort splits an address into host and port strings on the last colon,
// which also handles bracketed IPv6 addresses.
func splitHostPort(addr string) (string, string, error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("missing port in address %q", addr)
}

// parsePort converts a port string to an integer.
func parsePort(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty port")
	}
	var port int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid port %q", s)
		}
		port = port*10 + int(c-'0')
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}
