package vectorstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid config",
			cfg: Config{
				Address:        "localhost:6334",
				CollectionName: "article_embeddings",
				VectorSize:     1536,
			},
			wantErr: "",
		},
		{
			name: "empty address",
			cfg: Config{
				CollectionName: "article_embeddings",
				VectorSize:     1536,
			},
			wantErr: "address is required",
		},
		{
			name: "empty collection name",
			cfg: Config{
				Address:    "localhost:6334",
				VectorSize: 1536,
			},
			wantErr: "collection name is required",
		},
		{
			name: "zero vector size",
			cfg: Config{
				Address:        "localhost:6334",
				CollectionName: "article_embeddings",
			},
			wantErr: "vector size must be > 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{
		CollectionName: "article_embeddings",
		VectorSize:     1536,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestArticlePoint(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	point := ArticlePoint{
		ArticleID: id,
		Embedding: []float32{0.1, 0.2, 0.3},
		Title:     "Statins and cardiovascular outcomes",
		DOI:       "10.1000/j.cardio.2021.01.001",
	}

	assert.Equal(t, id, point.ArticleID)
	assert.Len(t, point.Embedding, 3)
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{name: "host and port", addr: "localhost:6334", wantHost: "localhost", wantPort: 6334},
		{name: "ip and port", addr: "10.0.0.5:6334", wantHost: "10.0.0.5", wantPort: 6334},
		{name: "missing port", addr: "localhost", wantErr: true},
		{name: "empty port", addr: "localhost:", wantErr: true},
		{name: "non-numeric port", addr: "localhost:abc", wantErr: true},
		{name: "port out of range", addr: "localhost:99999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			host, port, err := parseAddress(tt.addr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}
