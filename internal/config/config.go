// Package config provides configuration management for the systematic review service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the systematic review service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings for the session store.
	Database DatabaseConfig `mapstructure:"database"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Embedding contains embedding provider settings.
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	// Translation contains question translation settings.
	Translation TranslationConfig `mapstructure:"translation"`
	// Sources contains bibliographic source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// Pipeline contains thresholds and limits for the review pipeline.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// Qdrant contains vector store settings for the embedding cache.
	Qdrant QdrantConfig `mapstructure:"qdrant"`
	// Kafka contains progress event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPAddress returns the host:port address for the HTTP server.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the host:port address for the metrics server.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password, loaded exclusively from the environment.
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MaxConnLifetime is the maximum lifetime of a pooled connection.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum idle time before a connection is closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between pool health checks.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// MigrationPath is the path to migration files.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// Enabled selects the Postgres session store; when false the service
	// uses the in-memory store.
	Enabled bool `mapstructure:"enabled"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// Enabled turns on Temporal-based orchestration. When false, reviews
	// run in-process.
	Enabled bool `mapstructure:"enabled"`
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for review workflows.
	TaskQueue string `mapstructure:"task_queue"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	// Provider is the embedding provider name ("openai").
	Provider string `mapstructure:"provider"`
	// Model is the embedding model identifier (e.g., "text-embedding-3-small").
	Model string `mapstructure:"model"`
	// BaseURL is the API base URL (empty means the provider default).
	BaseURL string `mapstructure:"base_url"`
	// APIKey is loaded exclusively from the environment.
	APIKey string `mapstructure:"-"`
	// Dimensions is the vector dimensionality of the model.
	Dimensions int `mapstructure:"dimensions"`
	// Timeout is the per-call timeout for embedding requests.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// BatchSize is the maximum number of texts per batch request.
	BatchSize int `mapstructure:"batch_size"`
}

// TranslationConfig holds DeepL translation configuration.
type TranslationConfig struct {
	// Enabled turns question translation on. When off, questions are
	// embedded as-is.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the DeepL API endpoint.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is loaded exclusively from the environment.
	APIKey string `mapstructure:"-"`
	// Timeout is the per-call timeout for translation requests.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SourceConfig holds configuration shared by all bibliographic sources.
type SourceConfig struct {
	// Enabled indicates whether this source participates in searches.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL overrides the source's default API base URL.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is loaded exclusively from the environment.
	APIKey string `mapstructure:"-"`
	// MaxResults caps the number of results requested from this source.
	MaxResults int `mapstructure:"max_results"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SourcesConfig holds per-source API configurations.
type SourcesConfig struct {
	SemanticScholar SourceConfig `mapstructure:"semantic_scholar"`
	PubMed          SourceConfig `mapstructure:"pubmed"`
	ArXiv           SourceConfig `mapstructure:"arxiv"`
	OpenAlex        SourceConfig `mapstructure:"openalex"`
	// Email is the contact email sent to polite-pool APIs (OpenAlex, PubMed).
	Email string `mapstructure:"email"`
}

// PipelineConfig holds thresholds and limits for the review pipeline.
// The numeric defaults are product decisions, tunable per deployment.
type PipelineConfig struct {
	// ScreeningThreshold is the minimum cosine similarity for an article
	// to be considered relevant (default 0.70).
	ScreeningThreshold float64 `mapstructure:"screening_threshold"`
	// URLSimilarityFloor is the lower similarity bound applied to
	// URL-having articles in the selection policy (default 0.60).
	URLSimilarityFloor float64 `mapstructure:"url_similarity_floor"`
	// DuplicateThreshold is the cosine similarity above which two articles
	// are semantic duplicates (default 0.92).
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`
	// TargetCount is the default desired result set size (default 50).
	TargetCount int `mapstructure:"target_count"`
	// FullTextCapChars bounds how many full-text characters feed an
	// embedding (default 15000).
	FullTextCapChars int `mapstructure:"full_text_cap_chars"`
	// EnrichmentWorkers is the size of the PDF enrichment worker pool.
	EnrichmentWorkers int `mapstructure:"enrichment_workers"`
	// PDFMaxBytes caps the size of a downloaded PDF.
	PDFMaxBytes int64 `mapstructure:"pdf_max_bytes"`
	// PDFMaxPages caps how many pages are extracted from a PDF.
	PDFMaxPages int `mapstructure:"pdf_max_pages"`
	// SearchCeiling is the overall wall-clock ceiling for one review run.
	SearchCeiling time.Duration `mapstructure:"search_ceiling"`
}

// QdrantConfig holds vector store configuration for the embedding cache.
type QdrantConfig struct {
	// Enabled turns the embedding cache on.
	Enabled bool `mapstructure:"enabled"`
	// Address is the host:port of the Qdrant gRPC endpoint.
	Address string `mapstructure:"address"`
	// CollectionName is the Qdrant collection for article embeddings.
	CollectionName string `mapstructure:"collection_name"`
}

// KafkaConfig holds progress event publisher configuration.
type KafkaConfig struct {
	// Enabled turns progress event publishing on.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the topic progress events are published to.
	Topic string `mapstructure:"topic"`
}

// Load reads configuration from defaults, an optional YAML config file and
// REVIEW_-prefixed environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("REVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/systematic-review-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields use mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv("REVIEW_DATABASE_PASSWORD")
	cfg.Embedding.APIKey = os.Getenv("REVIEW_EMBEDDING_API_KEY")
	cfg.Translation.APIKey = os.Getenv("REVIEW_TRANSLATION_API_KEY")

	cfg.Sources.SemanticScholar.APIKey = os.Getenv("REVIEW_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Sources.PubMed.APIKey = os.Getenv("REVIEW_SOURCES_PUBMED_API_KEY")
	cfg.Sources.OpenAlex.APIKey = os.Getenv("REVIEW_SOURCES_OPENALEX_API_KEY")
	cfg.Sources.ArXiv.APIKey = os.Getenv("REVIEW_SOURCES_ARXIV_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "review")
	v.SetDefault("database.name", "systematic_review_service")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "1m")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Temporal defaults
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "systematic-review")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Embedding defaults
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.timeout", "30s")
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.batch_size", 64)

	// Translation defaults
	v.SetDefault("translation.enabled", true)
	v.SetDefault("translation.base_url", "https://api-free.deepl.com/v2/translate")
	v.SetDefault("translation.timeout", "10s")

	// Source defaults
	v.SetDefault("sources.email", "")
	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.max_results", 100)
	v.SetDefault("sources.semantic_scholar.rate_limit", 1.0)
	v.SetDefault("sources.semantic_scholar.burst_size", 1)
	v.SetDefault("sources.semantic_scholar.timeout", "30s")
	v.SetDefault("sources.pubmed.enabled", true)
	v.SetDefault("sources.pubmed.max_results", 100)
	v.SetDefault("sources.pubmed.rate_limit", 3.0)
	v.SetDefault("sources.pubmed.burst_size", 3)
	v.SetDefault("sources.pubmed.timeout", "30s")
	v.SetDefault("sources.arxiv.enabled", true)
	v.SetDefault("sources.arxiv.max_results", 50)
	v.SetDefault("sources.arxiv.rate_limit", 3.0)
	v.SetDefault("sources.arxiv.burst_size", 3)
	v.SetDefault("sources.arxiv.timeout", "30s")
	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.max_results", 100)
	v.SetDefault("sources.openalex.rate_limit", 10.0)
	v.SetDefault("sources.openalex.burst_size", 10)
	v.SetDefault("sources.openalex.timeout", "30s")

	// Pipeline defaults
	v.SetDefault("pipeline.screening_threshold", 0.70)
	v.SetDefault("pipeline.url_similarity_floor", 0.60)
	v.SetDefault("pipeline.duplicate_threshold", 0.92)
	v.SetDefault("pipeline.target_count", 50)
	v.SetDefault("pipeline.full_text_cap_chars", 15000)
	v.SetDefault("pipeline.enrichment_workers", 8)
	v.SetDefault("pipeline.pdf_max_bytes", 30*1024*1024)
	v.SetDefault("pipeline.pdf_max_pages", 40)
	v.SetDefault("pipeline.search_ceiling", "10m")

	// Qdrant defaults
	v.SetDefault("qdrant.enabled", false)
	v.SetDefault("qdrant.address", "localhost:6334")
	v.SetDefault("qdrant.collection_name", "article_embeddings")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "review.progress")
}

// Validate checks configuration invariants that cannot be expressed as defaults.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be in (0, 65535], got %d", c.Server.HTTPPort)
	}

	if t := c.Pipeline.ScreeningThreshold; t < 0 || t > 1 {
		return fmt.Errorf("pipeline.screening_threshold must be in [0, 1], got %g", t)
	}
	if t := c.Pipeline.DuplicateThreshold; t < 0 || t > 1 {
		return fmt.Errorf("pipeline.duplicate_threshold must be in [0, 1], got %g", t)
	}
	if f := c.Pipeline.URLSimilarityFloor; f < 0 || f > 1 {
		return fmt.Errorf("pipeline.url_similarity_floor must be in [0, 1], got %g", f)
	}
	if c.Pipeline.URLSimilarityFloor > c.Pipeline.ScreeningThreshold {
		return fmt.Errorf("pipeline.url_similarity_floor (%g) must not exceed pipeline.screening_threshold (%g)",
			c.Pipeline.URLSimilarityFloor, c.Pipeline.ScreeningThreshold)
	}
	if c.Pipeline.TargetCount <= 0 {
		return fmt.Errorf("pipeline.target_count must be positive, got %d", c.Pipeline.TargetCount)
	}
	if c.Pipeline.EnrichmentWorkers <= 0 {
		return fmt.Errorf("pipeline.enrichment_workers must be positive, got %d", c.Pipeline.EnrichmentWorkers)
	}

	if c.Embedding.Provider == "" {
		return fmt.Errorf("embedding.provider is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required when database.enabled")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required when database.enabled")
		}
	}

	if c.Temporal.Enabled {
		if c.Temporal.HostPort == "" {
			return fmt.Errorf("temporal.host_port is required when temporal.enabled")
		}
		if c.Temporal.TaskQueue == "" {
			return fmt.Errorf("temporal.task_queue is required when temporal.enabled")
		}
		// The worker persists results the API server reads back, so both
		// need a shared durable store.
		if !c.Database.Enabled {
			return fmt.Errorf("temporal.enabled requires database.enabled")
		}
	}

	if c.Qdrant.Enabled {
		if c.Qdrant.Address == "" {
			return fmt.Errorf("qdrant.address is required when qdrant.enabled")
		}
		if c.Qdrant.CollectionName == "" {
			return fmt.Errorf("qdrant.collection_name is required when qdrant.enabled")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka.enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka.enabled")
		}
	}

	return nil
}
