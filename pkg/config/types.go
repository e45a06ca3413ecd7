// Package config holds the streamlens configuration: defaults, an
// optional config.toml, and STREAMLENS_-prefixed environment variables,
// in ascending precedence.
package config

// Config represents the full service configuration. The TOML layout
// uses sections for logical grouping.
type Config struct {
	API         APIConfig         `toml:"api"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	S3          S3Config          `toml:"s3"`
	Ingest      IngestConfig      `toml:"ingest"`
	Events      EventsConfig      `toml:"events"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// VectorStoreConfig holds vector index settings. Provider selects the
// backend: "sqlite" (embedded sqlite-vec) or "qdrant".
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
	Host       string `toml:"host,omitempty"`
	Port       int    `toml:"port,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	UseTLS     bool   `toml:"use_tls,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// S3Config holds object store settings for the S3 byte source. The
// source is enabled only when a bucket is configured.
type S3Config struct {
	Bucket          string `toml:"bucket,omitempty"`
	Region          string `toml:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
	PresignExpires  int    `toml:"presign_expires,omitempty"`
}

// IngestConfig holds byte-source settings.
type IngestConfig struct {
	ImageDir string `toml:"image_dir,omitempty"`
}

// EventsConfig holds asset event publishing settings. Publishing is
// enabled only when brokers are configured.
type EventsConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}
