package config

const (
	defaultAPIListen = ":8090"

	defaultVectorProvider = "sqlite"
	defaultSQLitePath     = "streamlens.db"
	defaultQdrantHost     = "localhost"
	defaultQdrantPort     = 6334
	defaultCollection     = "streamers"

	defaultEmbeddingTarget     = "http://localhost:8093"
	defaultEmbeddingModel      = "clip-vit-large-patch14"
	defaultEmbeddingDimensions = 768

	defaultPresignExpires = 3600
	defaultImageDir       = "data/streamer_images"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			SQLitePath: defaultSQLitePath,
			Host:       defaultQdrantHost,
			Port:       defaultQdrantPort,
			Collection: defaultCollection,
		},
		Embedding: EmbeddingConfig{
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		S3: S3Config{
			PresignExpires: defaultPresignExpires,
		},
		Ingest: IngestConfig{
			ImageDir: defaultImageDir,
		},
	}
}
