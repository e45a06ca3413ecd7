// Package wire assembles the retrieval service from resolved
// configuration. Shared by the serve and seed commanders.
package wire

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/streamlens/streamlens/pkg/config"
	"github.com/streamlens/streamlens/pkg/embeddings/clip"
	"github.com/streamlens/streamlens/pkg/events"
	"github.com/streamlens/streamlens/pkg/fetcher"
	"github.com/streamlens/streamlens/pkg/index"
	"github.com/streamlens/streamlens/pkg/index/qdrant"
	"github.com/streamlens/streamlens/pkg/index/sqlitevec"
	"github.com/streamlens/streamlens/pkg/retrieval"
)

// BuildService constructs the embedder, index backend, byte sources,
// and event publisher, and wires them into a retrieval service. The
// returned index is the same one the service owns; Service.Close
// releases everything.
func BuildService(cfg *config.Config, logger *zap.Logger) (*retrieval.Service, index.Index, error) {
	embedder, err := clip.NewEmbedder(clip.EmbedderConfig{
		BaseURL: cfg.Embedding.Target,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	idx, err := newIndex(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var s3 *fetcher.S3Source
	if cfg.S3.Bucket != "" {
		s3, err = fetcher.NewS3Source(fetcher.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PresignExpiry:   time.Duration(cfg.S3.PresignExpires) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating s3 source: %w", err)
		}
		logger.Info("s3 byte source enabled",
			zap.String("bucket", cfg.S3.Bucket),
		)
	}

	f := fetcher.New(fetcher.Config{ImageDir: cfg.Ingest.ImageDir}, s3)

	var publisher events.Publisher = events.Nop()
	if len(cfg.Events.Brokers) > 0 {
		publisher, err = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating event publisher: %w", err)
		}
		logger.Info("asset event publishing enabled",
			zap.Strings("brokers", cfg.Events.Brokers),
		)
	}

	service := retrieval.NewService(embedder, idx, f, publisher, logger)
	return service, idx, nil
}

func newIndex(cfg *config.Config, logger *zap.Logger) (index.Index, error) {
	switch cfg.VectorStore.Provider {
	case "sqlite":
		idx, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
			DBPath:     cfg.VectorStore.SQLitePath,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite-vec index: %w", err)
		}
		return idx, nil
	case "qdrant":
		idx, err := qdrant.NewQdrantIndex(qdrant.Config{
			Host:           cfg.VectorStore.Host,
			Port:           cfg.VectorStore.Port,
			APIKey:         cfg.VectorStore.APIKey,
			UseTLS:         cfg.VectorStore.UseTLS,
			CollectionName: cfg.VectorStore.Collection,
			Dimensions:     cfg.Embedding.Dimensions,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating qdrant index: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", cfg.VectorStore.Provider)
	}
}
