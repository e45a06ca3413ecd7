// Package retrieval orchestrates the embedding provider, the vector
// index, and the byte sources per request. It is the thin layer between
// the HTTP surface and the index; all interesting decisions live below
// it.
package retrieval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	// Register decoders for upload validation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/streamlens/streamlens/pkg/embeddings"
	"github.com/streamlens/streamlens/pkg/events"
	"github.com/streamlens/streamlens/pkg/fetcher"
	"github.com/streamlens/streamlens/pkg/index"
)

var (
	// ErrOwnerKeyRequired is returned when an ingest or owner-scoped
	// operation is missing its owner key.
	ErrOwnerKeyRequired = errors.New("streamer id is required")

	// ErrTextRequired is returned when a search has no query text.
	ErrTextRequired = errors.New("search text is required")

	// ErrInvalidImage is returned when ingested bytes do not decode as
	// an image.
	ErrInvalidImage = errors.New("invalid image file")
)

// DefaultSearchLimit applies when a search request does not specify one.
const DefaultSearchLimit = 5

// Asset describes one ingested record.
type Asset struct {
	ID       string `json:"id"`
	OwnerKey string `json:"streamer_id"`
	Location string `json:"image_uri"`
}

// Service wires the embedder, index, fetcher, and event publisher.
type Service struct {
	embedder embeddings.Embedder
	index    index.Index
	fetcher  *fetcher.Fetcher
	events   events.Publisher
	logger   *zap.Logger
}

// NewService creates a retrieval service. All collaborators are
// injected; none are optional except events, where a nil publisher is
// replaced by events.Nop().
func NewService(embedder embeddings.Embedder, idx index.Index, f *fetcher.Fetcher, publisher events.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop()
	}
	return &Service{
		embedder: embedder,
		index:    idx,
		fetcher:  f,
		events:   publisher,
		logger:   logger,
	}
}

// IngestUpload stores uploaded image bytes, embeds them, and indexes
// the result. The canonical location is the normalized server-side file
// path.
func (s *Service) IngestUpload(ctx context.Context, ownerKey, filename string, contents []byte) (*Asset, error) {
	if strings.TrimSpace(ownerKey) == "" {
		return nil, ErrOwnerKeyRequired
	}
	if err := validateImage(contents); err != nil {
		return nil, err
	}

	location, err := s.fetcher.SaveUpload(ownerKey, filename, contents)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	return s.ingest(ctx, ownerKey, location, contents)
}

// IngestLocalFile embeds an image already on local disk and indexes it
// under its own path, without copying it into the image directory. Used
// by the seed command.
func (s *Service) IngestLocalFile(ctx context.Context, ownerKey, path string) (*Asset, error) {
	if strings.TrimSpace(ownerKey) == "" {
		return nil, ErrOwnerKeyRequired
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := validateImage(contents); err != nil {
		return nil, err
	}

	return s.ingest(ctx, ownerKey, path, contents)
}

// IngestS3Key fetches an object through a presigned URL, embeds it, and
// indexes the result. The canonical location is the bare object key.
func (s *Service) IngestS3Key(ctx context.Context, ownerKey, key string) (*Asset, error) {
	if strings.TrimSpace(ownerKey) == "" {
		return nil, ErrOwnerKeyRequired
	}

	contents, location, err := s.fetcher.FetchS3Key(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := validateImage(contents); err != nil {
		return nil, err
	}

	return s.ingest(ctx, ownerKey, location, contents)
}

// IngestURL fetches bytes from a direct or presigned URL, embeds them,
// and indexes the result. The canonical location is the URL path with
// the leading slash stripped.
func (s *Service) IngestURL(ctx context.Context, ownerKey, rawURL string) (*Asset, error) {
	if strings.TrimSpace(ownerKey) == "" {
		return nil, ErrOwnerKeyRequired
	}

	contents, location, err := s.fetcher.FetchURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := validateImage(contents); err != nil {
		return nil, err
	}

	return s.ingest(ctx, ownerKey, location, contents)
}

func (s *Service) ingest(ctx context.Context, ownerKey, location string, contents []byte) (*Asset, error) {
	// Stored locations carry the canonical form, so a delete filter
	// normalized the same way matches by exact string equality.
	location = NormalizeLocation(location)

	vectors, err := s.embedder.EmbedImages(ctx, [][]byte{contents})
	if err != nil {
		return nil, fmt.Errorf("embedding image: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 embedding, got %d", embeddings.ErrEmbedding, len(vectors))
	}

	id, err := s.index.Insert(ctx, ownerKey, location, vectors[0])
	if err != nil {
		return nil, fmt.Errorf("indexing asset: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeAssetIngested,
		AssetID:  id,
		OwnerKey: ownerKey,
		Location: location,
		At:       time.Now().UTC(),
	})

	s.logger.Info("ingested asset",
		zap.String("id", id),
		zap.String("streamer_id", ownerKey),
		zap.String("image_uri", location),
	)

	return &Asset{ID: id, OwnerKey: ownerKey, Location: location}, nil
}

// Search embeds the query text and returns the nearest assets, closest
// first. A non-positive limit falls back to DefaultSearchLimit before
// reaching the index; ownerKey optionally restricts results to one
// owner.
func (s *Service) Search(ctx context.Context, text string, limit int, ownerKey string) ([]index.ScoredRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextRequired
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 embedding, got %d", embeddings.ErrEmbedding, len(vectors))
	}

	results, err := s.index.Query(ctx, vectors[0], limit, ownerKey)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search",
		zap.String("text", text),
		zap.Int("limit", limit),
		zap.String("streamer_id", ownerKey),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Delete removes assets matching the filter. The location filter is
// normalized the same way ingestion normalized it, so delete-by-key and
// delete-by-uri address the same records.
func (s *Service) Delete(ctx context.Context, ownerKey, location string) (index.DeleteResult, error) {
	result, err := s.index.Delete(ctx, ownerKey, NormalizeLocation(location))
	if err != nil {
		return result, err
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeAssetsDeleted,
		OwnerKey: ownerKey,
		Location: location,
		Matched:  result.Matched,
		Deleted:  result.Deleted,
		At:       time.Now().UTC(),
	})

	return result, nil
}

// Close releases the service's collaborators.
func (s *Service) Close() error {
	if err := s.events.Close(); err != nil {
		s.logger.Warn("closing event publisher", zap.Error(err))
	}
	if err := s.embedder.Close(); err != nil {
		s.logger.Warn("closing embedder", zap.Error(err))
	}
	return s.index.Close()
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publishing event",
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
}

// NormalizeLocation canonicalizes a location: s3:// URIs reduce to the
// bare key, and a leading slash is stripped from path-like forms.
// Applied both at insert time and to delete filters, so the two always
// agree on the stored form.
func NormalizeLocation(location string) string {
	if location == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		// Drop the bucket segment; records store the bare key.
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return rest[i+1:]
		}
		return rest
	}
	return strings.TrimPrefix(location, "/")
}

// validateImage checks that bytes decode as a supported image format.
func validateImage(contents []byte) error {
	if _, _, err := image.Decode(bytes.NewReader(contents)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}
