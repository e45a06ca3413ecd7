// Package qdrant implements the asset index against a Qdrant server
// over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	qd "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/pkg/index"
)

const (
	fieldOwnerKey = "owner_key"
	fieldLocation = "location"
)

// Config holds configuration for the Qdrant index.
type Config struct {
	// Host is the Qdrant gRPC host (e.g. "localhost").
	Host string

	// Port is the Qdrant gRPC port. Defaults to 6334 if zero.
	Port int

	// APIKey authenticates against a secured deployment. Optional.
	APIKey string

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool

	// CollectionName is the collection to use.
	// Defaults to index.DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding dimensionality. Required.
	Dimensions uint
}

// QdrantIndex implements index.Index backed by a Qdrant collection with
// a cosine vector index and keyword payload indexes on owner_key and
// location. The underlying gRPC client is safe for concurrent use.
type QdrantIndex struct {
	client     *qd.Client
	collection string
	dimensions uint
	logger     *zap.Logger

	mu      sync.Mutex
	ensured bool
}

// NewQdrantIndex creates a Qdrant-backed index. The connection is
// established lazily by the client; the collection is created on first
// use via EnsureCollection.
func NewQdrantIndex(c Config, logger *zap.Logger) (*QdrantIndex, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = 6334
	}

	collection := c.CollectionName
	if collection == "" {
		collection = index.DefaultCollectionName
	}

	client, err := qd.NewClient(&qd.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	logger.Info("qdrant index initialized",
		zap.String("host", c.Host),
		zap.Int("port", port),
		zap.String("collection", collection),
		zap.Uint("dimensions", c.Dimensions),
	)

	return &QdrantIndex{
		client:     client,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// EnsureCollection guarantees the collection exists with a cosine vector
// index and keyword payload indexes. Existence alone is the completion
// condition: an existing collection is left untouched.
func (x *QdrantIndex) EnsureCollection(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.ensured {
		return nil
	}

	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", index.ErrStoreUnavailable, err)
	}

	if !exists {
		err := x.client.CreateCollection(ctx, &qd.CreateCollection{
			CollectionName: x.collection,
			VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
				Size:     uint64(x.dimensions),
				Distance: qd.Distance_Cosine,
			}),
		})
		if err != nil {
			// A concurrent caller may have created it between the
			// existence check and the create call.
			exists, checkErr := x.client.CollectionExists(ctx, x.collection)
			if checkErr != nil || !exists {
				return fmt.Errorf("%w: creating collection: %v", index.ErrStoreUnavailable, err)
			}
		} else {
			for _, field := range []string{fieldOwnerKey, fieldLocation} {
				_, err := x.client.CreateFieldIndex(ctx, &qd.CreateFieldIndexCollection{
					CollectionName: x.collection,
					FieldName:      field,
					FieldType:      qd.FieldType_FieldTypeKeyword.Enum(),
					Wait:           qd.PtrOf(true),
				})
				if err != nil {
					return fmt.Errorf("%w: indexing payload field %s: %v", index.ErrStoreUnavailable, field, err)
				}
			}
			x.logger.Info("created qdrant collection",
				zap.String("collection", x.collection),
			)
		}
	}

	x.ensured = true
	return nil
}

// Insert appends one record and returns its assigned id.
func (x *QdrantIndex) Insert(ctx context.Context, ownerKey, location string, vector []float32) (string, error) {
	if ownerKey == "" {
		return "", fmt.Errorf("owner key is required")
	}
	if err := index.ValidateVector(vector, x.dimensions); err != nil {
		return "", err
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return "", err
	}

	id := uuid.NewString()

	_, err := x.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: x.collection,
		Wait:           qd.PtrOf(true),
		Points: []*qd.PointStruct{
			{
				Id:      qd.NewID(id),
				Vectors: qd.NewVectors(vector...),
				Payload: qd.NewValueMap(map[string]any{
					fieldOwnerKey: ownerKey,
					fieldLocation: location,
				}),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: upserting point: %v", index.ErrStoreUnavailable, err)
	}

	x.logger.Debug("inserted asset",
		zap.String("id", id),
		zap.String("owner_key", ownerKey),
	)

	return id, nil
}

// Query returns the nearest records by cosine distance, optionally
// restricted to an exact owner key. Qdrant reports a native cosine
// similarity score; it is passed through and distance derived from it.
func (x *QdrantIndex) Query(ctx context.Context, vector []float32, limit int, ownerKey string) ([]index.ScoredRecord, error) {
	if err := index.ValidateVector(vector, x.dimensions); err != nil {
		return nil, err
	}
	if err := index.ValidateLimit(limit); err != nil {
		return nil, err
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	points, err := x.client.Query(ctx, &qd.QueryPoints{
		CollectionName: x.collection,
		Query:          qd.NewQuery(vector...),
		Limit:          qd.PtrOf(uint64(limit)),
		Filter:         ownerFilter(ownerKey),
		WithPayload:    qd.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %v", index.ErrStoreUnavailable, err)
	}

	results := make([]index.ScoredRecord, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		results = append(results, index.ScoredRecord{
			ID:       point.GetId().GetUuid(),
			OwnerKey: payload[fieldOwnerKey].GetStringValue(),
			Location: payload[fieldLocation].GetStringValue(),
			Distance: index.DistanceFromScore(point.GetScore()),
			Score:    point.GetScore(),
		})
	}

	x.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Delete enumerates records matching the filter (capped at
// index.DeleteScanLimit) and removes each point individually. Failures
// on individual points leave Deleted behind Matched instead of aborting.
func (x *QdrantIndex) Delete(ctx context.Context, ownerKey, location string) (index.DeleteResult, error) {
	var result index.DeleteResult

	if ownerKey == "" && location == "" {
		return result, index.ErrMissingFilter
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return result, err
	}

	filter := &qd.Filter{}
	if ownerKey != "" {
		filter.Must = append(filter.Must, qd.NewMatch(fieldOwnerKey, ownerKey))
	}
	if location != "" {
		filter.Must = append(filter.Must, qd.NewMatch(fieldLocation, location))
	}

	points, err := x.client.Scroll(ctx, &qd.ScrollPoints{
		CollectionName: x.collection,
		Filter:         filter,
		Limit:          qd.PtrOf(uint32(index.DeleteScanLimit)),
		WithPayload:    qd.NewWithPayload(false),
	})
	if err != nil {
		return result, fmt.Errorf("%w: enumerating points: %v", index.ErrStoreUnavailable, err)
	}

	result.Matched = len(points)

	for _, point := range points {
		_, err := x.client.Delete(ctx, &qd.DeletePoints{
			CollectionName: x.collection,
			Wait:           qd.PtrOf(true),
			Points:         qd.NewPointsSelector(point.GetId()),
		})
		if err != nil {
			x.logger.Warn("failed to delete point",
				zap.String("id", point.GetId().GetUuid()),
				zap.Error(err),
			)
			continue
		}
		result.Deleted++
	}

	x.logger.Debug("deleted assets",
		zap.Int("matched", result.Matched),
		zap.Int("deleted", result.Deleted),
	)

	return result, nil
}

// List enumerates stored records for debugging via a scroll over the
// collection.
func (x *QdrantIndex) List(ctx context.Context, ownerKey string, limit int, includeVector bool) ([]index.Record, error) {
	if limit <= 0 {
		limit = 1
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	points, err := x.client.Scroll(ctx, &qd.ScrollPoints{
		CollectionName: x.collection,
		Filter:         ownerFilter(ownerKey),
		Limit:          qd.PtrOf(uint32(limit)),
		WithPayload:    qd.NewWithPayload(true),
		WithVectors:    qd.NewWithVectors(includeVector),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing points: %v", index.ErrStoreUnavailable, err)
	}

	records := make([]index.Record, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		rec := index.Record{
			ID:       point.GetId().GetUuid(),
			OwnerKey: payload[fieldOwnerKey].GetStringValue(),
			Location: payload[fieldLocation].GetStringValue(),
		}
		if includeVector {
			rec.Vector = point.GetVectors().GetVector().GetData()
		}
		records = append(records, rec)
	}

	return records, nil
}

// Close closes the gRPC connection.
func (x *QdrantIndex) Close() error {
	return x.client.Close()
}

func ownerFilter(ownerKey string) *qd.Filter {
	if ownerKey == "" {
		return nil
	}
	return &qd.Filter{
		Must: []*qd.Condition{qd.NewMatch(fieldOwnerKey, ownerKey)},
	}
}

var (
	_ index.Index  = (*QdrantIndex)(nil)
	_ index.Lister = (*QdrantIndex)(nil)
)
