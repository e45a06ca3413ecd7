// Package index defines the vector index access layer: collection
// lifecycle, insertion, nearest-neighbor search, and filtered deletion
// over a persistent vector store.
package index

import "context"

const (
	// DefaultCollectionName is the default collection for streamer assets.
	DefaultCollectionName = "streamers"

	// DeleteScanLimit bounds how many records a single Delete call will
	// enumerate. Records beyond the cap stay untouched; callers repeat
	// the call to continue.
	DeleteScanLimit = 10000
)

// Record is one stored asset: an owner key, the canonical location of the
// source bytes, and the embedding vector.
type Record struct {
	// ID is assigned by the index at insertion time and never reused.
	ID string

	// OwnerKey identifies the logical owner (e.g. a streamer id).
	// Never empty for a stored record.
	OwnerKey string

	// Location describes where the asset's source bytes reside
	// (local path, object-store key, or URL path).
	Location string

	// Vector is the L2-normalized embedding. Its length must match the
	// collection's configured dimensionality.
	Vector []float32
}

// ScoredRecord is a query hit with both the raw cosine distance and the
// similarity score.
type ScoredRecord struct {
	ID       string
	OwnerKey string
	Location string

	// Distance is the cosine distance in [0, 2], smaller is closer.
	Distance float32

	// Score is the similarity in [-1, 1], larger is closer. Backends
	// with a native relevance score pass it through unmodified;
	// otherwise it is derived via ScoreFromDistance.
	Score float32
}

// DeleteResult reports a filtered deletion. Matched counts records the
// filter found; Deleted counts records actually removed. They diverge
// when individual deletes fail.
type DeleteResult struct {
	Matched int
	Deleted int
}

// Index stores asset records and answers nearest-neighbor queries.
// Implementations must be safe for concurrent use.
type Index interface {
	// EnsureCollection guarantees the collection exists with the
	// required schema. Idempotent: an existing collection is left
	// untouched, never compared or migrated.
	EnsureCollection(ctx context.Context) error

	// Insert appends one immutable record and returns its assigned id.
	// No uniqueness is enforced on (ownerKey, location); deduplication
	// is a caller responsibility.
	Insert(ctx context.Context, ownerKey, location string, vector []float32) (string, error)

	// Query returns at most limit records ordered by increasing cosine
	// distance. A non-empty ownerKey restricts results to that exact
	// owner at the index level, so limit still bounds the filtered
	// result count. An empty collection yields an empty slice.
	Query(ctx context.Context, vector []float32, limit int, ownerKey string) ([]ScoredRecord, error)

	// Delete removes records matching the filter. Both filters given
	// means their conjunction; neither given fails with
	// ErrMissingFilter. Enumeration is capped at DeleteScanLimit per
	// call. Per-record failures accumulate in the result instead of
	// aborting the batch.
	Delete(ctx context.Context, ownerKey, location string) (DeleteResult, error)

	// Close releases the backing store connection.
	Close() error
}

// Lister is an optional index capability: raw enumeration of stored
// records for debugging. Not part of the core contract; callers probe
// for it with a type assertion.
type Lister interface {
	// List returns up to limit records, optionally restricted to one
	// owner. Vectors are included only when includeVector is set.
	List(ctx context.Context, ownerKey string, limit int, includeVector bool) ([]Record, error)
}

// ScoreFromDistance derives a similarity score from a cosine distance.
// Used whenever the backing store does not report a native score.
func ScoreFromDistance(distance float32) float32 {
	return 1 - distance
}

// DistanceFromScore is the inverse mapping, for backends that report a
// native cosine similarity instead of a distance.
func DistanceFromScore(score float32) float32 {
	return 1 - score
}
