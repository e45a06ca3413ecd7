package testutils

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/streamlens/streamlens/pkg/index"
)

// MemoryIndex is an in-memory index.Index for tests: brute-force cosine
// distance, insertion-order tie-break. Not for production use.
type MemoryIndex struct {
	Dimensions uint

	// FailInsert/FailQuery/FailDelete force the next matching call to
	// return ErrStoreUnavailable.
	FailInsert bool
	FailQuery  bool
	FailDelete bool

	mu      sync.Mutex
	records []index.Record
}

func NewMemoryIndex(dimensions uint) *MemoryIndex {
	return &MemoryIndex{Dimensions: dimensions}
}

func (m *MemoryIndex) EnsureCollection(context.Context) error {
	return nil
}

func (m *MemoryIndex) Insert(_ context.Context, ownerKey, location string, vector []float32) (string, error) {
	if m.FailInsert {
		return "", index.ErrStoreUnavailable
	}
	if err := index.ValidateVector(vector, m.Dimensions); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.records = append(m.records, index.Record{
		ID:       id,
		OwnerKey: ownerKey,
		Location: location,
		Vector:   append([]float32(nil), vector...),
	})
	return id, nil
}

func (m *MemoryIndex) Query(_ context.Context, vector []float32, limit int, ownerKey string) ([]index.ScoredRecord, error) {
	if m.FailQuery {
		return nil, index.ErrStoreUnavailable
	}
	if err := index.ValidateVector(vector, m.Dimensions); err != nil {
		return nil, err
	}
	if err := index.ValidateLimit(limit); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	results := []index.ScoredRecord{}
	for _, rec := range m.records {
		if ownerKey != "" && rec.OwnerKey != ownerKey {
			continue
		}
		distance := cosineDistance(vector, rec.Vector)
		results = append(results, index.ScoredRecord{
			ID:       rec.ID,
			OwnerKey: rec.OwnerKey,
			Location: rec.Location,
			Distance: distance,
			Score:    index.ScoreFromDistance(distance),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryIndex) Delete(_ context.Context, ownerKey, location string) (index.DeleteResult, error) {
	var result index.DeleteResult
	if m.FailDelete {
		return result, index.ErrStoreUnavailable
	}
	if ownerKey == "" && location == "" {
		return result, index.ErrMissingFilter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	for _, rec := range m.records {
		if (ownerKey == "" || rec.OwnerKey == ownerKey) &&
			(location == "" || rec.Location == location) {
			result.Matched++
			result.Deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return result, nil
}

func (m *MemoryIndex) List(_ context.Context, ownerKey string, limit int, includeVector bool) ([]index.Record, error) {
	if limit <= 0 {
		limit = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := []index.Record{}
	for _, rec := range m.records {
		if ownerKey != "" && rec.OwnerKey != ownerKey {
			continue
		}
		out := rec
		if !includeVector {
			out.Vector = nil
		}
		records = append(records, out)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

func (m *MemoryIndex) Close() error {
	return nil
}

func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}

var (
	_ index.Index  = (*MemoryIndex)(nil)
	_ index.Lister = (*MemoryIndex)(nil)
)
