package qdrant_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/pkg/index"
	"github.com/streamlens/streamlens/pkg/index/qdrant"
)

// The gRPC client connects lazily, so construction and local validation
// can be exercised without a running Qdrant server.
var _ = Describe("QdrantIndex", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewQdrantIndex", func() {
		It("returns an error when the host is empty", func() {
			_, err := qdrant.NewQdrantIndex(qdrant.Config{Dimensions: 768}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("host is required"))
		})

		It("returns an error when dimensions are not configured", func() {
			_, err := qdrant.NewQdrantIndex(qdrant.Config{Host: "localhost"}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("constructs without dialing the server", func() {
			idx, err := qdrant.NewQdrantIndex(qdrant.Config{
				Host:       "localhost",
				Dimensions: 768,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).NotTo(BeNil())
			Expect(idx.Close()).To(Succeed())
		})

		It("accepts an explicit port, collection, and API key", func() {
			idx, err := qdrant.NewQdrantIndex(qdrant.Config{
				Host:           "qdrant.internal",
				Port:           7334,
				APIKey:         "secret",
				UseTLS:         true,
				CollectionName: "assets",
				Dimensions:     512,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx.Close()).To(Succeed())
		})
	})

	Describe("Interface compliance", func() {
		It("implements index.Index and index.Lister", func() {
			var _ index.Index = (*qdrant.QdrantIndex)(nil)
			var _ index.Lister = (*qdrant.QdrantIndex)(nil)
		})
	})

	Describe("Local validation", func() {
		var (
			idx *qdrant.QdrantIndex
			ctx context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			idx, err = qdrant.NewQdrantIndex(qdrant.Config{
				Host:       "localhost",
				Dimensions: 3,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(idx.Close()).To(Succeed())
		})

		It("rejects an insert with an empty owner key before touching the server", func() {
			_, err := idx.Insert(ctx, "", "a.jpg", []float32{1, 0, 0})
			Expect(err).To(HaveOccurred())
		})

		It("rejects an insert with a wrong-sized vector before touching the server", func() {
			_, err := idx.Insert(ctx, "s1", "a.jpg", []float32{1, 0})
			Expect(err).To(MatchError(index.ErrInvalidVector))
		})

		It("rejects a query with a wrong-sized vector before touching the server", func() {
			_, err := idx.Query(ctx, []float32{1}, 1, "")
			Expect(err).To(MatchError(index.ErrInvalidVector))
		})

		It("rejects a query with a non-positive limit before touching the server", func() {
			_, err := idx.Query(ctx, []float32{1, 0, 0}, 0, "")
			Expect(err).To(MatchError(index.ErrInvalidLimit))
		})

		It("rejects a delete without any filter before touching the server", func() {
			_, err := idx.Delete(ctx, "", "")
			Expect(err).To(MatchError(index.ErrMissingFilter))
		})
	})
})
