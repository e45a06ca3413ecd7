package index_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/streamlens/streamlens/pkg/index"
)

var _ = Describe("ScoreFromDistance", func() {
	It("maps distance 0 to score 1", func() {
		Expect(index.ScoreFromDistance(0)).To(BeNumerically("==", 1))
	})

	It("maps orthogonal distance 1 to score 0", func() {
		Expect(index.ScoreFromDistance(1)).To(BeNumerically("==", 0))
	})

	It("maps opposite distance 2 to score -1", func() {
		Expect(index.ScoreFromDistance(2)).To(BeNumerically("==", -1))
	})

	It("is the inverse of DistanceFromScore", func() {
		for _, score := range []float32{-1, -0.25, 0, 0.5, 1} {
			Expect(index.ScoreFromDistance(index.DistanceFromScore(score))).To(BeNumerically("~", score, 1e-6))
		}
	})
})

var _ = Describe("ValidateVector", func() {
	It("accepts a vector of the configured dimensionality", func() {
		Expect(index.ValidateVector([]float32{1, 0, 0}, 3)).To(Succeed())
	})

	It("rejects an empty vector", func() {
		Expect(index.ValidateVector(nil, 3)).To(MatchError(index.ErrInvalidVector))
	})

	It("rejects a mismatched vector", func() {
		Expect(index.ValidateVector([]float32{1, 0}, 3)).To(MatchError(index.ErrInvalidVector))
	})
})

var _ = Describe("ValidateLimit", func() {
	It("accepts a positive limit", func() {
		Expect(index.ValidateLimit(1)).To(Succeed())
	})

	It("rejects zero", func() {
		Expect(index.ValidateLimit(0)).To(MatchError(index.ErrInvalidLimit))
	})

	It("rejects a negative limit", func() {
		Expect(index.ValidateLimit(-5)).To(MatchError(index.ErrInvalidLimit))
	})
})
