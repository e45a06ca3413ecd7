package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/streamlens/streamlens/pkg/fetcher"
)

var _ = Describe("Fetcher", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("SaveUpload", func() {
		var imageDir string

		BeforeEach(func() {
			imageDir = GinkgoT().TempDir()
		})

		It("writes the upload under the image directory and returns its path", func() {
			f := fetcher.New(fetcher.Config{ImageDir: imageDir}, nil)

			contents := []byte("fake image bytes")
			location, err := f.SaveUpload("streamer1", "avatar.png", contents)
			Expect(err).NotTo(HaveOccurred())
			Expect(location).To(Equal(filepath.Join(imageDir, "streamer1_avatar.png")))

			written, err := os.ReadFile(location)
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(Equal(contents))
		})

		It("strips directory components from the uploaded filename", func() {
			f := fetcher.New(fetcher.Config{ImageDir: imageDir}, nil)

			location, err := f.SaveUpload("streamer1", "../../etc/passwd.png", []byte("x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(location).To(Equal(filepath.Join(imageDir, "streamer1_passwd.png")))
		})

		It("creates the image directory when missing", func() {
			nested := filepath.Join(imageDir, "a", "b")
			f := fetcher.New(fetcher.Config{ImageDir: nested}, nil)

			_, err := f.SaveUpload("streamer1", "avatar.png", []byte("x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(nested).To(BeADirectory())
		})
	})

	Describe("FetchURL", func() {
		It("downloads the bytes and canonicalizes the location to the key path", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("image payload"))
			}))
			defer server.Close()

			f := fetcher.New(fetcher.Config{}, nil)

			contents, location, err := f.FetchURL(ctx, server.URL+"/images/streamer1.jpg?X-Amz-Signature=abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(contents).To(Equal([]byte("image payload")))
			Expect(location).To(Equal("images/streamer1.jpg"))
		})

		It("wraps a non-200 response in ErrFetch", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			}))
			defer server.Close()

			f := fetcher.New(fetcher.Config{}, nil)

			_, _, err := f.FetchURL(ctx, server.URL+"/missing.jpg")
			Expect(err).To(MatchError(fetcher.ErrFetch))
			Expect(err.Error()).To(ContainSubstring("404"))
		})

		It("wraps an unreachable host in ErrFetch", func() {
			f := fetcher.New(fetcher.Config{}, nil)

			_, _, err := f.FetchURL(ctx, "http://127.0.0.1:1/x.jpg")
			Expect(err).To(MatchError(fetcher.ErrFetch))
		})
	})

	Describe("FetchS3Key", func() {
		It("fails with ErrFetch when no object store is configured", func() {
			f := fetcher.New(fetcher.Config{}, nil)

			_, _, err := f.FetchS3Key(ctx, "images/streamer1.jpg")
			Expect(err).To(MatchError(fetcher.ErrFetch))
			Expect(err.Error()).To(ContainSubstring("s3 is not configured"))
		})
	})
})

var _ = Describe("NewS3Source", func() {
	It("requires a bucket", func() {
		_, err := fetcher.NewS3Source(fetcher.S3Config{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("bucket is required"))
	})

	It("constructs with static credentials and a custom endpoint", func() {
		src, err := fetcher.NewS3Source(fetcher.S3Config{
			Bucket:          "assets",
			Region:          "us-east-1",
			Endpoint:        "http://localhost:9000",
			AccessKeyID:     "minio",
			SecretAccessKey: "minio123",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(src).NotTo(BeNil())
	})
})
