package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/pkg/fetcher"
	"github.com/streamlens/streamlens/pkg/retrieval"
	testutils "github.com/streamlens/streamlens/pkg/utils/test"
)

func tinyPNG(c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)

	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

// multipartBody builds the POST /streamers form: string fields plus an
// optional image file part.
func multipartBody(fields map[string]string, filename string, file []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		Expect(writer.WriteField(k, v)).To(Succeed())
	}
	if file != nil {
		part, err := writer.CreateFormFile("image", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(file)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

func jsonRequest(method, target string, body any) *http.Request {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(resp *http.Response, out any) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(data, out)).To(Succeed())
}

var _ = Describe("Server", func() {
	var (
		embedder *testutils.MockEmbedder
		memIndex *testutils.MemoryIndex
		server   *Server
	)

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		memIndex = testutils.NewMemoryIndex(3)

		f := fetcher.New(fetcher.Config{ImageDir: GinkgoT().TempDir()}, nil)
		service := retrieval.NewService(embedder, memIndex, f, nil, zap.NewNop())
		server = NewServer(Config{ListenAddr: ":0"}, service, memIndex, zap.NewNop())
	})

	ingest := func(streamerID string, contents []byte) retrieval.Asset {
		body, contentType := multipartBody(map[string]string{"streamer_id": streamerID}, "avatar.png", contents)
		req := httptest.NewRequest("POST", "/streamers", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var asset retrieval.Asset
		decodeBody(resp, &asset)
		return asset
	}

	Describe("GET /health", func() {
		It("reports ok", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/health", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var health map[string]string
			decodeBody(resp, &health)
			Expect(health["status"]).To(Equal("ok"))
		})
	})

	Describe("POST /streamers", func() {
		It("ingests an uploaded image and returns the asset", func() {
			asset := ingest("streamer1", tinyPNG(color.White))
			Expect(asset.ID).NotTo(BeEmpty())
			Expect(asset.OwnerKey).To(Equal("streamer1"))
			Expect(asset.Location).To(ContainSubstring("streamer1_avatar.png"))
		})

		It("rejects a request without streamer_id", func() {
			body, contentType := multipartBody(nil, "avatar.png", tinyPNG(color.White))
			req := httptest.NewRequest("POST", "/streamers", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var errResp ErrorResponse
			decodeBody(resp, &errResp)
			Expect(errResp.Error).To(ContainSubstring("streamer_id"))
		})

		It("rejects a request without any image source", func() {
			body, contentType := multipartBody(map[string]string{"streamer_id": "streamer1"}, "", nil)
			req := httptest.NewRequest("POST", "/streamers", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects an upload that is not an image", func() {
			body, contentType := multipartBody(map[string]string{"streamer_id": "streamer1"}, "avatar.png", []byte("not an image"))
			req := httptest.NewRequest("POST", "/streamers", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var errResp ErrorResponse
			decodeBody(resp, &errResp)
			Expect(errResp.Error).To(ContainSubstring("invalid image"))
		})

		It("maps an unconfigured s3 source to 502", func() {
			body, contentType := multipartBody(map[string]string{
				"streamer_id": "streamer1",
				"s3_key":      "images/x.png",
			}, "", nil)
			req := httptest.NewRequest("POST", "/streamers", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("POST /search", func() {
		BeforeEach(func() {
			nearPNG := tinyPNG(color.White)
			farPNG := tinyPNG(color.Black)

			embedder.Embeddings[string(nearPNG)] = []float32{1, 0, 0}
			embedder.Embeddings[string(farPNG)] = []float32{0, 1, 0}
			embedder.Embeddings["white streamer"] = []float32{1, 0, 0}

			ingest("near", nearPNG)
			ingest("far", farPNG)
		})

		It("returns ranked hits, closest first", func() {
			req := jsonRequest("POST", "/search", SearchRequest{Text: "white streamer", Limit: 2})
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var results []SearchResult
			decodeBody(resp, &results)
			Expect(results).To(HaveLen(2))
			Expect(results[0].StreamerID).To(Equal("near"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
			Expect(results[0].Distance).To(BeNumerically("<", results[1].Distance))
			Expect(results[0].ID).NotTo(BeEmpty())
		})

		It("filters by streamer_id", func() {
			req := jsonRequest("POST", "/search", SearchRequest{Text: "white streamer", Limit: 5, StreamerID: "far"})
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var results []SearchResult
			decodeBody(resp, &results)
			Expect(results).To(HaveLen(1))
			Expect(results[0].StreamerID).To(Equal("far"))
		})

		It("rejects blank text", func() {
			req := jsonRequest("POST", "/search", SearchRequest{Limit: 5})
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest("POST", "/search", strings.NewReader("{not json"))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("maps a failing index to 502", func() {
			memIndex.FailQuery = true

			req := jsonRequest("POST", "/search", SearchRequest{Text: "white streamer"})
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("POST /streamers/delete", func() {
		BeforeEach(func() {
			ingest("streamer1", tinyPNG(color.White))
			ingest("streamer2", tinyPNG(color.Black))
		})

		It("deletes by streamer_id and reports the counts", func() {
			req := jsonRequest("POST", "/streamers/delete", DeleteRequest{StreamerID: "streamer1"})
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result DeleteResponse
			decodeBody(resp, &result)
			Expect(result.Matched).To(Equal(1))
			Expect(result.Deleted).To(Equal(1))
		})

		It("rejects a request without any filter", func() {
			req := jsonRequest("POST", "/streamers/delete", DeleteRequest{})
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports zero counts for a filter that matches nothing", func() {
			req := jsonRequest("POST", "/streamers/delete", DeleteRequest{StreamerID: "nobody"})
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result DeleteResponse
			decodeBody(resp, &result)
			Expect(result.Matched).To(Equal(0))
			Expect(result.Deleted).To(Equal(0))
		})
	})

	Describe("GET /debug/streamers", func() {
		BeforeEach(func() {
			ingest("streamer1", tinyPNG(color.White))
			ingest("streamer2", tinyPNG(color.Black))
		})

		It("lists one record by default with its vector", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/debug/streamers", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Streamers []DebugStreamer `json:"streamers"`
			}
			decodeBody(resp, &body)
			Expect(body.Streamers).To(HaveLen(1))
			Expect(body.Streamers[0].Vector).NotTo(BeEmpty())
		})

		It("honors limit, streamer_id, and include_vector", func() {
			resp, err := server.app.Test(httptest.NewRequest("GET", "/debug/streamers?limit=10&streamer_id=streamer2&include_vector=false", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Streamers []DebugStreamer `json:"streamers"`
			}
			decodeBody(resp, &body)
			Expect(body.Streamers).To(HaveLen(1))
			Expect(body.Streamers[0].StreamerID).To(Equal("streamer2"))
			Expect(body.Streamers[0].Vector).To(BeEmpty())
		})
	})
})
