package api

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/pkg/embeddings"
	"github.com/streamlens/streamlens/pkg/fetcher"
	"github.com/streamlens/streamlens/pkg/index"
	"github.com/streamlens/streamlens/pkg/retrieval"
)

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleAddStreamer handles POST /streamers multipart requests. Exactly
// one image source is expected: an uploaded file, an s3_key, or a
// presigned_url.
func (s *Server) handleAddStreamer(c *fiber.Ctx) error {
	streamerID := c.FormValue("streamer_id")
	if streamerID == "" {
		return s.fail(c, fiber.StatusBadRequest, "streamer_id is required")
	}

	s3Key := c.FormValue("s3_key")
	presignedURL := c.FormValue("presigned_url")
	fileHeader, fileErr := c.FormFile("image")

	ctx := c.Context()

	var asset *retrieval.Asset
	var err error
	switch {
	case s3Key != "":
		asset, err = s.service.IngestS3Key(ctx, streamerID, s3Key)
	case fileErr == nil && fileHeader != nil:
		contents, readErr := readUpload(fileHeader)
		if readErr != nil {
			return s.fail(c, fiber.StatusBadRequest, "could not read uploaded image")
		}
		asset, err = s.service.IngestUpload(ctx, streamerID, fileHeader.Filename, contents)
	case presignedURL != "":
		asset, err = s.service.IngestURL(ctx, streamerID, presignedURL)
	default:
		return s.fail(c, fiber.StatusBadRequest, "image, s3_key, or presigned_url is required")
	}
	if err != nil {
		return s.failErr(c, err)
	}

	return c.JSON(asset)
}

// DeleteRequest is the body for POST /streamers/delete. s3_key and
// image_uri address the same stored location attribute; s3_key wins
// when both are given.
type DeleteRequest struct {
	StreamerID string `json:"streamer_id"`
	S3Key      string `json:"s3_key"`
	ImageURI   string `json:"image_uri"`
}

// DeleteResponse reports how many records the filter matched and how
// many were removed.
type DeleteResponse struct {
	Matched int `json:"matched"`
	Deleted int `json:"deleted"`
}

// handleDeleteStreamers handles POST /streamers/delete.
func (s *Server) handleDeleteStreamers(c *fiber.Ctx) error {
	var req DeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.StreamerID == "" && req.S3Key == "" && req.ImageURI == "" {
		return s.fail(c, fiber.StatusBadRequest, "streamer_id, s3_key, or image_uri is required")
	}

	location := req.ImageURI
	if req.S3Key != "" {
		location = req.S3Key
	}

	result, err := s.service.Delete(c.Context(), req.StreamerID, location)
	if err != nil {
		return s.failErr(c, err)
	}

	return c.JSON(DeleteResponse{Matched: result.Matched, Deleted: result.Deleted})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// failErr maps service errors onto transport status codes: client-input
// failures are 4xx, upstream/store failures are 502, the rest 500.
func (s *Server) failErr(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, retrieval.ErrOwnerKeyRequired),
		errors.Is(err, retrieval.ErrTextRequired),
		errors.Is(err, retrieval.ErrInvalidImage),
		errors.Is(err, index.ErrInvalidVector),
		errors.Is(err, index.ErrInvalidLimit),
		errors.Is(err, index.ErrMissingFilter):
		status = fiber.StatusBadRequest
	case errors.Is(err, fetcher.ErrFetch),
		errors.Is(err, embeddings.ErrEmbedding),
		errors.Is(err, index.ErrStoreUnavailable):
		status = fiber.StatusBadGateway
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}

	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}
