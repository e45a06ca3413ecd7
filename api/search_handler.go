package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/streamlens/streamlens/pkg/index"
)

// SearchRequest is the body for POST /search.
type SearchRequest struct {
	Text       string `json:"text"`
	Limit      int    `json:"limit"`
	StreamerID string `json:"streamer_id"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	StreamerID string  `json:"streamer_id"`
	ImageURI   string  `json:"image_uri"`
	Distance   float32 `json:"distance"`
	Score      float32 `json:"score"`
	ID         string  `json:"id"`
}

// handleSearch handles POST /search: embed the text, query the index,
// return hits ordered closest first.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Text == "" {
		return s.fail(c, fiber.StatusBadRequest, "text is required")
	}

	records, err := s.service.Search(c.Context(), req.Text, req.Limit, req.StreamerID)
	if err != nil {
		return s.failErr(c, err)
	}

	results := make([]SearchResult, 0, len(records))
	for _, rec := range records {
		results = append(results, searchResultFrom(rec))
	}

	return c.JSON(results)
}

func searchResultFrom(rec index.ScoredRecord) SearchResult {
	return SearchResult{
		StreamerID: rec.OwnerKey,
		ImageURI:   rec.Location,
		Distance:   rec.Distance,
		Score:      rec.Score,
		ID:         rec.ID,
	}
}
