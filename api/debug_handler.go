package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/streamlens/streamlens/pkg/index"
)

// DebugStreamer is one stored record as returned by the introspection
// endpoint.
type DebugStreamer struct {
	ID         string    `json:"id"`
	StreamerID string    `json:"streamer_id"`
	ImageURI   string    `json:"image_uri"`
	Vector     []float32 `json:"vector,omitempty"`
}

// handleDebugStreamers handles GET /debug/streamers. Raw introspection
// of stored records; only available when the index backend supports
// listing.
func (s *Server) handleDebugStreamers(c *fiber.Ctx) error {
	lister, ok := s.idx.(index.Lister)
	if !ok {
		return s.fail(c, fiber.StatusNotImplemented, "index backend does not support listing")
	}

	limit := c.QueryInt("limit", 1)
	includeVector := c.QueryBool("include_vector", true)
	streamerID := c.Query("streamer_id")

	records, err := lister.List(c.Context(), streamerID, limit, includeVector)
	if err != nil {
		return s.failErr(c, err)
	}

	streamers := make([]DebugStreamer, 0, len(records))
	for _, rec := range records {
		streamers = append(streamers, DebugStreamer{
			ID:         rec.ID,
			StreamerID: rec.OwnerKey,
			ImageURI:   rec.Location,
			Vector:     rec.Vector,
		})
	}

	return c.JSON(fiber.Map{"streamers": streamers})
}
