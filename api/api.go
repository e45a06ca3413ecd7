// Package api provides the HTTP surface for ingesting, searching, and
// deleting streamer assets.
package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/pkg/index"
	"github.com/streamlens/streamlens/pkg/retrieval"
)

// ErrorResponse is the JSON error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the retrieval service.
type Server struct {
	config  Config
	service *retrieval.Service
	idx     index.Index
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates a new API server. The retrieval service and the
// index are injected; the index is passed separately only for the debug
// introspection endpoint.
func NewServer(config Config, service *retrieval.Service, idx index.Index, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.bodyLimit(),
	})

	s := &Server{
		config:  config,
		service: service,
		idx:     idx,
		logger:  logger,
		app:     app,
	}

	app.Get("/health", s.handleHealth)
	app.Post("/streamers", s.handleAddStreamer)
	app.Post("/search", s.handleSearch)
	app.Post("/streamers/delete", s.handleDeleteStreamers)
	app.Get("/debug/streamers", s.handleDebugStreamers)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
