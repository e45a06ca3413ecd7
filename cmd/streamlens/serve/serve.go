// Package servecmder provides the serve command running the retrieval
// API server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/api"
	"github.com/streamlens/streamlens/cmd/streamlens/wire"
	"github.com/streamlens/streamlens/pkg/config"
	"github.com/streamlens/streamlens/pkg/logger"
)

type serveCommander struct {
	listen     string
	configFile string
	debug      bool
	logger     *zap.Logger
}

const serveLongDesc string = `Run the Streamlens retrieval API server.

The server ingests streamer images, indexes their CLIP embeddings, and
answers free-text similarity queries.`

const serveShortDesc string = "Run the retrieval API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configFile, err = cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for API server to listen on (overrides config)")

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configFile)
	if err != nil {
		return err
	}
	cfg := config.FromViper(v)
	if c.listen != "" {
		cfg.API.Listen = c.listen
	}

	service, idx, err := wire.BuildService(cfg, c.logger)
	if err != nil {
		return err
	}
	defer service.Close()

	server := api.NewServer(api.Config{ListenAddr: cfg.API.Listen}, service, idx, c.logger)

	c.logger.Info("starting streamlens",
		zap.String("listen", cfg.API.Listen),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}
