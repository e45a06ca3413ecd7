// Package seedcmder provides the seed command for bulk-indexing a
// directory of images.
package seedcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/cmd/streamlens/wire"
	"github.com/streamlens/streamlens/pkg/config"
	"github.com/streamlens/streamlens/pkg/logger"
)

const seedLongDesc string = `Index every image in a directory.

Each file is embedded and inserted under a streamer id. With --streamer
all files belong to that one streamer; otherwise the id is the file
name without its extension.

Examples:
  streamlens seed --dir data/streamer_images
  streamlens seed --dir shots/ --streamer streamer_001`

const seedShortDesc string = "Index a directory of images"

type seedCommander struct {
	dir        string
	streamerID string
	configFile string
	debug      bool
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.NoArgs,
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
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.dir, "dir", "D", "", "Directory of images to index (required)")
	cmd.Flags().StringVarP(&cmder.streamerID, "streamer", "s", "", "Streamer id for every image (default: file name stem)")
	cmd.MarkFlagRequired("dir")

	return cmd
}

func (c *seedCommander) run(ctx context.Context) error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	v, err := config.InitViper(c.configFile)
	if err != nil {
		return err
	}
	cfg := config.FromViper(v)

	service, _, err := wire.BuildService(cfg, log)
	if err != nil {
		return err
	}
	defer service.Close()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", c.dir, err)
	}

	var indexed, skipped int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		streamerID := c.streamerID
		if streamerID == "" {
			streamerID = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}

		asset, err := service.IngestLocalFile(ctx, streamerID, path)
		if err != nil {
			log.Warn("skipping file",
				zap.String("path", path),
				zap.Error(err),
			)
			skipped++
			continue
		}

		log.Info("indexed image",
			zap.String("id", asset.ID),
			zap.String("streamer_id", asset.OwnerKey),
			zap.String("image_uri", asset.Location),
		)
		indexed++
	}

	fmt.Printf("indexed %d images (%d skipped)\n", indexed, skipped)
	return nil
}
