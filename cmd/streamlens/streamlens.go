// Package streamlenscmder
package streamlenscmder

import (
	"github.com/spf13/cobra"

	seedcmder "github.com/streamlens/streamlens/cmd/streamlens/seed"
	servecmder "github.com/streamlens/streamlens/cmd/streamlens/serve"
	versioncmder "github.com/streamlens/streamlens/cmd/streamlens/version"
)

const streamlensLongDesc string = `Streamlens indexes streamer images by CLIP embedding and answers
free-text similarity queries over them.

  streamlens serve     Run the retrieval API server
  streamlens seed      Index a directory of images`

const streamlensShortDesc string = "Streamlens - image similarity search for streamers"

func NewStreamlensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streamlens",
		Short: streamlensShortDesc,
		Long:  streamlensLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to config.toml")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
