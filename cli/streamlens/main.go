package main

import (
	"os"

	streamlenscmder "github.com/streamlens/streamlens/cmd/streamlens"
)

func main() {
	cmd := streamlenscmder.NewStreamlensCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
