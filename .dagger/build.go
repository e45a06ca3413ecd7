package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/streamlens/internal/dagger"
)

// Build and return directory of go binaries. The sqlite backend links
// through cgo, so the matrix is limited to targets with a cross gcc in
// the build image.
func (s *Streamlens) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	type target struct {
		goarch string
		cc     string
	}
	targets := []target{
		{goarch: "amd64", cc: "gcc"},
		{goarch: "arm64", cc: "aarch64-linux-gnu-gcc"},
	}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	golang := s.goContainer().
		WithExec([]string{"apt-get", "install", "-y", "gcc-aarch64-linux-gnu"})

	for _, tgt := range targets {
		// create directory for each architecture
		path := fmt.Sprintf("linux/%s/", tgt.goarch)

		// build artifact
		build := golang.
			WithEnvVariable("GOOS", "linux").
			WithEnvVariable("GOARCH", tgt.goarch).
			WithEnvVariable("CC", tgt.cc).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/streamlens"})

		// add build to outputs
		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	// return build directory
	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (s *Streamlens) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/streamlens/streamlens/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/streamlens/streamlens/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/streamlens/streamlens/pkg/utils.Buildtime=%s'", buildtime),
	}

	return s.Build(ctx, strings.Join(ldflags, " "))
}
