// Package fetcher resolves asset byte sources: local uploads, direct
// URLs, and S3 objects fetched through time-limited presigned URLs.
// The index never touches bytes itself; this package hands the retrieval
// service raw bytes plus the canonical location string stored alongside
// the vector.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFetch is returned when a byte source cannot be fetched. The HTTP
// layer maps it to an upstream (502) failure.
var ErrFetch = errors.New("byte source fetch failed")

// DefaultImageDir is where local uploads are written when no directory
// is configured.
const DefaultImageDir = "data/streamer_images"

// Fetcher resolves ingest sources into bytes plus a canonical location.
type Fetcher struct {
	httpClient *http.Client
	imageDir   string
	s3         *S3Source
}

// Config holds configuration for the fetcher.
type Config struct {
	// ImageDir is the directory local uploads are written to.
	// Defaults to DefaultImageDir if empty.
	ImageDir string

	// HTTPTimeout bounds URL fetches. Defaults to 15s if zero.
	HTTPTimeout time.Duration
}

// New creates a fetcher. s3 may be nil when no object store is
// configured; FetchS3Key then fails with ErrFetch.
func New(c Config, s3 *S3Source) *Fetcher {
	imageDir := c.ImageDir
	if imageDir == "" {
		imageDir = DefaultImageDir
	}

	timeout := c.HTTPTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		imageDir:   imageDir,
		s3:         s3,
	}
}

// SaveUpload writes uploaded bytes under the image directory and returns
// the written path.
func (f *Fetcher) SaveUpload(ownerKey, filename string, contents []byte) (string, error) {
	if err := os.MkdirAll(f.imageDir, 0o755); err != nil {
		return "", fmt.Errorf("creating image dir: %w", err)
	}

	path := filepath.Join(f.imageDir, fmt.Sprintf("%s_%s", ownerKey, filepath.Base(filename)))
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}

	return path, nil
}

// FetchURL downloads bytes from a direct (typically presigned) URL. The
// canonical location is the URL path without its leading slash, so the
// same object ingested via s3_key or via presigned URL stores the same
// location.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: parsing url: %v", ErrFetch, err)
	}

	contents, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}

	return contents, strings.TrimPrefix(parsed.Path, "/"), nil
}

// FetchS3Key downloads an object through a presigned GET URL. The
// canonical location is the bare object key.
func (f *Fetcher) FetchS3Key(ctx context.Context, key string) ([]byte, string, error) {
	if f.s3 == nil {
		return nil, "", fmt.Errorf("%w: s3 is not configured", ErrFetch)
	}

	presigned, err := f.s3.PresignGet(ctx, key)
	if err != nil {
		return nil, "", err
	}

	contents, err := f.get(ctx, presigned)
	if err != nil {
		return nil, "", err
	}

	return contents, key, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrFetch, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download returned status %d", ErrFetch, resp.StatusCode)
	}

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}

	return contents, nil
}
