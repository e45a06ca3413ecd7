package api

// DefaultBodyLimit bounds multipart uploads (32 MiB).
const DefaultBodyLimit = 32 << 20

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// BodyLimit bounds request bodies in bytes. Defaults to
	// DefaultBodyLimit if zero.
	BodyLimit int
}

func (c Config) bodyLimit() int {
	if c.BodyLimit > 0 {
		return c.BodyLimit
	}
	return DefaultBodyLimit
}
