package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
)

// RemoteSource downloads each location to a temporary file that keeps the
// URL's extension, so OpenTable can pick the right decoder.
type RemoteSource struct {
	fetcher *Fetcher
	dir     string
	logger  *slog.Logger
}

// NewRemoteSource creates temp files under dir, or the OS default when dir
// is empty.
func NewRemoteSource(fetcher *Fetcher, dir string, logger *slog.Logger) *RemoteSource {
	return &RemoteSource{fetcher: fetcher, dir: dir, logger: logger}
}

// Open downloads location and returns the local path and a cleanup func
// that removes it.
func (s *RemoteSource) Open(ctx context.Context, location string) (string, func(), error) {
	ext := ""
	if u, err := url.Parse(location); err == nil {
		ext = path.Ext(u.Path)
	}
	tmp, err := os.CreateTemp(s.dir, "epa-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	s.logger.Info("downloading", "url", location, "file", tmp.Name())
	if err := s.fetcher.Download(ctx, location, tmp); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	return tmp.Name(), cleanup, nil
}

// LocalSource serves files that are already on disk.
type LocalSource struct{}

// Open checks that location exists and returns it unchanged.
func (LocalSource) Open(_ context.Context, location string) (string, func(), error) {
	if _, err := os.Stat(location); err != nil {
		return "", nil, fmt.Errorf("open %s: %w", location, err)
	}
	return location, func() {}, nil
}
