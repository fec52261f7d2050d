package remote

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// TableExtension is the entry suffix looked up inside zip archives.
const TableExtension = ".csv"

// OpenTable opens the tabular content of a local file. A .zip archive must
// contain exactly one entry ending in .csv; a .gz file is decompressed; any
// other file is read as is.
func OpenTable(path string) (io.ReadCloser, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return openZipEntry(path, TableExtension)
	case strings.HasSuffix(lower, ".gz"):
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return f, nil
	}
}

func openZipEntry(path, ext string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	var matches []*zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ext) {
			matches = append(matches, f)
		}
	}
	if len(matches) != 1 {
		zr.Close()
		return nil, fmt.Errorf("zip %s: expected exactly one %s entry, found %d", path, ext, len(matches))
	}
	rc, err := matches[0].Open()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("zip %s: open %s: %w", path, matches[0].Name, err)
	}
	return &stackedCloser{Reader: rc, closers: []io.Closer{rc, zr}}, nil
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
