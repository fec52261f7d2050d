// Package sink appends records to CSV or newline-delimited JSON files,
// optionally gzip compressed.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/tabular"
)

// Format is the on-disk row encoding.
type Format int

const (
	FormatCSV Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "csv"
}

// FormatFor picks the encoding from the file name: ".json" anywhere in it
// selects NDJSON, everything else is CSV.
func FormatFor(path string) Format {
	if strings.Contains(strings.ToLower(filepath.Base(path)), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// Compressed reports whether path is written as gzip.
func Compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// IsEmpty reports whether path is missing or has no bytes.
func IsEmpty(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size() == 0, nil
}

// Appender writes to the end of an output file. Each Appender on a .gz
// path adds one gzip member, so a file appended by several runs is still a
// valid gzip stream.
type Appender struct {
	path   string
	format Format
	file   *os.File
	gz     *gzip.Writer
	csv    *tabular.CSVWriter
	enc    io.Writer
	rows   int
}

// OpenAppender opens path for appending, creating it and its directory
// when missing.
func OpenAppender(path string) (*Appender, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	a := &Appender{path: path, format: FormatFor(path), file: f, enc: f}
	if Compressed(path) {
		a.gz = gzip.NewWriter(f)
		a.enc = a.gz
	}
	if a.format == FormatCSV {
		a.csv = tabular.NewCSVWriter(a.enc)
	}
	return a, nil
}

// Path returns the destination path.
func (a *Appender) Path() string { return a.path }

// Format returns the destination encoding.
func (a *Appender) Format() Format { return a.format }

// Rows returns the number of data rows written so far.
func (a *Appender) Rows() int { return a.rows }

// WriteHeader writes a CSV header line. It does nothing for NDJSON.
func (a *Appender) WriteHeader(columns []string) error {
	if a.csv == nil {
		return nil
	}
	if err := a.csv.WriteHeader(columns); err != nil {
		return fmt.Errorf("write header to %s: %w", a.path, err)
	}
	return nil
}

// Write appends rows. CSV rows are written in the given column order;
// NDJSON objects keep each record's own column order.
func (a *Appender) Write(rows []domain.Record, columns []string) error {
	for _, r := range rows {
		if err := a.writeOne(r, columns); err != nil {
			return fmt.Errorf("write to %s: %w", a.path, err)
		}
		a.rows++
	}
	return nil
}

func (a *Appender) writeOne(r domain.Record, columns []string) error {
	if a.csv != nil {
		return a.csv.WriteRecord(r, columns)
	}
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = a.enc.Write(line)
	return err
}

// Close flushes buffers, finishes the gzip member and closes the file.
func (a *Appender) Close() error {
	var errs []error
	if a.csv != nil {
		errs = append(errs, a.csv.Flush())
	}
	if a.gz != nil {
		errs = append(errs, a.gz.Close())
	}
	errs = append(errs, a.file.Close())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close %s: %w", a.path, err)
	}
	return nil
}
