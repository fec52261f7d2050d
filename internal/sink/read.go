package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/tabular"
)

// Contents is an output file read back into memory.
type Contents struct {
	Header  []string // CSV only
	Records []domain.Record
}

// ReadFile reads every record of an output file, decompressing all gzip
// members.
func ReadFile(path string) (Contents, error) {
	f, err := os.Open(path)
	if err != nil {
		return Contents{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if Compressed(path) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return Contents{}, fmt.Errorf("gzip %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	if FormatFor(path) == FormatJSON {
		recs, err := tabular.DecodeJSONLines(r)
		if err != nil {
			return Contents{}, fmt.Errorf("read %s: %w", path, err)
		}
		return Contents{Records: recs}, nil
	}

	cr := tabular.NewCSVReader(r)
	header, err := cr.Header()
	if err != nil {
		return Contents{}, fmt.Errorf("read %s: %w", path, err)
	}
	recs, err := cr.ReadAll()
	if err != nil {
		return Contents{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Contents{Header: header, Records: recs}, nil
}
