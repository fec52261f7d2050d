package tabular

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// ErrFieldCount is returned for a data line whose field count differs from
// the header.
var ErrFieldCount = errors.New("wrong number of fields")

// CSVReader reads quote-typed CSV rows as records keyed by the header line.
type CSVReader struct {
	r      *bufio.Reader
	header []string
	line   int
}

// NewCSVReader returns a reader over r. The first line is the header.
func NewCSVReader(r io.Reader) *CSVReader {
	return &CSVReader{r: bufio.NewReader(r)}
}

type field struct {
	text   string
	quoted bool
}

// Header returns the column names, reading them on first use.
func (c *CSVReader) Header() ([]string, error) {
	if c.header != nil {
		return c.header, nil
	}
	fields, err := c.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv header: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.text
	}
	c.header = header
	return header, nil
}

// Read returns the next row, or io.EOF after the last one. Blank lines are
// skipped.
func (c *CSVReader) Read() (domain.Record, error) {
	header, err := c.Header()
	if err != nil {
		return domain.Record{}, err
	}
	for {
		fields, err := c.readLine()
		if err != nil {
			return domain.Record{}, err
		}
		if len(fields) == 1 && !fields[0].quoted && fields[0].text == "" {
			continue
		}
		if len(fields) != len(header) {
			return domain.Record{}, fmt.Errorf("csv line %d: %w: got %d, want %d", c.line, ErrFieldCount, len(fields), len(header))
		}
		rec := domain.NewRecord(len(header))
		for i, f := range fields {
			rec.Set(header[i], typedValue(f))
		}
		return rec, nil
	}
}

// ReadAll returns every remaining row.
func (c *CSVReader) ReadAll() ([]domain.Record, error) {
	var out []domain.Record
	for {
		rec, err := c.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func typedValue(f field) any {
	if f.quoted {
		return f.text
	}
	s := strings.TrimSpace(f.text)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return f.text
}

// readLine parses one logical line, which may span physical lines inside
// quotes. Spaces after a delimiter are skipped.
func (c *CSVReader) readLine() ([]field, error) {
	var (
		fields  []field
		cur     strings.Builder
		quoted  bool
		inQuote bool
		start   = true
		read    bool
	)
	c.line++
	for {
		r, _, err := c.r.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !read {
					return nil, io.EOF
				}
				if inQuote {
					return nil, fmt.Errorf("csv line %d: unterminated quoted field", c.line)
				}
				return append(fields, field{text: cur.String(), quoted: quoted}), nil
			}
			return nil, err
		}
		read = true

		if inQuote {
			if r == '"' {
				next, _, err := c.r.ReadRune()
				if err == nil && next == '"' {
					cur.WriteRune('"')
					continue
				}
				if err == nil {
					_ = c.r.UnreadRune()
				}
				inQuote = false
				continue
			}
			if r == '\n' {
				c.line++
			}
			cur.WriteRune(r)
			continue
		}

		switch {
		case start && r == ' ':
			continue
		case start && r == '"':
			inQuote, quoted, start = true, true, false
		case r == ',':
			fields = append(fields, field{text: cur.String(), quoted: quoted})
			cur.Reset()
			quoted, start = false, true
		case r == '\r':
			next, _, err := c.r.ReadRune()
			if err == nil && next != '\n' {
				_ = c.r.UnreadRune()
			}
			return append(fields, field{text: cur.String(), quoted: quoted}), nil
		case r == '\n':
			return append(fields, field{text: cur.String(), quoted: quoted}), nil
		default:
			start = false
			cur.WriteRune(r)
		}
	}
}

// CSVWriter writes records with string values quoted and numbers bare.
type CSVWriter struct {
	w *bufio.Writer
}

// NewCSVWriter returns a buffered writer; call Flush when done.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the quoted column names.
func (c *CSVWriter) WriteHeader(columns []string) error {
	for i, col := range columns {
		if i > 0 {
			if err := c.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := c.writeQuoted(col); err != nil {
			return err
		}
	}
	return c.w.WriteByte('\n')
}

// WriteRecord writes the values of rec in column order. Missing columns and
// nil values are written empty.
func (c *CSVWriter) WriteRecord(rec domain.Record, columns []string) error {
	for i, col := range columns {
		if i > 0 {
			if err := c.w.WriteByte(','); err != nil {
				return err
			}
		}
		v := rec.Value(col)
		switch {
		case domain.IsNull(v):
		case domain.IsNumeric(v):
			if _, err := c.w.WriteString(domain.FormatValue(v)); err != nil {
				return err
			}
		default:
			if err := c.writeQuoted(domain.FormatValue(v)); err != nil {
				return err
			}
		}
	}
	return c.w.WriteByte('\n')
}

// Flush writes buffered data to the underlying writer.
func (c *CSVWriter) Flush() error {
	return c.w.Flush()
}

func (c *CSVWriter) writeQuoted(s string) error {
	if err := c.w.WriteByte('"'); err != nil {
		return err
	}
	if _, err := c.w.WriteString(strings.ReplaceAll(s, `"`, `""`)); err != nil {
		return err
	}
	return c.w.WriteByte('"')
}
