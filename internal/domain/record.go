package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one observation row: an ordered mapping of column name to a
// scalar value. Values are string, float64, int64 or nil. Column order is the
// order in which columns were first set.
type Record struct {
	columns []string
	values  map[string]any
}

// NewRecord returns an empty record with room for n columns.
func NewRecord(n int) Record {
	return Record{
		columns: make([]string, 0, n),
		values:  make(map[string]any, n),
	}
}

// RecordFromPairs builds a record from parallel column and value slices.
func RecordFromPairs(columns []string, values []any) Record {
	r := NewRecord(len(columns))
	for i, c := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(c, v)
	}
	return r
}

// Set assigns a value, appending the column if it is new.
func (r *Record) Set(column string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = normalizeValue(value)
}

// Get returns the value of a column and whether the column exists.
func (r Record) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Value returns the value of a column, or nil when absent.
func (r Record) Value(column string) any {
	return r.values[column]
}

// Has reports whether the column exists.
func (r Record) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Columns returns a copy of the column names in order.
func (r Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.columns) }

// Clone returns an independent copy.
func (r Record) Clone() Record {
	c := NewRecord(len(r.columns))
	for _, col := range r.columns {
		c.Set(col, r.values[col])
	}
	return c
}

// Merge sets every column of other on r, in other's order.
func (r *Record) Merge(other Record) {
	for _, col := range other.columns {
		r.Set(col, other.values[col])
	}
}

// String returns the textual form of a column value; nil and missing
// columns render as "".
func (r Record) String(column string) string {
	return FormatValue(r.values[column])
}

// Float returns a column as float64. Strings are parsed; nil, missing and
// unparsable values report false.
func (r Record) Float(column string) (float64, bool) {
	return ToFloat(r.values[column])
}

// Int returns a column as an integer, accepting "88101", 88101.0 and 88101.
func (r Record) Int(column string) (int64, error) {
	v, ok := r.values[column]
	if !ok || v == nil {
		return 0, fmt.Errorf("column %q is empty", column)
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case float64:
		if math.IsNaN(t) || t != math.Trunc(t) {
			return 0, fmt.Errorf("column %q: %v is not an integer", column, t)
		}
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("column %q: %q is not an integer", column, t)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("column %q: unsupported type %T", column, v)
	}
}

// MarshalJSON encodes the record as a JSON object preserving column order.
// NaN floats encode as null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v := r.values[col]
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = nil
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode column %q: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatValue renders a scalar the way it is written to CSV.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// IsNumeric reports whether a value is written unquoted in CSV output.
func IsNumeric(v any) bool {
	switch t := v.(type) {
	case int64:
		return true
	case float64:
		return !math.IsNaN(t)
	default:
		return false
	}
}

// IsNull reports whether a value is nil or NaN.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// ToFloat converts a scalar to float64.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
