package tabular

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// DecodeJSONArray decodes a JSON array of flat objects into records that
// keep each object's key order. Numbers become int64 or float64; nested
// values are kept as their JSON text.
func DecodeJSONArray(r io.Reader) ([]domain.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode json array: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("decode json array: expected '[', got %v", tok)
	}

	var out []domain.Record
	for dec.More() {
		rec, err := decodeObject(dec)
		if err != nil {
			return out, fmt.Errorf("decode json array element %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
	if _, err := dec.Token(); err != nil {
		return out, fmt.Errorf("decode json array: %w", err)
	}
	return out, nil
}

func decodeObject(dec *json.Decoder) (domain.Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return domain.Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return domain.Record{}, fmt.Errorf("expected object, got %v", tok)
	}
	rec := domain.NewRecord(8)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return domain.Record{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return domain.Record{}, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return domain.Record{}, fmt.Errorf("value of %q: %w", key, err)
		}
		switch v.(type) {
		case map[string]any, []any:
			raw, err := json.Marshal(v)
			if err != nil {
				return domain.Record{}, err
			}
			v = string(raw)
		}
		rec.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

// DecodeJSONLines decodes a stream of JSON objects, one record per object,
// as written by the NDJSON sink.
func DecodeJSONLines(r io.Reader) ([]domain.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var out []domain.Record
	for dec.More() {
		rec, err := decodeObject(dec)
		if err != nil {
			return out, fmt.Errorf("decode json line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
