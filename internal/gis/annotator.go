package gis

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
)

var (
	zipColumns        = []string{domain.ColumnZCTA}
	countyColumns     = []string{domain.ColumnStateFP, domain.ColumnCountyFP}
	calculatedColumns = []string{
		domain.ColumnCounty,
		domain.ColumnFIPS5,
		domain.ColumnState,
		domain.ColumnStateUSPS,
		domain.ColumnStateISO,
	}
)

// Annotator adds geography columns to rows that carry coordinates. Layers
// are loaded on the first non-empty Join and reused afterwards.
type Annotator struct {
	columns []string
	raw     []string // columns that must come from a layer
	layers  func() ([]*Layer, error)
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAnnotator validates the requested columns. Layers are not touched
// until they are needed.
func NewAnnotator(columns []string, loader LayerLoader, metrics *observability.Metrics, logger *slog.Logger) (*Annotator, error) {
	var unknown []string
	for _, c := range columns {
		if !slices.Contains(zipColumns, c) && !slices.Contains(countyColumns, c) && !slices.Contains(calculatedColumns, c) {
			unknown = append(unknown, c)
		}
	}
	if len(unknown) > 0 {
		return nil, domain.ConfigError("unknown requested columns %v", unknown)
	}
	if len(columns) == 0 {
		return nil, domain.ConfigError("no geography columns requested")
	}

	var raw []string
	for _, c := range columns {
		if slices.Contains(zipColumns, c) || slices.Contains(countyColumns, c) {
			raw = appendUnique(raw, c)
		}
		if slices.Contains(calculatedColumns, c) {
			raw = appendUnique(raw, countyColumns...)
		}
	}

	return &Annotator{
		columns: slices.Clone(columns),
		raw:     raw,
		layers:  sync.OnceValues[[]*Layer, error](loader),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Columns returns the requested columns in output order.
func (a *Annotator) Columns() []string { return slices.Clone(a.columns) }

// Join returns copies of rows with the requested columns appended. Row
// count and order are preserved. An empty batch is returned as is without
// loading any layer.
func (a *Annotator) Join(ctx context.Context, rows []domain.Record, xColumn, yColumn string) ([]domain.Record, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	start := time.Now()

	layers, err := a.layers()
	if err != nil {
		return nil, fmt.Errorf("load shape layers: %w", err)
	}
	if err := a.checkLayers(layers); err != nil {
		return nil, err
	}

	points := make([]orb.Point, len(rows))
	valid := make([]bool, len(rows))
	for i, r := range rows {
		x, okx := r.Float(xColumn)
		y, oky := r.Float(yColumn)
		points[i], valid[i] = orb.Point{x, y}, okx && oky
	}

	resolved := make([]map[string]any, len(rows))
	for i := range resolved {
		resolved[i] = make(map[string]any, len(a.raw))
	}

	unresolved := slices.Clone(a.raw)
	for _, layer := range layers {
		if len(unresolved) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols := intersect(layer.Columns(), unresolved)
		if len(cols) == 0 {
			continue
		}
		for i := range rows {
			var f Feature
			found := false
			if valid[i] {
				f, found = layer.Locate(points[i])
			}
			for _, c := range cols {
				if found {
					resolved[i][c] = f.Attrs[c]
				} else {
					resolved[i][c] = nil
				}
			}
		}
		unresolved = subtract(unresolved, cols)
	}

	states, err := States()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Record, len(rows))
	for i, r := range rows {
		rec := r.Clone()
		for _, c := range a.columns {
			if v, ok := resolved[i][c]; ok {
				rec.Set(c, v)
				continue
			}
			if _, ok := resolved[i][domain.ColumnStateFP]; ok {
				rec.Set(c, calculate(c, resolved[i], states))
			}
		}
		out[i] = rec
	}

	a.metrics.SpatialJoins.Inc()
	a.metrics.SpatialJoinDuration.Observe(time.Since(start).Seconds())
	a.logger.Debug("spatial join", "rows", len(rows), "layers", len(layers), "duration", time.Since(start))
	return out, nil
}

func (a *Annotator) checkLayers(layers []*Layer) error {
	var available []string
	for _, l := range layers {
		available = appendUnique(available, l.Columns()...)
	}
	if len(intersect(zipColumns, a.raw)) > 0 && len(intersect(zipColumns, available)) == 0 {
		return domain.ConfigError("ZIP column is requested, but no zip shape file found")
	}
	if len(intersect(countyColumns, a.raw)) > 0 && len(intersect(countyColumns, available)) == 0 {
		return domain.ConfigError("county columns are requested, but no county shape file found")
	}
	return nil
}

func calculate(column string, vals map[string]any, states map[string]State) any {
	statefp, _ := vals[domain.ColumnStateFP].(string)
	if statefp == "" {
		return nil
	}
	countyfp, _ := vals[domain.ColumnCountyFP].(string)
	switch column {
	case domain.ColumnCounty, domain.ColumnFIPS5:
		if countyfp == "" {
			return nil
		}
		return statefp + countyfp
	case domain.ColumnState:
		return statefp
	case domain.ColumnStateUSPS:
		if s, ok := states[statefp]; ok {
			return s.USPS
		}
		return nil
	case domain.ColumnStateISO:
		if s, ok := states[statefp]; ok {
			return "US-" + s.USPS
		}
		return nil
	default:
		return nil
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func intersect(a, b []string) []string {
	var out []string
	for _, v := range a {
		if slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func subtract(a, b []string) []string {
	var out []string
	for _, v := range a {
		if !slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}
