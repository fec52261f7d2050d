package gis

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// ErrUnrecognizedLayer is returned for a shapefile whose attributes match
// neither the zip nor the county schema.
var ErrUnrecognizedLayer = errors.New("unrecognized shape layer")

// LayerLoader supplies the layers an annotator joins against, in priority
// order.
type LayerLoader func() ([]*Layer, error)

// StaticLayers returns a loader over layers that are already built.
func StaticLayers(layers ...*Layer) LayerLoader {
	return func() ([]*Layer, error) { return layers, nil }
}

// ShapefileLoader reads each path with LoadShapefile. Files that match no
// known schema are skipped with a warning.
func ShapefileLoader(paths []string, logger *slog.Logger) LayerLoader {
	return func() ([]*Layer, error) {
		layers := make([]*Layer, 0, len(paths))
		for _, p := range paths {
			layer, err := LoadShapefile(p)
			if errors.Is(err, ErrUnrecognizedLayer) {
				logger.Warn("skipping shape file", "path", p, "error", err)
				continue
			}
			if err != nil {
				return nil, err
			}
			logger.Info("loaded shape layer", "path", p, "kind", layer.Kind.String(), "features", layer.Len())
			layers = append(layers, layer)
		}
		return layers, nil
	}
}

// LoadShapefile reads polygons and their identifying attributes from a .shp
// file and its .dbf, reprojecting to EPSG:4326 when a .prj says so.
func LoadShapefile(path string) (*Layer, error) {
	proj, err := projectionFor(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()

	fields := r.Fields()
	names := make([]string, len(fields))
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimSpace(f.String())
		index[names[i]] = i
	}

	kind, zipField, ok := Classify(names)
	if !ok {
		return nil, fmt.Errorf("%s: %w: fields %v", path, ErrUnrecognizedLayer, names)
	}

	// Output column -> source attribute.
	sources := map[string]string{}
	switch kind {
	case KindZip:
		sources[domain.ColumnZCTA] = zipField
	case KindCounty:
		sources[domain.ColumnStateFP] = domain.ColumnStateFP
		sources[domain.ColumnCountyFP] = domain.ColumnCountyFP
	}

	var features []Feature
	for r.Next() {
		n, shape := r.Shape()
		mp, ok := shapeToMultiPolygon(shape)
		if !ok {
			continue
		}
		attrs := make(map[string]string, len(sources))
		for col, field := range sources {
			attrs[col] = strings.TrimSpace(r.ReadAttribute(n, index[field]))
		}
		features = append(features, NewFeature(projectMultiPolygon(mp, proj), attrs))
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewLayer(name, kind, features), nil
}

func shapeToMultiPolygon(s shp.Shape) (orb.MultiPolygon, bool) {
	switch p := s.(type) {
	case *shp.Polygon:
		return ringsToMultiPolygon(p.Parts, p.Points), true
	case *shp.PolygonZ:
		return ringsToMultiPolygon(p.Parts, p.Points), true
	default:
		return nil, false
	}
}

// ringsToMultiPolygon groups shapefile rings into polygons. Clockwise rings
// start a new polygon; counter-clockwise rings are holes of the previous one.
func ringsToMultiPolygon(parts []int32, points []shp.Point) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for i := range parts {
		start := int(parts[i])
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if start >= end || end > len(points) {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if len(mp) == 0 || ring.Orientation() == orb.CW {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	return mp
}
