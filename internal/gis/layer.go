package gis

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// LayerKind identifies what a shape layer can annotate.
type LayerKind int

const (
	KindZip LayerKind = iota + 1
	KindCounty
)

func (k LayerKind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindCounty:
		return "county"
	default:
		return "unknown"
	}
}

// Columns returns the raw geography columns a layer of this kind supplies.
func (k LayerKind) Columns() []string {
	switch k {
	case KindZip:
		return []string{domain.ColumnZCTA}
	case KindCounty:
		return []string{domain.ColumnStateFP, domain.ColumnCountyFP}
	default:
		return nil
	}
}

// zipFields are the attribute names that mark a zip layer, in lookup order.
var zipFields = []string{"ZIP", "ZCTA5CE10", "ZCTA5CE20", "ZCTA"}

// Classify inspects a layer's attribute names. For zip layers it also
// returns the field that holds the zip code.
func Classify(fields []string) (LayerKind, string, bool) {
	has := make(map[string]bool, len(fields))
	for _, f := range fields {
		has[f] = true
	}
	for _, f := range zipFields {
		if has[f] {
			return KindZip, f, true
		}
	}
	if has[domain.ColumnStateFP] && has[domain.ColumnCountyFP] {
		return KindCounty, "", true
	}
	return 0, "", false
}

// Feature is one polygon with the attributes it contributes.
type Feature struct {
	Shape orb.MultiPolygon
	Attrs map[string]string

	bound orb.Bound
}

// NewFeature precomputes the feature's bounding box.
func NewFeature(shape orb.MultiPolygon, attrs map[string]string) Feature {
	return Feature{Shape: shape, Attrs: attrs, bound: shape.Bound()}
}

// Layer is an immutable set of features of one kind. It is safe for
// concurrent reads.
type Layer struct {
	Name     string
	Kind     LayerKind
	features []Feature
}

// NewLayer builds a layer from features already in EPSG:4326.
func NewLayer(name string, kind LayerKind, features []Feature) *Layer {
	return &Layer{Name: name, Kind: kind, features: features}
}

// Columns returns the columns this layer supplies.
func (l *Layer) Columns() []string { return l.Kind.Columns() }

// Len returns the number of features.
func (l *Layer) Len() int { return len(l.features) }

// Locate returns the first feature containing pt.
func (l *Layer) Locate(pt orb.Point) (Feature, bool) {
	for _, f := range l.features {
		if !f.bound.Contains(pt) {
			continue
		}
		if planar.MultiPolygonContains(f.Shape, pt) {
			return f, true
		}
	}
	return Feature{}, false
}
