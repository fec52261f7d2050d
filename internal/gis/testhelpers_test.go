package gis

import (
	"github.com/paulmach/orb"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// box returns a clockwise rectangle as a multipolygon.
func box(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{{orb.Ring{
		{minX, minY}, {minX, maxY}, {maxX, maxY}, {maxX, minY}, {minX, minY},
	}}}
}

// New Haven, CT area.
func zipLayer() *Layer {
	return NewLayer("zcta", KindZip, []Feature{
		NewFeature(box(-73.0, 41.2, -72.8, 41.4), map[string]string{domain.ColumnZCTA: "06511"}),
	})
}

func countyLayer() *Layer {
	return NewLayer("county", KindCounty, []Feature{
		NewFeature(box(-73.3, 41.1, -72.5, 41.7), map[string]string{
			domain.ColumnStateFP:  "09",
			domain.ColumnCountyFP: "009",
		}),
	})
}

func point(site string, lon, lat any) domain.Record {
	return domain.RecordFromPairs(
		[]string{domain.ColumnFullAQSCode, domain.ColumnLongitude, domain.ColumnLatitude},
		[]any{site, lon, lat},
	)
}
