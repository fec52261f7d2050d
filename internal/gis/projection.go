package gis

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// projectionFor reads the .prj sidecar of a shapefile and returns the
// projection to EPSG:4326. A nil projection means coordinates are already
// longitude/latitude.
func projectionFor(shpPath string) (orb.Projection, error) {
	prjPath := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	data, err := os.ReadFile(prjPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", prjPath, err)
	}
	return parseWKT(string(data))
}

func parseWKT(wkt string) (orb.Projection, error) {
	upper := strings.ToUpper(strings.TrimSpace(wkt))
	switch {
	case upper == "":
		return nil, nil
	case strings.HasPrefix(upper, "GEOGCS"):
		// NAD83 and WGS84 differ by well under a meter.
		return nil, nil
	case strings.HasPrefix(upper, "PROJCS") && isWebMercator(upper):
		return project.Mercator.ToWGS84, nil
	default:
		name := upper
		if i := strings.IndexByte(name, ','); i > 0 {
			name = name[:i]
		}
		return nil, fmt.Errorf("unsupported coordinate reference system %s", name)
	}
}

func isWebMercator(wkt string) bool {
	return strings.Contains(wkt, "AUXILIARY_SPHERE") ||
		strings.Contains(wkt, "PSEUDO_MERCATOR") ||
		strings.Contains(wkt, "PSEUDO-MERCATOR") ||
		strings.Contains(wkt, "3857")
}

func projectMultiPolygon(mp orb.MultiPolygon, proj orb.Projection) orb.MultiPolygon {
	if proj == nil {
		return mp
	}
	for _, poly := range mp {
		for _, ring := range poly {
			for i, p := range ring {
				ring[i] = proj(p)
			}
		}
	}
	return mp
}
