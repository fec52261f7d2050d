package gis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nad83WKT = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

const webMercatorWKT = `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Mercator_Auxiliary_Sphere"],UNIT["Meter",1.0]]`

const albersWKT = `PROJCS["USA_Contiguous_Albers_Equal_Area_Conic",GEOGCS["GCS_North_American_1983"],PROJECTION["Albers"]]`

func TestParseWKT(t *testing.T) {
	proj, err := parseWKT(nad83WKT)
	require.NoError(t, err)
	assert.Nil(t, proj)

	proj, err = parseWKT(webMercatorWKT)
	require.NoError(t, err)
	require.NotNil(t, proj)
	p := proj(orb.Point{0, 0})
	assert.InDelta(t, 0, p[0], 1e-9)
	assert.InDelta(t, 0, p[1], 1e-9)

	_, err = parseWKT(albersWKT)
	assert.ErrorContains(t, err, "unsupported coordinate reference system")
}

func TestProjectionFor_MissingPrj(t *testing.T) {
	proj, err := projectionFor(filepath.Join(t.TempDir(), "tl_2020_us_county.shp"))
	require.NoError(t, err)
	assert.Nil(t, proj)
}

func TestProjectionFor_ReadsSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zcta.prj"), []byte(webMercatorWKT), 0o644))

	proj, err := projectionFor(filepath.Join(dir, "zcta.shp"))
	require.NoError(t, err)
	assert.NotNil(t, proj)
}
