// Package gis annotates point observations with census geography.
//
// Shapefiles are classified by their attribute schema when loaded: a zip
// code tabulation layer exposes ZCTA (from a ZIP, ZCTA5CE10, ZCTA5CE20 or
// ZCTA field) and a county layer exposes STATEFP and COUNTYFP. Layers are
// queried in configured order and each column is taken from the first
// layer that can supply it. Calculated columns (COUNTY, FIPS5, STATE,
// STUSPS, STATEISO) are derived from STATEFP and COUNTYFP after the joins.
//
// Geometry is held in EPSG:4326 longitude/latitude. Layers whose .prj
// declares a geographic CRS (or that ship without one) are used as is;
// Web Mercator layers are projected back to WGS84 on load.
package gis
