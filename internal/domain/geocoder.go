package domain

import "context"

// Geography columns produced by spatial annotation.
const (
	ColumnZCTA      = "ZCTA"
	ColumnStateFP   = "STATEFP"
	ColumnCountyFP  = "COUNTYFP"
	ColumnCounty    = "COUNTY"
	ColumnFIPS5     = "FIPS5"
	ColumnState     = "STATE"
	ColumnStateUSPS = "STUSPS"
	ColumnStateISO  = "STATEISO"
)

// GeographyColumns lists every column an annotator can produce, in output
// order.
var GeographyColumns = []string{
	ColumnZCTA,
	ColumnStateFP,
	ColumnCountyFP,
	ColumnCounty,
	ColumnFIPS5,
	ColumnState,
	ColumnStateUSPS,
	ColumnStateISO,
}

// SiteDescriptor is the geography resolved for one monitoring site.
// Unresolved sites are remembered too so they are not joined again.
type SiteDescriptor struct {
	SiteID    string
	Geography Record
	Resolved  bool
}

// Annotator enriches point observations with geographic identifiers.
type Annotator interface {
	// Columns returns the geography columns the annotator appends.
	Columns() []string

	// Join returns rows in the same order and count with the annotator's
	// columns appended. Points that fall in no polygon get nil values.
	Join(ctx context.Context, rows []Record, xColumn, yColumn string) ([]Record, error)
}
