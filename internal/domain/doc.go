// Package domain models EPA air quality monitoring records and the keys
// derived from them.
//
// # Data Sources
//
// AQS (Air Quality System) pre-generated files are published at
// https://aqs.epa.gov/aqsweb/airdata/download_files.html as one zip archive
// per year (annual concentrations by monitor) or per year and parameter code
// (daily summaries). Each archive holds a single CSV table. String fields are
// quoted and numeric fields are not, so quoting carries type information that
// the pipeline preserves when it rewrites the table.
//
// AirNow (https://docs.airnowapi.org/) serves near real-time hourly readings
// as a JSON array of flat objects. It is less reliable than AQS and only
// identifies sites by coordinates and the FullAQSCode, so geography comes from
// point-in-polygon lookups against census shapefiles.
//
// # Column Conventions
//
// AQS site identity is spread over three columns:
//
//	"State Code"  two-digit state FIPS, quoted ("06"); "CC" for Canada
//	"County Code" three-digit county FIPS ("037")
//	"Site Num"    four-digit site number ("1103")
//
// AirNow rows carry "FullAQSCode", "Latitude", "Longitude", "UTC",
// "Parameter", "Unit", "Value" and "AQI". Geography columns added by
// annotation use census names: ZCTA, STATEFP, COUNTYFP, plus calculated
// COUNTY/FIPS5 (STATEFP+COUNTYFP), STATE, STUSPS and STATEISO ("US-" + USPS).
//
// # Derived Keys
//
// Every output row gets two derived columns:
//
//	Monitor  "{state}-{FIPS5}-{site}"      e.g. "06-06037-1103"
//	Record   "{year}-{sequence:010d}"      e.g. "2019-0000000042"
//
// The year of a Record key comes from "Year" (annual files), "Date Local"
// (daily files) or "UTC" (AirNow). The sequence is owned by a
// [RecordCounter] scoped to one output file, so Record keys are unique and
// strictly increasing within a file and are not unique across files.
package domain
