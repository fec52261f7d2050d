package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source columns used to derive keys.
const (
	ColumnStateCode     = "State Code"
	ColumnCountyCode    = "County Code"
	ColumnSiteNum       = "Site Num"
	ColumnParameterCode = "Parameter Code"
	ColumnYear          = "Year"
	ColumnDateLocal     = "Date Local"
	ColumnUTC           = "UTC"
	ColumnFullAQSCode   = "FullAQSCode"
	ColumnLatitude      = "Latitude"
	ColumnLongitude     = "Longitude"
	ColumnValue         = "Value"
	ColumnAQI           = "AQI"

	ColumnMonitor = "Monitor"
	ColumnRecord  = "Record"
)

// RecordCounter issues the sequence part of Record keys. One counter is
// owned by each output file; it is not safe for concurrent use.
type RecordCounter struct {
	n int64
}

// NewRecordCounter returns a counter whose first issued value is 1.
func NewRecordCounter() *RecordCounter { return &RecordCounter{} }

// Next increments and returns the sequence.
func (c *RecordCounter) Next() int64 {
	c.n++
	return c.n
}

// Issued returns how many values have been handed out.
func (c *RecordCounter) Issued() int64 { return c.n }

// RecordKey formats a Record key, e.g. "2019-0000000042".
func RecordKey(year int, seq int64) string {
	return fmt.Sprintf("%d-%010d", year, seq)
}

var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// RecordYear returns the observation year of a row from Year, Date Local or
// UTC, checked in that order.
func RecordYear(r Record) (int, error) {
	if r.Has(ColumnYear) {
		y, err := r.Int(ColumnYear)
		if err != nil {
			return 0, fmt.Errorf("record year: %w", err)
		}
		return int(y), nil
	}
	for _, col := range []string{ColumnDateLocal, ColumnUTC} {
		if !r.Has(col) {
			continue
		}
		s := strings.TrimSpace(r.String(col))
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Year(), nil
			}
		}
		return 0, fmt.Errorf("record year: column %q: unrecognized date %q", col, s)
	}
	return 0, fmt.Errorf("record year: no Year, %s or %s column", ColumnDateLocal, ColumnUTC)
}

// AssignRecordKey sets the Record column using the next value of c. The
// counter does not advance when the year cannot be determined.
func AssignRecordKey(r *Record, c *RecordCounter) error {
	year, err := RecordYear(*r)
	if err != nil {
		return err
	}
	r.Set(ColumnRecord, RecordKey(year, c.Next()))
	return nil
}

// MonitorKey formats "{state}-{FIPS5}-{site}".
func MonitorKey(state, fips5, site string) string {
	return state + "-" + fips5 + "-" + site
}

// AQSMonitorKey derives the Monitor key of an AQS row from State Code,
// County Code and Site Num.
func AQSMonitorKey(r Record) (string, error) {
	state := strings.TrimSpace(r.String(ColumnStateCode))
	if state == "" {
		return "", fmt.Errorf("monitor key: %q is empty", ColumnStateCode)
	}
	if n, err := strconv.Atoi(state); err == nil {
		state = fmt.Sprintf("%02d", n)
	}
	county, err := r.Int(ColumnCountyCode)
	if err != nil {
		return "", fmt.Errorf("monitor key: %w", err)
	}
	site, err := r.Int(ColumnSiteNum)
	if err != nil {
		return "", fmt.Errorf("monitor key: %w", err)
	}
	return MonitorKey(state, fmt.Sprintf("%s%03d", state, county), fmt.Sprintf("%04d", site)), nil
}

// AirNowMonitorKey derives the Monitor key of an annotated AirNow row.
// Missing STATE renders as "__" and missing FIPS5 as "00000". Numeric site
// codes are zero padded to nine digits.
func AirNowMonitorKey(r Record) string {
	state := "__"
	if v := r.Value(ColumnState); !IsNull(v) && FormatValue(v) != "" {
		state = FormatValue(v)
	}
	fips := int64(0)
	if r.Has(ColumnFIPS5) && !IsNull(r.Value(ColumnFIPS5)) {
		if n, err := r.Int(ColumnFIPS5); err == nil {
			fips = n
		}
	}
	var site string
	switch v := r.Value(ColumnFullAQSCode).(type) {
	case int64:
		site = fmt.Sprintf("%09d", v)
	case float64:
		site = fmt.Sprintf("%09d", int64(v))
	default:
		site = FormatValue(v)
	}
	return MonitorKey(state, fmt.Sprintf("%05d", fips), site)
}
