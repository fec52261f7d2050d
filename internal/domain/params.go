package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Aggregation selects which family of AQS files to download.
type Aggregation string

const (
	AggregationAnnual Aggregation = "annual"
	AggregationDaily  Aggregation = "daily"
)

// ParseAggregation accepts "annual" or "daily" in any case.
func ParseAggregation(s string) (Aggregation, error) {
	switch Aggregation(strings.ToLower(strings.TrimSpace(s))) {
	case AggregationAnnual:
		return AggregationAnnual, nil
	case AggregationDaily:
		return AggregationDaily, nil
	default:
		return "", ConfigError("unknown aggregation %q", s)
	}
}

// ParameterCode is an AQS parameter code.
type ParameterCode int

// Well-known AQS parameter codes.
const (
	ParameterNO2     ParameterCode = 42602
	ParameterOzone   ParameterCode = 44201
	ParameterPM25    ParameterCode = 88101
	ParameterMaxTemp ParameterCode = 68104
	ParameterMinTemp ParameterCode = 68103
)

var parameterNames = map[ParameterCode]string{
	ParameterNO2:     "NO2",
	ParameterOzone:   "OZONE",
	ParameterPM25:    "PM25",
	ParameterMaxTemp: "MAX_TEMP",
	ParameterMinTemp: "MIN_TEMP",
}

// Mnemonic returns the short name of a well-known code.
func (p ParameterCode) Mnemonic() (string, bool) {
	name, ok := parameterNames[p]
	return name, ok
}

// Label returns the mnemonic when one exists, otherwise the numeric code.
func (p ParameterCode) Label() string {
	if name, ok := p.Mnemonic(); ok {
		return name
	}
	return strconv.Itoa(int(p))
}

// ParseParameterCode accepts an integer code or a mnemonic such as "pm25".
func ParseParameterCode(s string) (ParameterCode, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, ConfigError("invalid parameter code %q", s)
		}
		return ParameterCode(n), nil
	}
	for code, name := range parameterNames {
		if strings.EqualFold(name, s) {
			return code, nil
		}
	}
	return 0, ConfigError("unknown parameter %q", s)
}

// Pollutant is an AirNow parameter name.
type Pollutant string

const (
	PollutantNO2   Pollutant = "no2"
	PollutantOzone Pollutant = "ozone"
	PollutantPM25  Pollutant = "pm25"
	PollutantPM10  Pollutant = "pm10"
	PollutantCO    Pollutant = "co"
	PollutantSO2   Pollutant = "so2"
)

// Pollutants lists every supported AirNow parameter.
var Pollutants = []Pollutant{PollutantNO2, PollutantOzone, PollutantPM25, PollutantPM10, PollutantCO, PollutantSO2}

// ParsePollutant accepts an AirNow parameter name in any case.
func ParsePollutant(s string) (Pollutant, error) {
	p := Pollutant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Pollutants {
		if p == known {
			return p, nil
		}
	}
	return "", ConfigError("unknown AirNow parameter %q", s)
}

// DayWindows returns the hour windows requested for one day. PM2.5 is
// fetched in a single request; other pollutants are split at noon to stay
// under the service's response size limit.
func (p Pollutant) DayWindows() [][2]string {
	if p == PollutantPM25 {
		return [][2]string{{"T00", "T23"}}
	}
	return [][2]string{{"T00", "T11"}, {"T12", "T23"}}
}

func (p Pollutant) String() string { return string(p) }

// FormatParameterCodes renders codes joined by sep, e.g. for file names.
func FormatParameterCodes(codes []ParameterCode, sep string) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%d", int(c))
	}
	return strings.Join(parts, sep)
}
