// Package planner turns an AQS download request into an ordered list of
// download tasks, one per output file.
package planner

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// DefaultBaseURL is where AQS publishes pre-generated files.
const DefaultBaseURL = "https://aqs.epa.gov/aqsweb/airdata/"

// Request describes what to download.
type Request struct {
	Aggregation domain.Aggregation
	Years       []int
	Parameters  []domain.ParameterCode
	MergeYears  bool
	Destination string // output directory
	BaseURL     string // defaults to DefaultBaseURL
}

// Plan returns tasks in execution order. Annual requests yield one task per
// year segment; daily requests one task per segment and parameter, ordered
// by segment and then by parameter code.
func Plan(req Request) ([]domain.DownloadTask, error) {
	if len(req.Years) == 0 {
		return nil, domain.ConfigError("no years requested")
	}
	for _, y := range req.Years {
		if y <= 0 {
			return nil, domain.ConfigError("invalid year %d", y)
		}
	}
	base := req.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	params := normalizeParameters(req.Parameters)
	segments := Segments(req.Years, req.MergeYears)

	switch req.Aggregation {
	case domain.AggregationAnnual:
		return planAnnual(base, req.Destination, segments, params)
	case domain.AggregationDaily:
		if len(params) == 0 {
			return nil, domain.ConfigError("daily aggregation requires at least one parameter code")
		}
		return planDaily(base, req.Destination, segments, params)
	default:
		return nil, domain.ConfigError("unknown aggregation %q", req.Aggregation)
	}
}

func planAnnual(base, dir string, segments [][]int, params []domain.ParameterCode) ([]domain.DownloadTask, error) {
	tasks := make([]domain.DownloadTask, 0, len(segments))
	for _, seg := range segments {
		urls := make([]string, len(seg))
		for i, y := range seg {
			urls[i] = fmt.Sprintf("%sannual_conc_by_monitor_%d.zip", base, y)
		}
		name := "annual_conc_by_monitor_" + Label(seg)
		if len(params) > 0 {
			name += "_" + domain.FormatParameterCodes(params, "_")
		}
		task, err := domain.NewDownloadTask(filepath.Join(dir, name+".csv.gz"), urls, params)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func planDaily(base, dir string, segments [][]int, params []domain.ParameterCode) ([]domain.DownloadTask, error) {
	tasks := make([]domain.DownloadTask, 0, len(segments)*len(params))
	for _, seg := range segments {
		for _, p := range params {
			urls := make([]string, len(seg))
			for i, y := range seg {
				urls[i] = fmt.Sprintf("%sdaily_%d_%d.zip", base, int(p), y)
			}
			name := fmt.Sprintf("daily_%s_%s.csv.gz", p.Label(), Label(seg))
			task, err := domain.NewDownloadTask(filepath.Join(dir, name), urls, nil)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// Segments sorts and de-duplicates years. With merge set, consecutive years
// are grouped into maximal runs; otherwise every year stands alone.
func Segments(years []int, merge bool) [][]int {
	sorted := slices.Clone(years)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var out [][]int
	for _, y := range sorted {
		if merge && len(out) > 0 {
			last := out[len(out)-1]
			if last[len(last)-1] == y-1 {
				out[len(out)-1] = append(last, y)
				continue
			}
		}
		out = append(out, []int{y})
	}
	return out
}

// Label names a segment: "2019" or "2015-2018".
func Label(segment []int) string {
	if len(segment) == 0 {
		return ""
	}
	first, last := segment[0], segment[len(segment)-1]
	if first == last {
		return strconv.Itoa(first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}

func normalizeParameters(params []domain.ParameterCode) []domain.ParameterCode {
	out := slices.Clone(params)
	slices.Sort(out)
	return slices.Compact(out)
}

// ParseYears parses a comma separated list of years and inclusive ranges,
// e.g. "2015-2018,2020".
func ParseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, domain.ConfigError("invalid year %q", part)
		}
		to := from
		if isRange {
			to, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || to < from {
				return nil, domain.ConfigError("invalid year range %q", part)
			}
		}
		for y := from; y <= to; y++ {
			years = append(years, y)
		}
	}
	return years, nil
}

// ParseParameters parses codes or mnemonics separated by commas.
func ParseParameters(values []string) ([]domain.ParameterCode, error) {
	var out []domain.ParameterCode
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			p, err := domain.ParseParameterCode(part)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}
