// Command validate checks the integrity of files written by epa: one header
// per CSV file, well-formed and strictly increasing Record keys, well-formed
// Monitor keys and, for annotated files, consistent geography columns.
//
// Usage:
//
//	go run ./cmd/validate -geography data/airnow_pm25.csv.gz
//	go run ./cmd/validate data/annual_conc_by_monitor_2015-2019.csv.gz
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/sink"
)

var (
	recordPattern  = regexp.MustCompile(`^(\d{4})-(\d{10})$`)
	monitorPattern = regexp.MustCompile(`^[0-9A-Z_]{2}-[0-9A-Z_]{2}\d{3}-[0-9A-Za-z]+$`)
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	geography := flag.Bool("geography", false, "also check FIPS5, STATE and COUNTY against STATEFP and COUNTYFP")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(os.Stdout, flag.Args(), *geography))
}

func run(w io.Writer, paths []string, geography bool) int {
	fmt.Fprintln(w, "=== EPA Output Integrity Validation ===")

	allPassed := true
	for _, path := range paths {
		fmt.Fprintf(w, "\n%s\n", path)
		contents, err := sink.ReadFile(path)
		if err != nil {
			fmt.Fprintf(w, "  FATAL: %v\n", err)
			allPassed = false
			continue
		}

		phases := []*phase{
			validateHeader(contents),
			validateRecordKeys(contents.Records),
			validateMonitorKeys(contents.Records),
		}
		if geography {
			phases = append(phases, validateGeography(contents.Records))
		}

		for _, p := range phases {
			status := "\033[32mPASS\033[0m"
			if !p.passed() {
				status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
				allPassed = false
			}
			fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
		}
		fmt.Fprintf(w, "  Records: %d\n", len(contents.Records))

		for _, p := range phases {
			if p.passed() {
				continue
			}
			fmt.Fprintf(w, "\n  --- %s ---\n", p.name)
			for i, e := range p.errors {
				fmt.Fprintf(w, "    [%d] %s\n", i+1, e)
			}
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// validateHeader flags data rows that repeat the header, which happens when
// a file is appended to with a header more than once.
func validateHeader(c sink.Contents) *phase {
	p := &phase{name: "Header written once"}
	if c.Header == nil {
		return p
	}
	for _, col := range []string{domain.ColumnRecord, domain.ColumnMonitor} {
		if !slices.Contains(c.Header, col) {
			p.errorf("header is missing %q", col)
		}
	}
	for i, r := range c.Records {
		if r.String(domain.ColumnRecord) == domain.ColumnRecord {
			p.errorf("row %d repeats the header", i+1)
		}
	}
	return p
}

func validateRecordKeys(records []domain.Record) *phase {
	p := &phase{name: "Record keys"}
	seen := make(map[string]int, len(records))
	var last int64 = -1
	for i, r := range records {
		key := r.String(domain.ColumnRecord)
		if key == domain.ColumnRecord {
			continue
		}
		m := recordPattern.FindStringSubmatch(key)
		if m == nil {
			p.errorf("row %d: malformed Record %q", i+1, key)
			continue
		}
		if prev, ok := seen[key]; ok {
			p.errorf("row %d: duplicate Record %q (first at row %d)", i+1, key, prev)
			continue
		}
		seen[key] = i + 1

		seq, _ := strconv.ParseInt(m[2], 10, 64)
		if seq <= last {
			p.errorf("row %d: Record %q does not increase", i+1, key)
		}
		last = seq
	}
	return p
}

func validateMonitorKeys(records []domain.Record) *phase {
	p := &phase{name: "Monitor keys"}
	for i, r := range records {
		key := r.String(domain.ColumnMonitor)
		if key == domain.ColumnMonitor {
			continue
		}
		if !monitorPattern.MatchString(key) {
			p.errorf("row %d: malformed Monitor %q", i+1, key)
		}
	}
	return p
}

// validateGeography checks the calculated columns against the county layer
// columns they are derived from.
func validateGeography(records []domain.Record) *phase {
	p := &phase{name: "Geography columns"}
	for i, r := range records {
		statefp := r.String(domain.ColumnStateFP)
		countyfp := r.String(domain.ColumnCountyFP)
		if statefp == "" {
			continue
		}
		if fips := r.String(domain.ColumnFIPS5); r.Has(domain.ColumnFIPS5) && fips != statefp+countyfp {
			p.errorf("row %d: FIPS5 %q != STATEFP+COUNTYFP %q", i+1, fips, statefp+countyfp)
		}
		if st := r.String(domain.ColumnState); r.Has(domain.ColumnState) && st != statefp {
			p.errorf("row %d: STATE %q != STATEFP %q", i+1, st, statefp)
		}
		monitor := r.String(domain.ColumnMonitor)
		if r.Has(domain.ColumnFIPS5) && !strings.HasPrefix(monitor, statefp+"-"+statefp+countyfp+"-") {
			p.errorf("row %d: Monitor %q does not match geography", i+1, monitor)
		}
	}
	return p
}
