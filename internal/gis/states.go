package gis

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/couchcryptid/epa-data-etl/internal/tabular"
)

//go:embed states.csv
var statesCSV []byte

// State is one row of the census state table.
type State struct {
	FIPS string
	USPS string
	Name string
}

var loadStates = sync.OnceValues(func() (map[string]State, error) {
	rows, err := tabular.NewCSVReader(bytes.NewReader(statesCSV)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read state table: %w", err)
	}
	states := make(map[string]State, len(rows))
	for _, r := range rows {
		s := State{FIPS: r.String("STATEFP"), USPS: r.String("STUSPS"), Name: r.String("NAME")}
		states[s.FIPS] = s
	}
	return states, nil
})

// States returns the state table keyed by two-digit FIPS code.
func States() (map[string]State, error) {
	return loadStates()
}
