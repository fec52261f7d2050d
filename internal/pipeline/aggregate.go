package pipeline

import (
	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// averagedColumns are reduced to their mean when rows of one site are
// merged; every other column keeps its first non-null value.
var averagedColumns = map[string]bool{
	domain.ColumnValue: true,
	domain.ColumnAQI:   true,
}

// AggregateBySite merges rows sharing a site id into one row per site, in
// order of first appearance. The site column comes first, followed by the
// union of all other columns in order of first appearance. Rows without a
// site id are discarded.
func AggregateBySite(rows []domain.Record, siteColumn string) []domain.Record {
	columns := []string{siteColumn}
	seenColumn := map[string]bool{siteColumn: true}
	for _, r := range rows {
		for _, c := range r.Columns() {
			if !seenColumn[c] {
				seenColumn[c] = true
				columns = append(columns, c)
			}
		}
	}

	type group struct {
		id   any
		rows []domain.Record
	}
	var order []*group
	groups := make(map[string]*group)
	for _, r := range rows {
		id := r.Value(siteColumn)
		if domain.IsNull(id) || domain.FormatValue(id) == "" {
			continue
		}
		key := domain.FormatValue(id)
		g, ok := groups[key]
		if !ok {
			g = &group{id: id}
			groups[key] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, r)
	}

	out := make([]domain.Record, 0, len(order))
	for _, g := range order {
		merged := domain.NewRecord(len(columns))
		merged.Set(siteColumn, g.id)
		for _, c := range columns[1:] {
			if averagedColumns[c] {
				merged.Set(c, mean(g.rows, c))
			} else {
				merged.Set(c, firstValue(g.rows, c))
			}
		}
		out = append(out, merged)
	}
	return out
}

// mean averages the numeric values of a column, skipping nulls. It returns
// nil when no row has a value.
func mean(rows []domain.Record, column string) any {
	var sum float64
	n := 0
	for _, r := range rows {
		if f, ok := r.Float(column); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return sum / float64(n)
}

func firstValue(rows []domain.Record, column string) any {
	for _, r := range rows {
		if v := r.Value(column); !domain.IsNull(v) {
			return v
		}
	}
	return nil
}
