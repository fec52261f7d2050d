package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeSite(t *testing.T) {
	cols := []string{ColumnZCTA, ColumnStateFP}

	t.Run("resolved", func(t *testing.T) {
		annotated := RecordFromPairs(
			[]string{ColumnLatitude, ColumnZCTA, ColumnStateFP},
			[]any{41.3, "06511", "09"},
		)
		d := DescribeSite("site-1", annotated, cols)

		assert.True(t, d.Resolved)
		assert.Equal(t, "site-1", d.SiteID)
		assert.Equal(t, cols, d.Geography.Columns())
		assert.Equal(t, "06511", d.Geography.Value(ColumnZCTA))
	})

	t.Run("unresolved", func(t *testing.T) {
		annotated := RecordFromPairs(
			[]string{ColumnZCTA, ColumnStateFP},
			[]any{nil, nil},
		)
		assert.False(t, DescribeSite("site-2", annotated, cols).Resolved)
	})
}

func TestApplySite(t *testing.T) {
	row := RecordFromPairs([]string{ColumnFullAQSCode, ColumnValue}, []any{"s1", 3.0})

	t.Run("appends geography", func(t *testing.T) {
		site := SiteDescriptor{
			SiteID:    "s1",
			Geography: RecordFromPairs([]string{ColumnZCTA}, []any{"06511"}),
			Resolved:  true,
		}
		out := ApplySite(row, site)

		assert.Equal(t, []string{ColumnFullAQSCode, ColumnValue, ColumnZCTA}, out.Columns())
		assert.False(t, row.Has(ColumnZCTA), "input must not be mutated")
	})

	t.Run("unresolved leaves row unchanged", func(t *testing.T) {
		out := ApplySite(row, SiteDescriptor{SiteID: "s1"})
		assert.Equal(t, row.Columns(), out.Columns())
	})
}
