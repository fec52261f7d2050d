package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKey(t *testing.T) {
	assert.Equal(t, "2019-0000000042", RecordKey(2019, 42))
	assert.Equal(t, "2021-0000000001", RecordKey(2021, 1))
}

func TestRecordYear(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want int
	}{
		{"annual year float", RecordFromPairs([]string{"Year"}, []any{2019.0}), 2019},
		{"annual year string", RecordFromPairs([]string{"Year"}, []any{"2018"}), 2018},
		{"daily date", RecordFromPairs([]string{"Date Local"}, []any{"2020-03-14"}), 2020},
		{"airnow utc", RecordFromPairs([]string{"UTC"}, []any{"2021-01-01T05:00"}), 2021},
		{"year wins over date", RecordFromPairs([]string{"Date Local", "Year"}, []any{"2020-01-01", 1999.0}), 1999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RecordYear(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no year columns", func(t *testing.T) {
		_, err := RecordYear(RecordFromPairs([]string{"Value"}, []any{1.0}))
		assert.Error(t, err)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := RecordYear(RecordFromPairs([]string{"UTC"}, []any{"yesterday"}))
		assert.Error(t, err)
	})
}

func TestAssignRecordKey_StrictlyIncreasing(t *testing.T) {
	c := NewRecordCounter()
	var keys []string
	for range 3 {
		r := RecordFromPairs([]string{"Year"}, []any{2019.0})
		require.NoError(t, AssignRecordKey(&r, c))
		keys = append(keys, r.String(ColumnRecord))
	}

	assert.Equal(t, []string{"2019-0000000001", "2019-0000000002", "2019-0000000003"}, keys)
	assert.Equal(t, int64(3), c.Issued())
}

func TestAssignRecordKey_FailureDoesNotAdvance(t *testing.T) {
	c := NewRecordCounter()
	r := RecordFromPairs([]string{"Value"}, []any{1.0})

	require.Error(t, AssignRecordKey(&r, c))
	assert.Equal(t, int64(0), c.Issued())
	assert.False(t, r.Has(ColumnRecord))
}

func TestAQSMonitorKey(t *testing.T) {
	t.Run("quoted codes", func(t *testing.T) {
		r := RecordFromPairs(
			[]string{ColumnStateCode, ColumnCountyCode, ColumnSiteNum},
			[]any{"06", "037", "1103"},
		)
		got, err := AQSMonitorKey(r)
		require.NoError(t, err)
		assert.Equal(t, "06-06037-1103", got)
	})

	t.Run("numeric codes", func(t *testing.T) {
		r := RecordFromPairs(
			[]string{ColumnStateCode, ColumnCountyCode, ColumnSiteNum},
			[]any{1.0, 73.0, 23.0},
		)
		got, err := AQSMonitorKey(r)
		require.NoError(t, err)
		assert.Equal(t, "01-01073-0023", got)
	})

	t.Run("canada", func(t *testing.T) {
		r := RecordFromPairs(
			[]string{ColumnStateCode, ColumnCountyCode, ColumnSiteNum},
			[]any{"CC", "040", "0020"},
		)
		got, err := AQSMonitorKey(r)
		require.NoError(t, err)
		assert.Equal(t, "CC-CC040-0020", got)
	})

	t.Run("missing site", func(t *testing.T) {
		r := RecordFromPairs([]string{ColumnStateCode, ColumnCountyCode}, []any{"06", "037"})
		_, err := AQSMonitorKey(r)
		assert.Error(t, err)
	})
}

func TestAirNowMonitorKey(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		r := RecordFromPairs(
			[]string{ColumnFullAQSCode, ColumnState, ColumnFIPS5},
			[]any{"840060370016", "06", "06037"},
		)
		assert.Equal(t, "06-06037-840060370016", AirNowMonitorKey(r))
	})

	t.Run("defaults and numeric site", func(t *testing.T) {
		r := RecordFromPairs([]string{ColumnFullAQSCode}, []any{int64(60370016)})
		assert.Equal(t, "__-00000-060370016", AirNowMonitorKey(r))
	})
}
