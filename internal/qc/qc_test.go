package qc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
)

func airNowRow(site any, lat, aqi any) domain.Record {
	return domain.RecordFromPairs(
		[]string{"FullAQSCode", "UTC", "Latitude", "Longitude", "AQI", "Value"},
		[]any{site, "2021-01-01T05:00", lat, -72.9, aqi, 12.0},
	)
}

func TestLoadRules_Default(t *testing.T) {
	rs, err := LoadRules("")
	require.NoError(t, err)
	assert.NotEmpty(t, rs.Rules)

	assert.Empty(t, rs.Check([]domain.Record{airNowRow("840090090027", 41.3, int64(29))}))
}

func TestRuleSet_Check(t *testing.T) {
	rs, err := LoadRules("")
	require.NoError(t, err)

	violations := rs.Check([]domain.Record{
		airNowRow("840090090027", 41.3, int64(29)),
		airNowRow(nil, 123.0, int64(29)),
		airNowRow("840090090027", 41.3, "n/a"),
	})

	require.Len(t, violations, 3)
	assert.Equal(t, Violation{Rule: "site-present", Row: 1, Column: "FullAQSCode", Value: nil, Reason: "missing value"}, violations[0])
	assert.Equal(t, "latitude-range", violations[1].Rule)
	assert.Equal(t, "above maximum 90", violations[1].Reason)
	assert.Equal(t, "aqi-range", violations[2].Rule)
	assert.Equal(t, "not numeric", violations[2].Reason)
}

func TestParseRules_Invalid(t *testing.T) {
	_, err := ParseRules([]byte("rules:\n  - name: x\n"))
	require.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = ParseRules([]byte("rules:\n  - column: Value\n    min: 5\n    max: 1\n"))
	require.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = ParseRules([]byte("rules: [:"))
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoadRules_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - column: Value\n    max: 10\n"), 0o644))

	rs, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, "Value", rs.Rules[0].Name)
}

func TestChecker_Inspect(t *testing.T) {
	rs, err := ParseRules([]byte("rules:\n  - name: cap\n    column: Value\n    max: 10\n"))
	require.NoError(t, err)
	m := observability.NewMetricsForTesting()
	c := NewChecker(rs, m, observability.DiscardLogger())

	n := c.Inspect("2021-01-01", []domain.Record{
		domain.RecordFromPairs([]string{"Value"}, []any{11.0}),
		domain.RecordFromPairs([]string{"Value"}, []any{9.0}),
	})

	assert.Equal(t, 1, n)
	assert.InDelta(t, 1, testutil.ToFloat64(m.QCViolations.WithLabelValues("cap")), 0)
}
