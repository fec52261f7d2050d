package gis

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
)

// --- counting annotator ---

type countingAnnotator struct {
	inner domain.Annotator
	calls int
	rows  int
}

func (c *countingAnnotator) Columns() []string { return c.inner.Columns() }

func (c *countingAnnotator) Join(ctx context.Context, rows []domain.Record, x, y string) ([]domain.Record, error) {
	c.calls++
	c.rows += len(rows)
	return c.inner.Join(ctx, rows, x, y)
}

func newCountingCache(t *testing.T) (*SiteCache, *countingAnnotator, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	a, err := NewAnnotator([]string{"ZCTA", "STATE", "FIPS5"}, StaticLayers(zipLayer(), countyLayer()), m, observability.DiscardLogger())
	require.NoError(t, err)
	ca := &countingAnnotator{inner: a}
	return NewSiteCache(ca, m, observability.DiscardLogger()), ca, m
}

func TestSiteCache_ResolvesEachSiteOnce(t *testing.T) {
	cache, ann, m := newCountingCache(t)
	ctx := context.Background()
	batch := []domain.Record{
		point("A", -72.9, 41.3),
		point("A", -72.9, 41.3),
		point("B", -100, 38),
	}

	require.NoError(t, cache.Resolve(ctx, batch, domain.ColumnFullAQSCode, domain.ColumnLongitude, domain.ColumnLatitude))
	require.NoError(t, cache.Resolve(ctx, batch, domain.ColumnFullAQSCode, domain.ColumnLongitude, domain.ColumnLatitude))

	assert.Equal(t, 1, ann.calls)
	assert.Equal(t, 2, ann.rows, "duplicate sites in a batch are joined once")
	assert.Equal(t, 2, cache.Len())
	assert.InDelta(t, 2, testutil.ToFloat64(m.SiteCache.WithLabelValues("miss")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SiteCache.WithLabelValues("hit")), 0)

	a, ok := cache.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "06511", a.Geography.Value("ZCTA"))
	assert.Equal(t, "09", a.Geography.Value("STATE"))
	assert.Equal(t, "09009", a.Geography.Value("FIPS5"))

	b, ok := cache.Lookup("B")
	assert.False(t, ok, "unresolved site")
	assert.Equal(t, "B", b.SiteID)

	_, ok = cache.Lookup("C")
	assert.False(t, ok)
}

func TestSiteCache_NewSitesOnly(t *testing.T) {
	cache, ann, _ := newCountingCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Resolve(ctx, []domain.Record{point("A", -72.9, 41.3)}, domain.ColumnFullAQSCode, domain.ColumnLongitude, domain.ColumnLatitude))
	require.NoError(t, cache.Resolve(ctx, []domain.Record{point("A", -72.9, 41.3), point("C", -72.95, 41.25)}, domain.ColumnFullAQSCode, domain.ColumnLongitude, domain.ColumnLatitude))

	assert.Equal(t, 2, ann.calls)
	assert.Equal(t, 2, ann.rows)
}

func TestSiteCache_KeepsEverySite(t *testing.T) {
	cache, ann, m := newCountingCache(t)
	ctx := context.Background()

	var batch []domain.Record
	for i := range 50 {
		batch = append(batch, point(fmt.Sprintf("S%02d", i), -72.9, 41.3))
	}
	for range 3 {
		require.NoError(t, cache.Resolve(ctx, batch, domain.ColumnFullAQSCode, domain.ColumnLongitude, domain.ColumnLatitude))
	}

	assert.Equal(t, 50, cache.Len())
	assert.Equal(t, 1, ann.calls)
	assert.Equal(t, 50, ann.rows, "join cost follows distinct sites")
	assert.InDelta(t, 100, testutil.ToFloat64(m.SiteCache.WithLabelValues("hit")), 0)
}
