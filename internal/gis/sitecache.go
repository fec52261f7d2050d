package gis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
)

// SiteCache remembers the geography of monitoring sites for one downloader
// so each site is joined against the shape layers at most once. Sites that
// resolve to nothing are remembered as unresolved.
//
// A SiteCache is owned by a single downloader and is not safe for
// concurrent use.
type SiteCache struct {
	annotator domain.Annotator
	sites     map[string]domain.SiteDescriptor
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewSiteCache wraps an annotator.
func NewSiteCache(annotator domain.Annotator, metrics *observability.Metrics, logger *slog.Logger) *SiteCache {
	return &SiteCache{
		annotator: annotator,
		sites:     make(map[string]domain.SiteDescriptor),
		metrics:   metrics,
		logger:    logger,
	}
}

// Resolve joins every site of rows not seen before. The first row of each
// site supplies its coordinates.
func (c *SiteCache) Resolve(ctx context.Context, rows []domain.Record, siteColumn, xColumn, yColumn string) error {
	var (
		ids   []string
		first []domain.Record
		seen  = make(map[string]bool)
	)
	for _, r := range rows {
		id := r.String(siteColumn)
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := c.sites[id]; ok {
			c.metrics.SiteCache.WithLabelValues("hit").Inc()
			continue
		}
		c.metrics.SiteCache.WithLabelValues("miss").Inc()
		ids = append(ids, id)
		first = append(first, r)
	}
	if len(ids) == 0 {
		return nil
	}

	annotated, err := c.annotator.Join(ctx, first, xColumn, yColumn)
	if err != nil {
		return fmt.Errorf("resolve %d sites: %w", len(ids), err)
	}
	if len(annotated) != len(ids) {
		return fmt.Errorf("resolve sites: annotator returned %d rows for %d sites", len(annotated), len(ids))
	}

	columns := c.annotator.Columns()
	unresolved := 0
	for i, id := range ids {
		d := domain.DescribeSite(id, annotated[i], columns)
		if !d.Resolved {
			unresolved++
		}
		c.sites[id] = d
	}
	c.logger.Debug("resolved sites", "new", len(ids), "unresolved", unresolved, "known", len(c.sites))
	return nil
}

// Lookup returns the descriptor of a site and whether it is known and
// resolved.
func (c *SiteCache) Lookup(siteID string) (domain.SiteDescriptor, bool) {
	d, ok := c.sites[siteID]
	if !ok {
		return domain.SiteDescriptor{}, false
	}
	return d, d.Resolved
}

// Len returns the number of remembered sites.
func (c *SiteCache) Len() int { return len(c.sites) }
