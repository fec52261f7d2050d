package domain

// DescribeSite extracts the requested geography columns of an annotated row.
// A site is resolved when at least one of them has a value.
func DescribeSite(siteID string, annotated Record, columns []string) SiteDescriptor {
	geo := NewRecord(len(columns))
	resolved := false
	for _, col := range columns {
		v := annotated.Value(col)
		if !IsNull(v) {
			resolved = true
		}
		geo.Set(col, v)
	}
	return SiteDescriptor{SiteID: siteID, Geography: geo, Resolved: resolved}
}

// ApplySite returns a copy of row with the site's geography columns
// appended. Unresolved sites leave the row unchanged.
func ApplySite(row Record, site SiteDescriptor) Record {
	out := row.Clone()
	if !site.Resolved {
		return out
	}
	out.Merge(site.Geography)
	return out
}
