package cache

// Group is an invalidation unit: every cached response depends on one tenant
// and optionally on a specific entity+slug. Groups are constructed through
// TenantGroup/EntitySlugGroup only, so a malformed label cannot exist.
type Group struct {
	tenant     string
	entityType string
	slug       string
}

// TenantGroup covers every cached response for one tenant.
func TenantGroup(tenantID string) Group {
	return Group{tenant: tenantID}
}

// EntitySlugGroup covers cached responses derived from one entity's slug.
func EntitySlugGroup(entityType, slug string) Group {
	return Group{entityType: entityType, slug: slug}
}

// String renders the wire label: "tenant:<id>" or "<entityType>:slug:<slug>".
func (g Group) String() string {
	if g.tenant != "" {
		return "tenant:" + g.tenant
	}
	return g.entityType + ":slug:" + g.slug
}
