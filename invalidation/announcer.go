// Package invalidation computes and announces the cache groups affected by a
// content write. Announcements are fire-and-forget: a failed or panicking
// target is logged and never fails the write that triggered it.
package invalidation

import (
	"github.com/sirupsen/logrus"

	"quillcms-backend/cache"
)

// GroupInvalidator clears all cached entries tagged with a group and reports
// how many were removed. *cache.ResponseCache satisfies it.
type GroupInvalidator interface {
	InvalidateGroup(g cache.Group) int
}

type Announcer struct {
	log     *logrus.Logger
	targets []GroupInvalidator
}

func NewAnnouncer(log *logrus.Logger, targets ...GroupInvalidator) *Announcer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Announcer{log: log, targets: targets}
}

// Invalidate computes the affected groups and clears them on every registered
// target. The tenant-wide group is always included; each non-empty slug adds
// an entity+slug group. On a slug change the caller passes both the old and
// the new slug. Returns the list of groups cleared.
func (a *Announcer) Invalidate(tenantID, entityType string, slugs ...string) []cache.Group {
	groups := []cache.Group{cache.TenantGroup(tenantID)}
	seen := map[string]struct{}{}
	for _, s := range slugs {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		groups = append(groups, cache.EntitySlugGroup(entityType, s))
	}

	for _, g := range groups {
		cleared := 0
		for _, t := range a.targets {
			cleared += a.clear(t, g)
		}
		a.log.WithFields(logrus.Fields{
			"group":   g.String(),
			"cleared": cleared,
		}).Debug("cache group invalidated")
	}
	return groups
}

// Announce runs Invalidate on a separate goroutine. Used by write handlers so
// invalidation latency and failures stay off the write path.
func (a *Announcer) Announce(tenantID, entityType string, slugs ...string) {
	go a.Invalidate(tenantID, entityType, slugs...)
}

func (a *Announcer) clear(t GroupInvalidator, g cache.Group) (n int) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithFields(logrus.Fields{
				"group": g.String(),
				"panic": r,
			}).Error("cache invalidation target failed")
		}
	}()
	return t.InvalidateGroup(g)
}

// compile-time check that the response cache satisfies the target interface
var _ GroupInvalidator = (*cache.ResponseCache)(nil)
