package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quillcms-backend/audit"
	"quillcms-backend/cache"
	"quillcms-backend/invalidation"
	"quillcms-backend/slug"
)

var (
	announcer     *invalidation.Announcer
	auditRecorder *audit.Recorder
	deliveryCache *cache.ResponseCache
	logg          = logrus.StandardLogger()
)

// Setup wires the write-path collaborators. Called once from main before the
// server starts.
func Setup(a *invalidation.Announcer, r *audit.Recorder, dc *cache.ResponseCache, log *logrus.Logger) {
	announcer = a
	auditRecorder = r
	deliveryCache = dc
	if log != nil {
		logg = log
	}
}

// afterCommit defers fn until the per-request transaction commits (the TX
// middleware stages and flushes the queue). Without a staged TX, fn runs
// immediately.
func afterCommit(c *fiber.Ctx, fn func()) {
	if fns, ok := c.Locals("afterCommit").(*[]func()); ok {
		*fns = append(*fns, fn)
		return
	}
	fn()
}

// announce queues a cache invalidation for after the TX commits. A failed
// commit must not clear caches or log audit entries for a write that never
// happened.
func announce(c *fiber.Ctx, tenantID, entityType string, slugs ...string) {
	afterCommit(c, func() { announcer.Announce(tenantID, entityType, slugs...) })
}

// tenantCtx pulls the authenticated tenant context stashed by the middleware.
func tenantCtx(c *fiber.Ctx) (tenantID, schema string, err error) {
	tenantID, _ = c.Locals("tenantID").(string)
	schema, _ = c.Locals("schema").(string)
	if tenantID == "" || schema == "" {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "tenant context missing")
	}
	return tenantID, schema, nil
}

// allocateAndCommit allocates a collision-free slug and runs commit (an
// insert or update) under a savepoint. A commit-time unique violation means a
// concurrent writer won the slug between probe and commit; we roll back to
// the savepoint and re-allocate. The unique index stays the arbiter.
func allocateAndCommit(c *fiber.Ctx, db *gorm.DB, scope slug.Scope, desired, excludeID string, commit func(finalSlug string) error) (string, error) {
	allocator := slug.NewAllocator(slug.NewGormStore(db))

	const commitRetries = 3
	for attempt := 0; attempt < commitRetries; attempt++ {
		finalSlug, err := allocator.Allocate(c.UserContext(), scope, desired, excludeID)
		if err != nil {
			return "", err
		}

		db.SavePoint("slug_alloc")
		if err := commit(finalSlug); err != nil {
			if slug.IsDuplicate(err) {
				db.RollbackTo("slug_alloc")
				logg.WithFields(logrus.Fields{
					"entity": scope.EntityType,
					"slug":   finalSlug,
				}).Warn("slug taken by concurrent writer, re-allocating")
				continue
			}
			return "", err
		}
		return finalSlug, nil
	}
	return "", slug.ErrExhausted
}
