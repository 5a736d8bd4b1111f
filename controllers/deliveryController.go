package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"quillcms-backend/cache"
	"quillcms-backend/database"
	"quillcms-backend/models"
	"quillcms-backend/utils"
)

// Delivery endpoints serve downstream sites. Published-only unless the
// request is in preview mode; non-preview responses are cached in the
// delivery output cache and tagged with the groups the write path
// invalidates.

const (
	defaultItemLimit = 20
	maxItemLimit     = 100
)

type deliveryEnvelope struct {
	Success    bool                `json:"success"`
	Data       any                 `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
	Pagination *deliveryPagination `json:"pagination,omitempty"`
}

type deliveryPagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

// DeliveryPages handles GET /api/v1/pages and its ?slug= filter. With a slug
// filter the response carries a single page object.
func DeliveryPages(c *fiber.Ctx) error {
	tenantID, preview := deliveryCtx(c)
	key := deliveryKey(c, tenantID, preview)
	if !preview {
		if body, ok := deliveryCache.Get(key); ok {
			return sendJSON(c, fiber.StatusOK, body)
		}
	}

	db, err := database.GetTenantDB(c)
	if err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "database error")
	}

	q := db.Model(&models.Page{}).Order("created_at DESC")
	if !preview {
		q = q.Where("status = ?", models.StatusPublished)
	}
	slugFilter := c.Query("slug")
	if slugFilter != "" {
		q = q.Where("slug = ?", slugFilter)
	}

	var pages []models.Page
	if err := q.Find(&pages).Error; err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "query failed")
	}

	if slugFilter != "" {
		if len(pages) == 0 {
			return deliveryError(c, fiber.StatusNotFound, "page not found")
		}
		groups := []cache.Group{
			cache.TenantGroup(tenantID),
			cache.EntitySlugGroup(models.EntityPage, slugFilter),
		}
		return cacheAndSend(c, key, preview, deliveryEnvelope{Success: true, Data: pages[0]}, groups)
	}

	groups := []cache.Group{cache.TenantGroup(tenantID)}
	for _, p := range pages {
		groups = append(groups, cache.EntitySlugGroup(models.EntityPage, p.Slug))
	}
	return cacheAndSend(c, key, preview, deliveryEnvelope{Success: true, Data: pages}, groups)
}

// DeliveryCollections handles GET /api/v1/collections.
func DeliveryCollections(c *fiber.Ctx) error {
	tenantID, preview := deliveryCtx(c)
	key := deliveryKey(c, tenantID, preview)
	if !preview {
		if body, ok := deliveryCache.Get(key); ok {
			return sendJSON(c, fiber.StatusOK, body)
		}
	}

	db, err := database.GetTenantDB(c)
	if err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "database error")
	}

	q := db.Model(&models.Collection{}).Order("created_at DESC")
	if !preview {
		q = q.Where("status = ?", models.StatusPublished)
	}

	var collections []models.Collection
	if err := q.Find(&collections).Error; err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "query failed")
	}

	groups := []cache.Group{cache.TenantGroup(tenantID)}
	for _, col := range collections {
		groups = append(groups, cache.EntitySlugGroup(models.EntityCollection, col.Slug))
	}
	return cacheAndSend(c, key, preview, deliveryEnvelope{Success: true, Data: collections}, groups)
}

// DeliveryItems handles GET /api/v1/collections/:slug/items with status,
// limit and offset filters plus pagination metadata.
func DeliveryItems(c *fiber.Ctx) error {
	tenantID, preview := deliveryCtx(c)
	key := deliveryKey(c, tenantID, preview)
	if !preview {
		if body, ok := deliveryCache.Get(key); ok {
			return sendJSON(c, fiber.StatusOK, body)
		}
	}

	db, err := database.GetTenantDB(c)
	if err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "database error")
	}

	collectionSlug := c.Params("slug")
	colQuery := db.Where("slug = ?", collectionSlug)
	if !preview {
		colQuery = colQuery.Where("status = ?", models.StatusPublished)
	}
	var collection models.Collection
	if err := colQuery.First(&collection).Error; err != nil {
		return deliveryError(c, fiber.StatusNotFound, "collection not found")
	}

	limit := clampLimit(utils.ParseIntDefault(c.Query("limit"), defaultItemLimit))
	offset := utils.ParseIntDefault(c.Query("offset"), 0)

	q := db.Model(&models.Item{}).Where("collection_id = ?", collection.Id)
	if !preview {
		// Drafts never leak on the public path, whatever the caller asked for.
		q = q.Where("status = ?", models.StatusPublished)
	} else if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "query failed")
	}

	var items []models.Item
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "query failed")
	}

	groups := []cache.Group{
		cache.TenantGroup(tenantID),
		cache.EntitySlugGroup(models.EntityCollection, collectionSlug),
	}
	for _, it := range items {
		groups = append(groups, cache.EntitySlugGroup(models.EntityItem, it.Slug))
	}
	env := deliveryEnvelope{
		Success: true,
		Data:    items,
		Pagination: &deliveryPagination{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasMore: int64(offset+len(items)) < total,
		},
	}
	return cacheAndSend(c, key, preview, env, groups)
}

// DeliveryGlobal handles GET /api/v1/globals/:key.
func DeliveryGlobal(c *fiber.Ctx) error {
	tenantID, preview := deliveryCtx(c)
	key := deliveryKey(c, tenantID, preview)
	if !preview {
		if body, ok := deliveryCache.Get(key); ok {
			return sendJSON(c, fiber.StatusOK, body)
		}
	}

	db, err := database.GetTenantDB(c)
	if err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "database error")
	}

	globalKey := c.Params("key")
	q := db.Where("key = ?", globalKey)
	if !preview {
		q = q.Where("status = ?", models.StatusPublished)
	}

	var global models.Global
	if err := q.First(&global).Error; err != nil {
		return deliveryError(c, fiber.StatusNotFound, "global not found")
	}

	groups := []cache.Group{
		cache.TenantGroup(tenantID),
		cache.EntitySlugGroup(models.EntityGlobal, globalKey),
	}
	return cacheAndSend(c, key, preview, deliveryEnvelope{Success: true, Data: global}, groups)
}

// clampLimit keeps an item page size in [1, maxItemLimit]; an explicit 0
// falls back to the default instead of producing an empty cached page.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultItemLimit
	}
	if limit > maxItemLimit {
		return maxItemLimit
	}
	return limit
}

func deliveryCtx(c *fiber.Ctx) (tenantID string, preview bool) {
	tenantID, _ = c.Locals("tenantID").(string)
	preview, _ = c.Locals("preview").(bool)
	return tenantID, preview
}

// deliveryKey scopes the output-cache key by tenant: different tenants share
// URL paths, the client-side cache never does.
func deliveryKey(c *fiber.Ctx, tenantID string, preview bool) string {
	return cache.Key(tenantID+"|"+c.OriginalURL(), preview)
}

// cacheAndSend marshals the envelope, stores it (non-preview only) tagged
// with its groups, and sends it. Misses and errors are never cached.
func cacheAndSend(c *fiber.Ctx, key string, preview bool, env deliveryEnvelope, groups []cache.Group) error {
	body, err := json.Marshal(env)
	if err != nil {
		return deliveryError(c, fiber.StatusInternalServerError, "encoding failed")
	}
	if !preview {
		deliveryCache.Put(key, body, groups...)
	}
	return sendJSON(c, fiber.StatusOK, body)
}

func sendJSON(c *fiber.Ctx, status int, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(status).Send(body)
}

func deliveryError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(deliveryEnvelope{Success: false, Error: msg})
}
