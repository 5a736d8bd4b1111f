package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"quillcms-backend/database"
	"quillcms-backend/models"
)

const (
	tenantHeader  = "X-Tenant-ID"
	previewHeader = "X-Preview"
)

// TenantFromHeader resolves the delivery tenant from X-Tenant-ID and stashes
// its context in c.Locals("tenantID","schema","preview").
//
// Preview requests (X-Preview: true) additionally require the tenant API key
// as a Bearer token: draft content must never be publicly readable.
func TenantFromHeader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := strings.TrimSpace(c.Get(tenantHeader))
		if tenantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "missing " + tenantHeader + " header",
			})
		}

		var tenant models.Tenant
		if err := database.DB.Where("id = ? AND active = true", tenantID).First(&tenant).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "unknown tenant",
			})
		}

		preview := strings.EqualFold(strings.TrimSpace(c.Get(previewHeader)), "true")
		if preview {
			h := c.Get(authHeader)
			if !strings.HasPrefix(strings.ToLower(h), strings.ToLower(bearerPrefix)) ||
				strings.TrimSpace(h[len(bearerPrefix):]) != tenant.APIKey {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"error":   "preview requires a valid tenant API key",
				})
			}
		}

		c.Locals("tenantID", tenant.Id)
		c.Locals("schema", tenant.SchemaName)
		c.Locals("preview", preview)

		return c.Next()
	}
}
