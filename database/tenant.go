package database

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GetTenantDB returns a *gorm.DB bound to the request's tenant.
// Prefer an existing per-request TX (middlewares.TenantTx), else fall back to
// a session with the search_path pinned to the tenant schema.
func GetTenantDB(c *fiber.Ctx) (*gorm.DB, error) {
	// If a per-request transaction exists, use it.
	if v := c.Locals("tx"); v != nil {
		if tx, ok := v.(*gorm.DB); ok && tx != nil {
			return tx, nil
		}
	}

	schema, _ := c.Locals("schema").(string)
	if strings.TrimSpace(schema) == "" {
		return nil, errors.New("tenant schema missing")
	}
	return GetSchemaDB(schema)
}
