package database

import (
	"fmt"

	"quillcms-backend/models"

	"gorm.io/gorm"
)

// MigrateTenantSchema applies (idempotent) schema migrations for a single
// tenant schema. It pins search_path to the tenant and performs:
// - AutoMigrate (content tables)
// - Unique slug indexes (the arbiter for concurrent slug allocation)
// - Publish log + idempotency key indexes
func MigrateTenantSchema(schema string) error {
	if schema == "" {
		return fmt.Errorf("schema name is empty")
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		// Pin the tenant schema for this transaction
		if err := tx.Exec(`SET search_path = "` + schema + `", public`).Error; err != nil {
			return fmt.Errorf("set search_path failed: %w", err)
		}

		// --- AutoMigrate tables/columns/index tags (non-destructive) ---
		if err := tx.AutoMigrate(
			&models.Page{},
			&models.Collection{},
			&models.Item{},
			&models.Global{},
			&models.PublishLogEntry{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("tenant automigrate failed: %w", err)
		}

		// --- Unique + helpful indexes (idempotent) ---
		// Slug uniqueness per scope is what makes the allocator's commit-time
		// conflict handling safe; the probe loop alone is only an optimization.
		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_slug ON pages (slug)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_collections_slug ON collections (slug)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_collection_slug ON items (collection_id, slug)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_globals_key ON globals (key)`,
			`CREATE INDEX IF NOT EXISTS idx_items_collection_status ON items (collection_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_publish_log_target ON publish_log_entries (target_type, target_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Foreign key: items.collection_id -> collections.id ---
		fk := `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1
		FROM pg_constraint
		WHERE conrelid = 'items'::regclass
		  AND conname  = 'fk_items_collection'
	) THEN
		ALTER TABLE items
		ADD CONSTRAINT fk_items_collection
		FOREIGN KEY (collection_id)
		REFERENCES collections(id)
		ON UPDATE RESTRICT
		ON DELETE CASCADE;
	END IF;
END $$;`
		if err := tx.Exec(fk).Error; err != nil {
			return fmt.Errorf("foreign key migration failed: %w", err)
		}

		// --- Status CHECK constraints (idempotent) ---
		checks := []string{
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'pages'::regclass
					  AND conname  = 'chk_pages_status'
				) THEN
					ALTER TABLE pages
					ADD CONSTRAINT chk_pages_status
					CHECK (status IN ('draft', 'published'));
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'items'::regclass
					  AND conname  = 'chk_items_status'
				) THEN
					ALTER TABLE items
					ADD CONSTRAINT chk_items_status
					CHECK (status IN ('draft', 'published'));
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
