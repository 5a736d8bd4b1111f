package slug

import (
	"context"
	"errors"
	"fmt"

	"quillcms-backend/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// GormStore probes slug existence against a tenant-schema-bound *gorm.DB.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SlugExists(ctx context.Context, scope Scope, slug string, excludeID string) (bool, error) {
	table, column, err := scopeTable(scope.EntityType)
	if err != nil {
		return false, err
	}

	q := s.db.WithContext(ctx).Table(table).Where(column+" = ?", slug)
	if scope.EntityType == models.EntityItem {
		if scope.ParentID == "" {
			return false, errors.New("slug: item scope requires a collection id")
		}
		q = q.Where("collection_id = ?", scope.ParentID)
	}
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func scopeTable(entityType string) (table, column string, err error) {
	switch entityType {
	case models.EntityPage:
		return "pages", "slug", nil
	case models.EntityCollection:
		return "collections", "slug", nil
	case models.EntityItem:
		return "items", "slug", nil
	case models.EntityGlobal:
		return "globals", "key", nil
	default:
		return "", "", fmt.Errorf("slug: unknown entity type %q", entityType)
	}
}

// IsDuplicate reports whether err is a unique-constraint violation, i.e. a
// concurrent writer committed the same slug between our probe and commit.
// The caller should re-allocate and retry.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
