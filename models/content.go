package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entity statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Entity type names, used in cache groups and publish log targets.
const (
	EntityPage       = "page"
	EntityCollection = "collection"
	EntityItem       = "item"
	EntityGlobal     = "global"
)

// Page is a standalone content page (about, imprint, landing pages).
// Slug is unique within the tenant schema; the index is the arbiter for
// concurrent slug allocation.
type Page struct {
	Id          string         `json:"id" gorm:"primaryKey"`
	Slug        string         `json:"slug" gorm:"uniqueIndex;not null"`
	Title       string         `json:"title" gorm:"not null"`
	Status      string         `json:"status" gorm:"type:VARCHAR(20);default:draft"`
	Content     datatypes.JSON `json:"content" gorm:"type:jsonb"`
	PublishedAt *time.Time     `json:"published_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (page *Page) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	page.Id = uuid.NewString()
	return
}

// Collection groups items (blog posts, products, team members).
type Collection struct {
	Id        string         `json:"id" gorm:"primaryKey"`
	Slug      string         `json:"slug" gorm:"uniqueIndex;not null"`
	Name      string         `json:"name" gorm:"not null"`
	Status    string         `json:"status" gorm:"type:VARCHAR(20);default:draft"`
	Config    datatypes.JSON `json:"config" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (collection *Collection) BeforeCreate(tx *gorm.DB) (err error) {
	collection.Id = uuid.NewString()
	return
}

// Item belongs to a collection. Slug is unique per collection, enforced by
// the composite unique index (see database.MigrateTenantSchema).
type Item struct {
	Id           string         `json:"id" gorm:"primaryKey"`
	CollectionID string         `json:"collection_id" gorm:"not null;index:idx_items_collection_slug,unique,priority:1"`
	Collection   Collection     `json:"-" gorm:"foreignKey:CollectionID;references:Id;constraint:OnDelete:CASCADE"`
	Slug         string         `json:"slug" gorm:"not null;index:idx_items_collection_slug,unique,priority:2"`
	Title        string         `json:"title" gorm:"not null"`
	Status       string         `json:"status" gorm:"type:VARCHAR(20);default:draft"`
	Content      datatypes.JSON `json:"content" gorm:"type:jsonb"`
	PublishedAt  *time.Time     `json:"published_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (item *Item) BeforeCreate(tx *gorm.DB) (err error) {
	item.Id = uuid.NewString()
	return
}

// Global is a keyed singleton (site settings, navigation, footer).
type Global struct {
	Id        string         `json:"id" gorm:"primaryKey"`
	Key       string         `json:"key" gorm:"uniqueIndex;not null"`
	Status    string         `json:"status" gorm:"type:VARCHAR(20);default:draft"`
	Content   datatypes.JSON `json:"content" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (global *Global) BeforeCreate(tx *gorm.DB) (err error) {
	global.Id = uuid.NewString()
	return
}
