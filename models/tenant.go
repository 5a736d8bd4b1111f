package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is the isolation boundary. Each tenant owns a dedicated Postgres
// schema holding its content tables; the public schema holds this registry.
type Tenant struct {
	Id         string `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"not null;unique"`
	SchemaName string `json:"-" gorm:"unique;not null"`
	// APIKey authorizes preview (draft) reads on the delivery API.
	APIKey    string `json:"-" gorm:"uniqueIndex;not null"`
	UserId    string `json:"-"`
	User      User   `json:"user" gorm:"foreignKey:UserId;references:Id"`
	Active    bool   `json:"-" gorm:"default:true"`
}

func (tenant *Tenant) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	tenant.Id = uuid.NewString()
	if tenant.APIKey == "" {
		tenant.APIKey = uuid.NewString()
	}
	return
}
