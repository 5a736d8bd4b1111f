package database

import (
	"fmt"
	"log"
	"os"

	"quillcms-backend/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect() {
	// .env is optional outside local development.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "db"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), port)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("Could not connect to database: " + err.Error())
	}
}

// AutoMigrate migrates the public (shared) schema: tenant registry and users.
func AutoMigrate() {
	if err := DB.AutoMigrate(&models.Tenant{}, &models.User{}); err != nil {
		log.Fatalf("public automigrate failed: %v", err)
	}
}

// GetSchemaDB returns a dedicated session pinned to the given schema.
// Used by migrations and background writers that run outside a request.
func GetSchemaDB(schema string) (*gorm.DB, error) {
	if schema == "" {
		return nil, fmt.Errorf("empty schema name")
	}
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	sess := DB.Session(&gorm.Session{NewDB: true})
	if err := sess.Exec(`SET search_path = "` + schema + `", public`).Error; err != nil {
		return nil, fmt.Errorf("set search_path failed: %w", err)
	}
	return sess, nil
}

// WithSchema runs fn in a transaction whose search_path is pinned to the
// tenant schema. SET LOCAL scopes the change to the transaction, so the
// pooled connection goes back clean.
func WithSchema(schema string, fn func(tx *gorm.DB) error) error {
	if schema == "" {
		return fmt.Errorf("empty schema name")
	}
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SET LOCAL search_path = "` + schema + `", public`).Error; err != nil {
			return fmt.Errorf("set search_path failed: %w", err)
		}
		return fn(tx)
	})
}
