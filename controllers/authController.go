package controllers

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"quillcms-backend/database"
	"quillcms-backend/middlewares"
	"quillcms-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Register creates the first editor account together with its tenant and the
// tenant's content schema.
func Register(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return err
	}

	var mailExist models.User
	database.DB.Where("email = ?", data["email"]).First(&mailExist)
	if mailExist.Email != "" {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "email already exists",
		})
	}

	if data["password"] != data["password_confirm"] {
		c.Status(400)
		return c.JSON(fiber.Map{
			"message": "passwords do not match",
		})
	}

	tenantName := strings.TrimSpace(data["tenant_name"])
	if tenantName == "" {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "tenant_name is required",
		})
	}

	tx := database.DB.Begin()

	user := models.User{
		FirstName: data["first_name"],
		LastName:  data["last_name"],
		Email:     data["email"],
	}
	user.SetPassword(data["password"])
	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Could not create user",
			"error":   err.Error(),
		})
	}

	schemaName, err := createSchema(tenantName)
	if err != nil {
		tx.Rollback()
		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"message": "Registration failed due to internal error",
			"error":   err.Error(),
		})
	}

	tenant := models.Tenant{
		Name:       tenantName,
		SchemaName: schemaName,
		UserId:     user.Id,
	}
	if err := tx.Create(&tenant).Error; err != nil {
		tx.Rollback()
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Could not create tenant",
			"error":   err.Error(),
		})
	}

	user.SchemaName = schemaName
	user.TenantId = tenant.Id
	if err := tx.Updates(&user).Error; err != nil {
		tx.Rollback()
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Registration failed",
			"error":   err.Error(),
		})
	}

	if err := database.MigrateTenantSchema(schemaName); err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Could not migrate tenant schema"})
	}

	tx.Commit()

	database.DB.Preload("User").First(&tenant)
	return c.JSON(fiber.Map{
		"tenant":  tenant,
		"api_key": tenant.APIKey,
	})
}

func createSchema(tenantName string) (string, error) {
	safeName := strings.ToLower(strings.TrimSpace(tenantName))
	safeName = strings.ReplaceAll(safeName, " ", "_")
	safeName = strings.ReplaceAll(safeName, "-", "_")
	// Validate schema name (only letters, numbers, underscores; must start with letter/underscore)
	valid := regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	if !valid.MatchString(safeName) {
		return "", fmt.Errorf("invalid schema name after sanitization: %s", safeName)
	}

	// Create schema if not exists
	if err := database.DB.Exec("CREATE SCHEMA IF NOT EXISTS " + safeName).Error; err != nil {
		return "", err
	}
	return safeName, nil
}

func Login(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return err
	}

	var user models.User

	if _, err := mail.ParseAddress(data["email"]); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Invalid email format",
		})
	}

	database.DB.Table("public.users").Where("email = ?", data["email"]).First(&user)

	if _, err := uuid.Parse(user.Id); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}

	if err := user.ComparePassword(data["password"]); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}

	token, err := middlewares.GenerateJWT(user.Id, user.TenantId, user.SchemaName)
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Invalid credentials",
			"error":   err.Error(),
		})
	}

	if err := database.MigrateTenantSchema(user.SchemaName); err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Could not migrate tenant schema"})
	}

	return c.JSON(fiber.Map{
		"token":  token,
		"schema": user.SchemaName,
		"user": fiber.Map{
			"id":    user.Id,
			"name":  user.FirstName + " " + user.LastName,
			"email": user.Email,
		},
	})
}

func Logout(c *fiber.Ctx) error {
	cookie := fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	}
	c.Cookie(&cookie)
	return c.JSON(fiber.Map{
		"message": "success",
	})
}
