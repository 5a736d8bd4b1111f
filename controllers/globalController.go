package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"quillcms-backend/database"
	"quillcms-backend/middlewares"
	"quillcms-backend/models"
	"quillcms-backend/slug"
	"quillcms-backend/utils"
)

type GlobalInput struct {
	Key     string         `json:"key" validate:"required"`
	Content datatypes.JSON `json:"content"`
}

type GlobalUpdateInput struct {
	Content *datatypes.JSON `json:"content"`
}

// CreateGlobal allocates the global's key through the same slug machinery as
// entity slugs; keys are unique per tenant.
func CreateGlobal(c *fiber.Ctx) error {
	var input GlobalInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}
	utils.NormalizeDTO(&input)

	tenantID, _, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	global := models.Global{
		Status:  models.StatusDraft,
		Content: input.Content,
	}
	if _, err := allocateAndCommit(c, db, slug.Scope{EntityType: models.EntityGlobal}, input.Key, "", func(finalKey string) error {
		global.Key = finalKey
		return db.Create(&global).Error
	}); err != nil {
		return err
	}

	announce(c, tenantID, models.EntityGlobal, global.Key)
	return c.Status(fiber.StatusCreated).JSON(global)
}

func GetGlobals(c *fiber.Ctx) error {
	if _, _, err := tenantCtx(c); err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var globals []models.Global
	if err := db.Order("key ASC").Find(&globals).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"globals": globals, "message": "success"})
}

func UpdateGlobal(c *fiber.Ctx) error {
	var input GlobalUpdateInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&input)

	tenantID, _, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var global models.Global
	if err := db.Where("key = ?", c.Params("key")).First(&global).Error; err != nil {
		return err
	}
	if input.Content != nil {
		global.Content = *input.Content
	}
	if err := db.Save(&global).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityGlobal, global.Key)
	return c.JSON(global)
}

func DeleteGlobal(c *fiber.Ctx) error {
	tenantID, _, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var global models.Global
	if err := db.Where("key = ?", c.Params("key")).First(&global).Error; err != nil {
		return err
	}
	if err := db.Delete(&global).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityGlobal, global.Key)
	return c.JSON(fiber.Map{"message": "success"})
}

func PublishGlobal(c *fiber.Ctx) error {
	return transitionGlobal(c, models.ActionPublish)
}

func UnpublishGlobal(c *fiber.Ctx) error {
	return transitionGlobal(c, models.ActionUnpublish)
}

func transitionGlobal(c *fiber.Ctx, action string) error {
	tenantID, schema, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var global models.Global
	if err := db.Where("key = ?", c.Params("key")).First(&global).Error; err != nil {
		return err
	}

	next, err := nextStatus(global.Status, action)
	if err != nil {
		return err
	}
	global.Status = next
	if err := db.Save(&global).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityGlobal, global.Key)
	recordTransition(c, schema, tenantID, models.EntityGlobal, global.Id, action)
	return c.JSON(global)
}
