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

type CollectionInput struct {
	Name   string         `json:"name" validate:"required"`
	Slug   string         `json:"slug"`
	Config datatypes.JSON `json:"config"`
}

type CollectionUpdateInput struct {
	Name   *string         `json:"name"`
	Slug   *string         `json:"slug"`
	Config *datatypes.JSON `json:"config"`
}

func CreateCollection(c *fiber.Ctx) error {
	var input CollectionInput
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

	desired := input.Slug
	if desired == "" {
		desired = input.Name
	}

	collection := models.Collection{
		Name:   input.Name,
		Status: models.StatusDraft,
		Config: input.Config,
	}
	if _, err := allocateAndCommit(c, db, slug.Scope{EntityType: models.EntityCollection}, desired, "", func(finalSlug string) error {
		collection.Slug = finalSlug
		return db.Create(&collection).Error
	}); err != nil {
		return err
	}

	announce(c, tenantID, models.EntityCollection, collection.Slug)
	return c.Status(fiber.StatusCreated).JSON(collection)
}

func GetCollections(c *fiber.Ctx) error {
	if _, _, err := tenantCtx(c); err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var collections []models.Collection
	if err := db.Order("created_at DESC").Find(&collections).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"collections": collections, "message": "success"})
}

func UpdateCollection(c *fiber.Ctx) error {
	var input CollectionUpdateInput
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

	var collection models.Collection
	if err := db.Where("id = ?", c.Params("id")).First(&collection).Error; err != nil {
		return err
	}
	oldSlug := collection.Slug

	if input.Name != nil {
		collection.Name = *input.Name
	}
	if input.Config != nil {
		collection.Config = *input.Config
	}

	if input.Slug != nil && slug.Slugify(*input.Slug) != oldSlug {
		if _, err := allocateAndCommit(c, db, slug.Scope{EntityType: models.EntityCollection}, *input.Slug, collection.Id, func(finalSlug string) error {
			collection.Slug = finalSlug
			return db.Save(&collection).Error
		}); err != nil {
			return err
		}
	} else if err := db.Save(&collection).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityCollection, oldSlug, collection.Slug)
	return c.JSON(collection)
}

func DeleteCollection(c *fiber.Ctx) error {
	tenantID, _, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var collection models.Collection
	if err := db.Where("id = ?", c.Params("id")).First(&collection).Error; err != nil {
		return err
	}
	// Items cascade at the constraint level; their cached reads are covered
	// by the tenant-wide group.
	if err := db.Delete(&collection).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityCollection, collection.Slug)
	return c.JSON(fiber.Map{"message": "success"})
}
