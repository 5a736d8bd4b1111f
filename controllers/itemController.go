package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"quillcms-backend/database"
	"quillcms-backend/middlewares"
	"quillcms-backend/models"
	"quillcms-backend/slug"
	"quillcms-backend/utils"
)

type ItemInput struct {
	Title   string         `json:"title" validate:"required"`
	Slug    string         `json:"slug"`
	Content datatypes.JSON `json:"content"`
}

type ItemUpdateInput struct {
	Title   *string         `json:"title"`
	Slug    *string         `json:"slug"`
	Content *datatypes.JSON `json:"content"`
}

// CreateItem creates an item inside the collection addressed by
// /collections/:collectionId/items. Item slugs are unique per collection.
func CreateItem(c *fiber.Ctx) error {
	var input ItemInput
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

	var collection models.Collection
	if err := db.Where("id = ?", c.Params("collectionId")).First(&collection).Error; err != nil {
		return err
	}

	desired := input.Slug
	if desired == "" {
		desired = input.Title
	}

	item := models.Item{
		CollectionID: collection.Id,
		Title:        input.Title,
		Status:       models.StatusDraft,
		Content:      input.Content,
	}
	scope := slug.Scope{EntityType: models.EntityItem, ParentID: collection.Id}
	if _, err := allocateAndCommit(c, db, scope, desired, "", func(finalSlug string) error {
		item.Slug = finalSlug
		return db.Create(&item).Error
	}); err != nil {
		return err
	}

	announce(c, tenantID, models.EntityItem, item.Slug)
	announce(c, tenantID, models.EntityCollection, collection.Slug)
	return c.Status(fiber.StatusCreated).JSON(item)
}

func GetItems(c *fiber.Ctx) error {
	if _, _, err := tenantCtx(c); err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	q := db.Where("collection_id = ?", c.Params("collectionId")).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var items []models.Item
	if err := q.Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items, "message": "success"})
}

func UpdateItem(c *fiber.Ctx) error {
	var input ItemUpdateInput
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

	var item models.Item
	if err := db.Where("id = ?", c.Params("id")).First(&item).Error; err != nil {
		return err
	}
	oldSlug := item.Slug

	if input.Title != nil {
		item.Title = *input.Title
	}
	if input.Content != nil {
		item.Content = *input.Content
	}

	if input.Slug != nil && slug.Slugify(*input.Slug) != oldSlug {
		scope := slug.Scope{EntityType: models.EntityItem, ParentID: item.CollectionID}
		if _, err := allocateAndCommit(c, db, scope, *input.Slug, item.Id, func(finalSlug string) error {
			item.Slug = finalSlug
			return db.Save(&item).Error
		}); err != nil {
			return err
		}
	} else if err := db.Save(&item).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityItem, oldSlug, item.Slug)
	return c.JSON(item)
}

func DeleteItem(c *fiber.Ctx) error {
	tenantID, _, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var item models.Item
	if err := db.Where("id = ?", c.Params("id")).First(&item).Error; err != nil {
		return err
	}
	if err := db.Delete(&item).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityItem, item.Slug)
	return c.JSON(fiber.Map{"message": "success"})
}

func PublishItem(c *fiber.Ctx) error {
	return transitionItem(c, models.ActionPublish)
}

func UnpublishItem(c *fiber.Ctx) error {
	return transitionItem(c, models.ActionUnpublish)
}

func transitionItem(c *fiber.Ctx, action string) error {
	tenantID, schema, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var item models.Item
	if err := db.Where("id = ?", c.Params("id")).First(&item).Error; err != nil {
		return err
	}

	next, err := nextStatus(item.Status, action)
	if err != nil {
		return err
	}
	item.Status = next
	if action == models.ActionPublish {
		now := time.Now().UTC()
		item.PublishedAt = &now
	}
	if err := db.Save(&item).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityItem, item.Slug)
	recordTransition(c, schema, tenantID, models.EntityItem, item.Id, action)
	return c.JSON(item)
}
