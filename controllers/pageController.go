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

type PageInput struct {
	Title   string         `json:"title" validate:"required"`
	Slug    string         `json:"slug"`
	Content datatypes.JSON `json:"content"`
}

type PageUpdateInput struct {
	Title   *string         `json:"title"`
	Slug    *string         `json:"slug"`
	Content *datatypes.JSON `json:"content"`
}

func CreatePage(c *fiber.Ctx) error {
	var input PageInput
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
		desired = input.Title
	}

	page := models.Page{
		Title:   input.Title,
		Status:  models.StatusDraft,
		Content: input.Content,
	}
	if _, err := allocateAndCommit(c, db, slug.Scope{EntityType: models.EntityPage}, desired, "", func(finalSlug string) error {
		page.Slug = finalSlug
		return db.Create(&page).Error
	}); err != nil {
		return err
	}

	announce(c, tenantID, models.EntityPage, page.Slug)
	return c.Status(fiber.StatusCreated).JSON(page)
}

func GetPages(c *fiber.Ctx) error {
	if _, _, err := tenantCtx(c); err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	q := db.Model(&models.Page{}).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var pages []models.Page
	if err := q.Find(&pages).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"pages": pages, "message": "success"})
}

func GetPage(c *fiber.Ctx) error {
	if _, _, err := tenantCtx(c); err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var page models.Page
	if err := db.Where("id = ?", c.Params("id")).First(&page).Error; err != nil {
		return err
	}
	return c.JSON(page)
}

func UpdatePage(c *fiber.Ctx) error {
	var input PageUpdateInput
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

	var page models.Page
	if err := db.Where("id = ?", c.Params("id")).First(&page).Error; err != nil {
		return err
	}
	oldSlug := page.Slug

	if input.Title != nil {
		page.Title = *input.Title
	}
	if input.Content != nil {
		page.Content = *input.Content
	}

	// A slug change re-validates uniqueness; the same desired slug (or none)
	// keeps the current one without a needless suffix.
	if input.Slug != nil && slug.Slugify(*input.Slug) != oldSlug {
		if _, err := allocateAndCommit(c, db, slug.Scope{EntityType: models.EntityPage}, *input.Slug, page.Id, func(finalSlug string) error {
			page.Slug = finalSlug
			return db.Save(&page).Error
		}); err != nil {
			return err
		}
	} else if err := db.Save(&page).Error; err != nil {
		return err
	}

	// Invalidate both paths when the slug changed, so readers holding the
	// stale slug miss too.
	announce(c, tenantID, models.EntityPage, oldSlug, page.Slug)
	return c.JSON(page)
}

func DeletePage(c *fiber.Ctx) error {
	tenantID, _, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var page models.Page
	if err := db.Where("id = ?", c.Params("id")).First(&page).Error; err != nil {
		return err
	}
	if err := db.Delete(&page).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityPage, page.Slug)
	return c.JSON(fiber.Map{"message": "success"})
}

func PublishPage(c *fiber.Ctx) error {
	return transitionPage(c, models.ActionPublish)
}

func UnpublishPage(c *fiber.Ctx) error {
	return transitionPage(c, models.ActionUnpublish)
}

func transitionPage(c *fiber.Ctx, action string) error {
	tenantID, schema, err := tenantCtx(c)
	if err != nil {
		return err
	}
	db, err := database.GetTenantDB(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "database error")
	}

	var page models.Page
	if err := db.Where("id = ?", c.Params("id")).First(&page).Error; err != nil {
		return err
	}

	next, err := nextStatus(page.Status, action)
	if err != nil {
		return err
	}
	page.Status = next
	if action == models.ActionPublish {
		now := time.Now().UTC()
		page.PublishedAt = &now
	}
	if err := db.Save(&page).Error; err != nil {
		return err
	}

	announce(c, tenantID, models.EntityPage, page.Slug)
	recordTransition(c, schema, tenantID, models.EntityPage, page.Id, action)
	return c.JSON(page)
}

// nextStatus enforces the status state machine: only draft pages publish,
// only published pages unpublish. Anything else is a conflict, not a silent
// no-op.
func nextStatus(current, action string) (string, error) {
	switch action {
	case models.ActionPublish:
		if current != models.StatusDraft {
			return "", fiber.NewError(fiber.StatusConflict, "only draft content can be published")
		}
		return models.StatusPublished, nil
	case models.ActionUnpublish:
		if current != models.StatusPublished {
			return "", fiber.NewError(fiber.StatusConflict, "only published content can be unpublished")
		}
		return models.StatusDraft, nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, "unknown action")
	}
}

// recordTransition queues the audit entry once the TX commits; a transition
// that never committed must not leave a log record.
func recordTransition(c *fiber.Ctx, schema, tenantID, targetType, targetID, action string) {
	actorID, _ := c.Locals("userID").(string)
	entry := models.PublishLogEntry{
		TenantId:   tenantID,
		ActorId:    actorID,
		TargetType: targetType,
		TargetId:   targetID,
		Action:     action,
		Note:       c.Query("note"),
	}
	afterCommit(c, func() { auditRecorder.Record(schema, entry) })
}
