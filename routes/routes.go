package routes

import (
	"github.com/gofiber/fiber/v2"

	"quillcms-backend/controllers"
	"quillcms-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", controllers.Register)
	api.Post("/login", controllers.Login)
	api.Post("/logout", controllers.Logout)

	// Delivery API: tenant-scoped reads for downstream sites.
	// Tenant comes from the X-Tenant-ID header; preview needs the API key.
	delivery := api.Group("/v1")
	delivery.Use(middlewares.TenantFromHeader())

	delivery.Get("/pages", controllers.DeliveryPages)
	delivery.Get("/collections", controllers.DeliveryCollections)
	delivery.Get("/collections/:slug/items", controllers.DeliveryItems)
	delivery.Get("/globals/:key", controllers.DeliveryGlobal)

	// Editorial API (JWT auth)
	admin := api.Group("/admin")
	admin.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard FIRST (not tied to request TX)
	admin.Use(middlewares.Idempotency())

	// Then per-request tenant transaction (pins search_path and commits/rolls back)
	admin.Use(middlewares.TenantTx())

	// Pages
	admin.Post("/pages", controllers.CreatePage)
	admin.Get("/pages", controllers.GetPages)
	admin.Get("/pages/:id", controllers.GetPage)
	admin.Put("/pages/:id", controllers.UpdatePage)
	admin.Delete("/pages/:id", controllers.DeletePage)
	admin.Put("/pages/:id/publish", controllers.PublishPage)
	admin.Put("/pages/:id/unpublish", controllers.UnpublishPage)

	// Collections
	admin.Post("/collections", controllers.CreateCollection)
	admin.Get("/collections", controllers.GetCollections)
	admin.Put("/collections/:id", controllers.UpdateCollection)
	admin.Delete("/collections/:id", controllers.DeleteCollection)

	// Items (scoped to a collection)
	admin.Post("/collections/:collectionId/items", controllers.CreateItem)
	admin.Get("/collections/:collectionId/items", controllers.GetItems)
	admin.Put("/items/:id", controllers.UpdateItem)
	admin.Delete("/items/:id", controllers.DeleteItem)
	admin.Put("/items/:id/publish", controllers.PublishItem)
	admin.Put("/items/:id/unpublish", controllers.UnpublishItem)

	// Globals
	admin.Post("/globals", controllers.CreateGlobal)
	admin.Get("/globals", controllers.GetGlobals)
	admin.Put("/globals/:key", controllers.UpdateGlobal)
	admin.Delete("/globals/:key", controllers.DeleteGlobal)
	admin.Put("/globals/:key/publish", controllers.PublishGlobal)
	admin.Put("/globals/:key/unpublish", controllers.UnpublishGlobal)
}
