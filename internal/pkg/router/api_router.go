package router

import (
	"github.com/FabianGrimm/InkPress/app/controllers"
	"github.com/FabianGrimm/InkPress/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	// auth
	api.Post("/auth/register", controllers.HandleRegister)
	api.Post("/auth/login", controllers.HandleLogin)
	api.Post("/auth/logout", controllers.HandleLogout)

	// content
	api.Get("/posts", controllers.HandleListPosts)
	api.Get("/posts/:slug", controllers.HandleGetPost)
	api.Post("/posts", middleware.RequireAuth, controllers.HandleCreatePost)
	api.Put("/posts/:slug", middleware.RequireAuth, controllers.HandleUpdatePost)
	api.Delete("/posts/:slug", middleware.RequireAuth, controllers.HandleDeletePost)

	api.Get("/posts/:slug/comments", controllers.HandleListComments)
	api.Post("/posts/:slug/comments", middleware.RequireAuth, controllers.HandleCreateComment)
	api.Delete("/comments/:id", middleware.RequireAuth, controllers.HandleDeleteComment)

	api.Get("/categories", controllers.HandleListCategories)
	api.Post("/categories", middleware.RequireAdmin, controllers.HandleCreateCategory)
	api.Delete("/categories/:slug", middleware.RequireAdmin, controllers.HandleDeleteCategory)

	// profile
	api.Get("/user/profile", middleware.RequireAuth, controllers.HandleGetProfile)
	api.Put("/user/profile", middleware.RequireAuth, controllers.HandleUpdateProfile)
	api.Post("/user/delete", middleware.RequireAuth, controllers.HandleDeleteAccount)

	// billing
	api.Post("/billing/checkout", middleware.RequireAuth, controllers.HandleCheckout)
	api.Get("/billing/portal", middleware.RequireAuth, controllers.HandleBillingPortal)
	api.Get("/billing/status", middleware.RequireAuth, controllers.HandleBillingStatus)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
