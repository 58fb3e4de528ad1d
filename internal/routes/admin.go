package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/handlers"
	"github.com/appnity/bannerstudio-backend/internal/middleware"
)

func RegisterPromptRoutes(rg gin.IRouter) {
	prompts := rg.Group("/prompts")
	prompts.Use(middleware.AuthMiddleware(), middleware.AdminOnly())
	{
		prompts.GET("", handlers.ListPrompts)
		prompts.GET("/:id", handlers.GetPrompt)
		prompts.POST("", handlers.CreatePrompt)
		prompts.PATCH("/:id", handlers.UpdatePrompt)
		prompts.DELETE("/:id", handlers.DeletePrompt)
	}
}

func RegisterAdminRoutes(rg gin.IRouter) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminOnly())

	// System toggles
	admin.GET("/settings", handlers.GetSettings)
	admin.PUT("/settings", handlers.UpdateSetting)
}
