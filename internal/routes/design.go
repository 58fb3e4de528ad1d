package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/handlers"
	"github.com/appnity/bannerstudio-backend/internal/middleware"
)

func RegisterDesignRoutes(rg gin.IRouter) {
	generate := rg.Group("")
	generate.Use(middleware.RequireGenerationEnabled(), middleware.GenerationRateLimit())
	{
		generate.POST("/generate-initial-design", handlers.GenerateInitialDesign)
		generate.POST("/generate-initial-design-new", handlers.GenerateInitialDesignPlanned)
	}

	rg.POST("/generate-design-iteration",
		middleware.RequireGenerationEnabled(),
		middleware.RequireIterationsEnabled(),
		middleware.GenerationRateLimit(),
		handlers.GenerateDesignIteration,
	)

	rg.GET("/design/:id", handlers.GetDesign)
}

// RegisterPlanRoutes is mounted under /api and at the root for older clients.
func RegisterPlanRoutes(rg gin.IRouter) {
	rg.POST("/generate-json-plan", middleware.PlanRateLimit(), handlers.GenerateJSONPlan)
}
