package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/handlers"
	"github.com/appnity/bannerstudio-backend/internal/middleware"
)

// Options controls the optional parts of the router.
type Options struct {
	// StaticDir is served under /designs when images are stored locally.
	StaticDir string
}

// NewRouter builds the engine with the middleware chain and every route.
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.GeneralRateLimit())

	api := r.Group("/api")
	{
		RegisterDesignRoutes(api)
		RegisterPlanRoutes(api)
		RegisterPromptRoutes(api)
		RegisterAdminRoutes(api)
	}
	RegisterPlanRoutes(r)

	r.GET("/health", handlers.Health)

	if opts.StaticDir != "" {
		r.Static("/designs", opts.StaticDir)
	}

	return r
}
