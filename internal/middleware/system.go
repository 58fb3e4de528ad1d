package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/models"
	"github.com/appnity/bannerstudio-backend/pkg/errors"
)

// FeatureGate blocks access to a feature if its toggle is disabled
func FeatureGate(key string, featureName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !database.IsFeatureEnabled(key) {
			abortWithError(c, errors.NewAppError(http.StatusServiceUnavailable, featureName+" is currently disabled by administrators."))
			return
		}
		c.Next()
	}
}

// RequireGenerationEnabled blocks new designs when generation is switched off.
func RequireGenerationEnabled() gin.HandlerFunc {
	return FeatureGate(models.SettingGenerationEnabled, "Design generation")
}

// RequireIterationsEnabled blocks iteration requests when switched off.
func RequireIterationsEnabled() gin.HandlerFunc {
	return FeatureGate(models.SettingIterationsEnabled, "Design iterations")
}
