package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/middleware"
	"github.com/appnity/bannerstudio-backend/internal/models"
	apperrors "github.com/appnity/bannerstudio-backend/pkg/errors"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

var settingKeys = map[string]bool{
	models.SettingGenerationEnabled: true,
	models.SettingIterationsEnabled: true,
}

// GetSettings returns all system settings as a key/value map.
func GetSettings(c *gin.Context) {
	var settings []models.SystemSettings
	if err := database.DB.WithContext(c.Request.Context()).Find(&settings).Error; err != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to load settings", err))
		return
	}

	settingsMap := make(map[string]string, len(settings))
	for _, s := range settings {
		settingsMap[s.Key] = s.Value
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": settingsMap})
}

// UpdateSetting upserts a single feature toggle.
func UpdateSetting(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value" binding:"required,oneof=true false"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	if !settingKeys[req.Key] {
		c.Error(apperrors.BadRequest("Invalid setting key"))
		return
	}

	adminID := c.GetString(middleware.ContextSubject)
	setting := models.SystemSettings{
		Key:       req.Key,
		Value:     req.Value,
		UpdatedBy: adminID,
		UpdatedAt: time.Now(),
	}

	err := database.DB.WithContext(c.Request.Context()).
		Where("key = ?", req.Key).
		Assign(setting).
		FirstOrCreate(&setting).Error
	if err != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to update setting", err))
		return
	}

	if err := database.CacheInvalidate(c.Request.Context(), database.SettingCacheKey(req.Key)); err != nil {
		logger.Warn().Err(err).Str("key", req.Key).Msg("Failed to invalidate cached setting")
	}

	logger.Info().Str("key", req.Key).Str("value", req.Value).Str("admin_id", adminID).Msg("System setting updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": setting})
}
