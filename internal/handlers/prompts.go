package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/middleware"
	"github.com/appnity/bannerstudio-backend/internal/models"
	"github.com/appnity/bannerstudio-backend/internal/validation"
	apperrors "github.com/appnity/bannerstudio-backend/pkg/errors"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
	"github.com/appnity/bannerstudio-backend/pkg/utils"
)

type promptListQuery struct {
	PanelPosition string `form:"panelPosition" binding:"omitempty,oneof=TOP BOTTOM"`
	IsActive      *bool  `form:"isActive"`
	IsDefault     *bool  `form:"isDefault"`
	Search        string `form:"search" binding:"max=100"`
	Limit         int    `form:"limit,default=50" binding:"min=1,max=100"`
	Offset        int    `form:"offset,default=0" binding:"min=0"`
}

type createPromptRequest struct {
	Name           string  `json:"name" binding:"required,min=1,max=100"`
	Description    *string `json:"description" binding:"omitempty,max=1000"`
	PanelPosition  string  `json:"panelPosition" binding:"required,oneof=TOP BOTTOM"`
	PromptTemplate string  `json:"promptTemplate" binding:"required,min=1"`
	Version        *int    `json:"version" binding:"omitempty,min=1"`
	IsActive       *bool   `json:"isActive"`
	IsDefault      *bool   `json:"isDefault"`
}

type updatePromptRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description    *string `json:"description" binding:"omitempty,max=1000"`
	PanelPosition  *string `json:"panelPosition" binding:"omitempty,oneof=TOP BOTTOM"`
	PromptTemplate *string `json:"promptTemplate" binding:"omitempty,min=1"`
	Version        *int    `json:"version" binding:"omitempty,min=1"`
	IsActive       *bool   `json:"isActive"`
	IsDefault      *bool   `json:"isDefault"`
}

func (r updatePromptRequest) empty() bool {
	return r.Name == nil && r.Description == nil && r.PanelPosition == nil &&
		r.PromptTemplate == nil && r.Version == nil && r.IsActive == nil && r.IsDefault == nil
}

func promptID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !utils.IsUUID(id) {
		c.Error(apperrors.ErrInvalidRequest.WithDetails([]validation.FieldError{{
			Field:   "id",
			Message: "id must be a valid UUID",
		}}))
		return "", false
	}
	return id, true
}

func findPrompt(c *gin.Context, id string) (*models.PromptTemplate, bool) {
	var prompt models.PromptTemplate
	err := database.DB.WithContext(c.Request.Context()).First(&prompt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.Error(apperrors.NotFound("Prompt template not found"))
		return nil, false
	}
	if err != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to load prompt template", err))
		return nil, false
	}
	return &prompt, true
}

// savePrompt writes p and, when it is the panel default, clears the flag on
// every other template for the same panel. The clearing update skips hooks:
// BeforeSave would validate the empty model it runs against.
func savePrompt(tx *gorm.DB, p *models.PromptTemplate) error {
	if p.IsDefault {
		if err := tx.Model(&models.PromptTemplate{}).
			Where("panel_position = ? AND id <> ? AND is_default = ?", p.PanelPosition, p.ID, true).
			UpdateColumn("is_default", false).Error; err != nil {
			return err
		}
	}
	return tx.Save(p).Error
}

// ListPrompts handles GET /api/prompts
func ListPrompts(c *gin.Context) {
	var q promptListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}

	query := database.DB.WithContext(c.Request.Context()).Model(&models.PromptTemplate{})
	if q.PanelPosition != "" {
		query = query.Where("panel_position = ?", q.PanelPosition)
	}
	if q.IsActive != nil {
		query = query.Where("is_active = ?", *q.IsActive)
	}
	if q.IsDefault != nil {
		query = query.Where("is_default = ?", *q.IsDefault)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to list prompt templates", err))
		return
	}

	prompts := []models.PromptTemplate{}
	if err := query.Order("updated_at DESC").Limit(q.Limit).Offset(q.Offset).Find(&prompts).Error; err != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to list prompt templates", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"prompts": prompts,
			"total":   total,
			"limit":   q.Limit,
			"offset":  q.Offset,
		},
	})
}

// GetPrompt handles GET /api/prompts/:id
func GetPrompt(c *gin.Context) {
	id, ok := promptID(c)
	if !ok {
		return
	}
	prompt, ok := findPrompt(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": prompt})
}

// CreatePrompt handles POST /api/prompts
func CreatePrompt(c *gin.Context) {
	var req createPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	prompt := models.PromptTemplate{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Description:    req.Description,
		PanelPosition:  req.PanelPosition,
		PromptTemplate: req.PromptTemplate,
		Version:        1,
		IsActive:       true,
	}
	if req.Version != nil {
		prompt.Version = *req.Version
	}
	if req.IsActive != nil {
		prompt.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		prompt.IsDefault = *req.IsDefault
	}
	if subject := c.GetString(middleware.ContextSubject); subject != "" {
		prompt.CreatedBy = &subject
	}

	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return savePrompt(tx, &prompt)
	})
	if err != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to create prompt template", err))
		return
	}

	logger.Info().Str("prompt_id", prompt.ID).Str("panel", prompt.PanelPosition).Msg("Prompt template created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": prompt})
}

// UpdatePrompt handles PATCH /api/prompts/:id
func UpdatePrompt(c *gin.Context) {
	id, ok := promptID(c)
	if !ok {
		return
	}

	var req updatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	if req.empty() {
		c.Error(apperrors.BadRequest("At least one field must be provided"))
		return
	}

	prompt, ok := findPrompt(c, id)
	if !ok {
		return
	}

	if req.Name != nil {
		prompt.Name = *req.Name
	}
	if req.Description != nil {
		prompt.Description = req.Description
	}
	if req.PanelPosition != nil {
		prompt.PanelPosition = *req.PanelPosition
	}
	if req.PromptTemplate != nil {
		prompt.PromptTemplate = *req.PromptTemplate
	}
	if req.Version != nil {
		prompt.Version = *req.Version
	}
	if req.IsActive != nil {
		prompt.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		prompt.IsDefault = *req.IsDefault
	}

	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return savePrompt(tx, prompt)
	})
	if err != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to update prompt template", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": prompt})
}

// DeletePrompt handles DELETE /api/prompts/:id. Designs keep their own copy
// of the rendered prompt, so removing a template never breaks history.
func DeletePrompt(c *gin.Context) {
	id, ok := promptID(c)
	if !ok {
		return
	}

	res := database.DB.WithContext(c.Request.Context()).Delete(&models.PromptTemplate{}, "id = ?", id)
	if res.Error != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to delete prompt template", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.Error(apperrors.NotFound("Prompt template not found"))
		return
	}

	logger.Info().Str("prompt_id", id).Msg("Prompt template deleted")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Prompt template deleted"})
}
