package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/models"
	"github.com/appnity/bannerstudio-backend/internal/services"
	apperrors "github.com/appnity/bannerstudio-backend/pkg/errors"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

// generationContext keeps generation running if the client goes away; the
// Designer applies its own deadline.
func generationContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// dispatchDesign either enqueues the design or processes it in the request.
// The bool reports whether it was queued.
func dispatchDesign(c *gin.Context, designID string) (*services.ProcessResult, bool, error) {
	if jobs != nil {
		if err := jobs.Enqueue(c.Request.Context(), services.Job{DesignID: designID}); err != nil {
			return nil, false, apperrors.Wrap(http.StatusInternalServerError, "Failed to queue design generation", err)
		}
		return nil, true, nil
	}
	return designer.ProcessDesign(generationContext(c), designID), false, nil
}

func queuedDesign(design *models.Design) gin.H {
	return gin.H{
		"id":      design.ID,
		"status":  design.Status,
		"message": "Initial design generation queued",
	}
}

// GenerateInitialDesign handles POST /api/generate-initial-design
func GenerateInitialDesign(c *gin.Context) {
	var input services.NewDesign
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidRequest(c, err)
		return
	}

	design, err := designer.CreateDesign(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	logger.Info().Str("design_id", design.ID).Int64("user_id", design.UserID).Msg("Initial design created")

	result, queued, err := dispatchDesign(c, design.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if queued {
		c.JSON(http.StatusAccepted, gin.H{"success": true, "data": queuedDesign(design)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": result})
}

// GenerateInitialDesignPlanned handles POST /api/generate-initial-design-new.
// A planner call decides which elements go on each panel first.
func GenerateInitialDesignPlanned(c *gin.Context) {
	var input services.NewDesign
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidRequest(c, err)
		return
	}

	planned, err := designer.CreatePlannedDesign(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	result, queued, err := dispatchDesign(c, planned.Design.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if queued {
		c.JSON(http.StatusAccepted, gin.H{"success": true, "firstCall": planned.Plan, "data": queuedDesign(planned.Design)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "firstCall": planned.Plan, "data": result})
}

// GetDesign handles GET /api/design/:id. The id may also name an iteration,
// in which case its parent design is returned with that iteration flagged.
func GetDesign(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(apperrors.BadRequest("Design ID is required"))
		return
	}

	view, err := designer.GetDesignView(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrDesignNotFound):
		c.Error(apperrors.NotFound("Design not found"))
		return
	case errors.Is(err, services.ErrOrphanIteration):
		c.Error(apperrors.Internal("Data integrity error: iteration found but parent design missing"))
		return
	case err != nil:
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Internal server error", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}
