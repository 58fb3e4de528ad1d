package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/services"
	"github.com/appnity/bannerstudio-backend/internal/validation"
	apperrors "github.com/appnity/bannerstudio-backend/pkg/errors"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

// GenerateDesignIteration handles POST /api/generate-design-iteration
func GenerateDesignIteration(c *gin.Context) {
	var input services.NewIteration
	if err := c.ShouldBindJSON(&input); err != nil {
		invalidRequest(c, err)
		return
	}
	if !input.HasNotes() {
		c.Error(apperrors.ErrInvalidRequest.WithDetails([]validation.FieldError{{
			Field:   "iterationNotes",
			Message: "At least one of topPanelIterationNotes or bottomPanelIterationNotes must be provided",
		}}))
		return
	}

	iteration, err := designer.CreateIteration(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	logger.Info().
		Str("iteration_id", iteration.ID).
		Str("design_id", iteration.InitialDesignID).
		Int("iteration_number", iteration.IterationNumber).
		Msg("Design iteration created")

	data := gin.H{
		"id":              iteration.ID,
		"status":          iteration.Status,
		"message":         "Design iteration started successfully",
		"iterationNumber": iteration.IterationNumber,
	}

	if jobs != nil {
		if err := jobs.Enqueue(c.Request.Context(), services.Job{DesignID: iteration.ID, IsIteration: true}); err != nil {
			c.Error(apperrors.Wrap(http.StatusInternalServerError, "Failed to queue design iteration", err))
			return
		}
		data["message"] = "Design iteration queued"
		c.JSON(http.StatusAccepted, gin.H{"success": true, "data": data})
		return
	}

	result := designer.ProcessIteration(generationContext(c), iteration.ID)
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"data":         data,
		"responseData": result,
	})
}
