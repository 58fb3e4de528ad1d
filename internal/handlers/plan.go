package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/appnity/bannerstudio-backend/pkg/errors"
)

const maxPlanPromptBytes = 1 << 20

// GenerateJSONPlan handles POST /api/generate-json-plan. The body is either
// raw text or a JSON object with a "prompt" string.
func GenerateJSONPlan(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPlanPromptBytes))
	if err != nil {
		c.Error(apperrors.BadRequest("Prompt missing or invalid"))
		return
	}

	prompt := string(body)
	if strings.Contains(c.ContentType(), "json") {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			c.Error(apperrors.BadRequest("Prompt missing or invalid"))
			return
		}
		prompt = req.Prompt
	}
	if strings.TrimSpace(prompt) == "" {
		c.Error(apperrors.BadRequest("Prompt missing or invalid"))
		return
	}

	if designer.Planner == nil {
		c.Error(apperrors.Internal("planner not configured"))
		return
	}

	generated, err := designer.Planner.PlanJSON(generationContext(c), prompt)
	if err != nil {
		c.Error(apperrors.Wrap(http.StatusInternalServerError, "Internal server error", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "generatedJson": generated})
}
