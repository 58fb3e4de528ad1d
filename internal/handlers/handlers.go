package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/internal/services"
	"github.com/appnity/bannerstudio-backend/internal/validation"
	"github.com/appnity/bannerstudio-backend/pkg/errors"
)

var (
	designer *services.Designer
	// jobs is nil when generation runs inline in the request.
	jobs *services.JobQueue
)

// Setup wires the services the handlers call. A nil queue means designs are
// generated inside the request.
func Setup(d *services.Designer, q *services.JobQueue) {
	designer = d
	jobs = q
}

func invalidRequest(c *gin.Context, err error) {
	c.Error(errors.ErrInvalidRequest.WithDetails(validation.Details(err)))
}
