package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/appnity/bannerstudio-backend/pkg/errors"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

// ErrorBody renders the {success:false} envelope for an AppError.
func ErrorBody(appErr *errors.AppError) gin.H {
	body := gin.H{
		"success": false,
		"error":   appErr.Message,
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	return body
}

func abortWithError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.Code, ErrorBody(appErr))
}

// ErrorHandlerMiddleware handles errors and panics
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stack).
					Msg("Panic recovered")

				abortWithError(c, errors.ErrInternalServer)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if appErr, ok := errors.As(err); ok {
			if appErr.Code >= http.StatusInternalServerError {
				logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
			}
			c.JSON(appErr.Code, ErrorBody(appErr))
			return
		}

		logger.Error().Err(err).Msg("Unhandled request error")
		c.JSON(http.StatusInternalServerError, ErrorBody(errors.ErrInternalServer))
	}
}
