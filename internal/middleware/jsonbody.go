package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/response"
)

// RequireJSONBody rejects mutating requests whose body is not declared as
// JSON. Bodyless requests pass through.
func RequireJSONBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		if c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		contentType := c.ContentType()
		if contentType == "" || !strings.EqualFold(contentType, "application/json") {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "request body must be application/json"))
			c.Abort()
			return
		}
		c.Next()
	}
}
