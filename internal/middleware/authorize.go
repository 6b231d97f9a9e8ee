package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/rmaulana/school-notify-api/internal/models"
	"github.com/rmaulana/school-notify-api/internal/policy"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
	"github.com/rmaulana/school-notify-api/pkg/response"
)

// Authorize gates a route on the role policy table. Services re-check the
// same policy with ownership context; this stops disallowed roles before
// any handler work.
func Authorize(action policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if policy.Decide(claims.Role, action) == policy.Deny {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
