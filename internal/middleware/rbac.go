package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gradworks/pgdms-api/internal/models"
	"github.com/gradworks/pgdms-api/internal/service"
	appErrors "github.com/gradworks/pgdms-api/pkg/errors"
	"github.com/gradworks/pgdms-api/pkg/response"
)

// RequirePermission guards a route behind a permission key. The check derives
// from the caller's role alone, so role changes take effect on the next
// issued token without invalidating grants mid-session.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if !service.HasPermission(claims.Role, permission) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRoles restricts a route to an explicit role list.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
