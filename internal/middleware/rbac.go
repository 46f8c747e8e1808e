package middleware

import (
	"net/http"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// RequireRole checks that the staff JWT carries one of the given roles.
func RequireRole(roles ...model.StaffRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
	}
}
