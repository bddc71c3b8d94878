package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/utils"
)

func requestToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader("token")); token != "" {
		return token
	}
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// SessionMiddleware attaches the caller of a valid session token to the request context.
// Requests without a token pass through untouched.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestToken(c)
		if token == "" {
			c.Next()
			return
		}

		claim, err := utils.JwtValidate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		active, err := models.SessionActive(claim.Id)
		if err != nil {
			config.LogError(config.GetLogger(), "middlewares/sessionMiddleware.go", "SessionMiddleware", "check session", claim.ID, err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		if !active {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetOperatorInContext(ctx, claim.ID, claim.Name, claim.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
