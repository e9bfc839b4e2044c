package middlewares

import (
	"net/http"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the session token to a username via redis.
// Requests without a token pass through anonymously; a token that redis does
// not recognize is rejected. Platform admins carry an extra redis flag which
// lifts tenant scoping for the request.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUsernameInContext(ctx, username)
		if flag, ok, _ := config.GetRedisValue("Admin:" + username); ok && flag == "true" {
			ctx = utils.SetIsAdminInContext(ctx, true)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
