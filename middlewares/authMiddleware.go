package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hearthbank/family_backend/utils"
)

// AuthMiddleware requires a valid bearer access token and stores the principal in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		bearer := "Bearer "
		if len(auth) <= len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token := strings.TrimSpace(auth[len(bearer):])

		claims, err := utils.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetPrincipalInContext(ctx, utils.Principal{
			UserId:  claims.ID,
			GroupId: claims.GroupId,
			Role:    claims.Role,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CtxPrincipal returns the caller placed by AuthMiddleware.
func CtxPrincipal(c *gin.Context) (utils.Principal, bool) {
	return utils.GetPrincipalFromContext(c.Request.Context())
}
