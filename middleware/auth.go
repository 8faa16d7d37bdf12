package middleware

import (
	"net/http"
	"strings"

	"veilslot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CallerKey is the gin context key holding the authenticated wallet address.
const CallerKey = "callerAddress"

// JWTAuthMiddleware accepts a bearer token signed with secret and exposes its
// subject as the caller address.
func JWTAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		address, err := utils.ExtractAddressFromToken(secret, tokenString)
		if err != nil {
			zap.L().Debug("rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token"})
			return
		}

		c.Set(CallerKey, address)
		c.Next()
	}
}

// Caller returns the address set by JWTAuthMiddleware.
func Caller(c *gin.Context) string {
	return c.GetString(CallerKey)
}
