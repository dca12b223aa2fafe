package middleware

import (
	"net/http"
	"strings"

	"catalogsync-backend/utils"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token := parts[1]
		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		if claims.MerchantID != nil {
			c.Set("merchant_id", *claims.MerchantID)
		}
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists || role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// MerchantMiddleware requires a merchant_id in the token. Catalog and import
// operations always run in the scope of one merchant.
func MerchantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("merchant_id"); !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "No merchant associated with this account"})
			c.Abort()
			return
		}
		c.Next()
	}
}
