package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"evoting-backend/auth"
	"evoting-backend/models"
)

// gin上下文键
const (
	ContextUsername = "username"
	ContextRole     = "role"
)

// AuthRequired 认证中间件
// 从Authorization头解析Bearer令牌，解析出的用户名和角色写入上下文
func AuthRequired(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing auth token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing auth token"})
			return
		}

		claims, err := tokens.Resolve(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is invalid or expired"})
			return
		}

		c.Set(ContextUsername, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// AdminRequired 管理员授权中间件，必须位于AuthRequired之后
// 管理员身份由用户role属性决定，不依赖固定的用户名
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
			return
		}
		c.Next()
	}
}
