package middleware

import (
	"net/http"
	"strings"

	"insta-iq-go/pkg/log"
	"insta-iq-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// SessionIDKey 是会话 id 在 Gin 上下文中的键。
const SessionIDKey = "sessionID"

// SessionAuth 从 Authorization: Bearer <token> 中验证聊天会话 token，并把会话 id 存入上下文。
func SessionAuth(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Missing Authorization header", "data": nil})
			return
		}
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Invalid Authorization header format", "data": nil})
			return
		}

		sessionID, err := jwtManager.VerifySession(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			log.Warnf("[SessionAuth] 会话 token 验证失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Invalid or expired session token", "data": nil})
			return
		}
		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}
