package middleware

import (
    "errors"
    "net/http"
    "strings"

    "github.com/gin-gonic/gin"
    "github.com/golang-jwt/jwt/v5"

    "clipwave/internal/server/auth"
)

// JWTAuth Gin 中间件：验证 Bearer 令牌，将用户信息注入到 Context
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少 Authorization 头"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization 头格式错误"})
			return
		}
		tokenStr := strings.TrimSpace(parts[1])
		claims, err := auth.ParseAndValidate(tokenStr, secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "访问令牌已过期"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "访问令牌无效"})
			return
		}
		// 注入用户信息到上下文
		c.Set("uid", claims.UID)
		c.Set("nickname", claims.Nickname)
		c.Next()
	}
}

// JWTAuthFromHeaderOrQuery 宽松版：优先 Authorization 头，其次 token 查询参数
// 浏览器的 WebSocket API 无法自定义请求头，长连接端点用它兜底
func JWTAuthFromHeaderOrQuery(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.GetHeader("Authorization")
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少访问令牌"})
			return
		}
		claims, err := auth.ParseAndValidate(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "访问令牌无效"})
			return
		}
		c.Set("uid", claims.UID)
		c.Set("nickname", claims.Nickname)
		c.Next()
	}
}

// UIDFromContext 读取中间件注入的用户ID
func UIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get("uid")
	if !ok {
		return 0, false
	}
	uid, ok := v.(int64)
	return uid, ok
}
