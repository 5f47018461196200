// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"hackrx-go/internal/model"
	"hackrx-go/pkg/log"
	"hackrx-go/pkg/token"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// BearerAuth 创建一个 Gin 中间件，校验 Authorization: Bearer <token>。
// 校验失败时直接返回 401，后续处理函数不会执行。
func BearerAuth(verifier token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			unauthorized(c)
			return
		}
		if !verifier.Verify(strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))) {
			log.Warnf("[Auth] token 校验失败, path: %s, clientIP: %s", c.Request.URL.Path, c.ClientIP())
			unauthorized(c)
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid or missing token"})
}
