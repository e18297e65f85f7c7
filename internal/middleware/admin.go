package middleware

import (
	"biostats-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// RequireRole 只允许指定角色访问，需在 AuthMiddleware 之后使用
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[GetRole(c)] {
			utils.Forbidden(c, "权限不足")
			c.Abort()
			return
		}
		c.Next()
	}
}
