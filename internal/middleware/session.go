package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHeader 面板会话ID请求头
const SessionHeader = "X-Session-ID"

// Session 读取会话ID，缺失或格式错误时签发新的ID并通过响应头返回
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set("session_id", id)
		c.Header(SessionHeader, id)
		c.Next()
	}
}

// GetSessionID 从上下文获取会话ID
func GetSessionID(c *gin.Context) string {
	id, exists := c.Get("session_id")
	if !exists {
		return ""
	}
	return id.(string)
}
