package middleware

import (
	"crypto/subtle"

	"biostats-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// IngestAPIKeyHeader 记录写入接口的密钥请求头
const IngestAPIKeyHeader = "X-Ingest-API-Key"

// IngestAPIAuth 记录写入接口认证，未配置密钥时接口关闭
func IngestAPIAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			utils.Forbidden(c, "记录写入接口未启用")
			c.Abort()
			return
		}

		requestKey := c.GetHeader(IngestAPIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(requestKey), []byte(apiKey)) != 1 {
			utils.Unauthorized(c, "无效的写入密钥")
			c.Abort()
			return
		}

		c.Next()
	}
}
