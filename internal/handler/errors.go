package handler

import (
	"context"
	"errors"
	"io"

	"biostats-go/internal/service"
	"biostats-go/internal/stats"
	"biostats-go/internal/utils"
	"biostats-go/pkg/hub_client"
	"biostats-go/pkg/redis_limiter"

	"github.com/gin-gonic/gin"
)

// maxUploadSize 上传内容大小上限
const maxUploadSize = 512 << 20

// respondError 将服务层错误映射为统一响应
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDatasetNotFound),
		errors.Is(err, service.ErrConfigNotFound),
		errors.Is(err, stats.ErrCounterNotFound),
		errors.Is(err, stats.ErrSplitNotFound),
		errors.Is(err, hub_client.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrNotFetched),
		errors.Is(err, service.ErrInvalidManifest),
		errors.Is(err, service.ErrHubDisabled),
		errors.Is(err, utils.ErrValidation),
		errors.Is(err, utils.ErrMalformedJSONL):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, stats.ErrMissingField),
		errors.Is(err, stats.ErrMalformedRecord):
		utils.Unprocessable(c, err.Error())
	case errors.Is(err, redis_limiter.ErrLimitReached),
		errors.Is(err, context.DeadlineExceeded):
		utils.ServiceUnavailable(c, err.Error())
	case errors.Is(err, context.Canceled):
		// 客户端已断开，不再写响应
		c.Abort()
	default:
		utils.InternalError(c, err.Error())
	}
}

// readUpload 读取 multipart 的 file 字段，没有时读取请求体
func readUpload(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return io.ReadAll(io.LimitReader(src, maxUploadSize))
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, maxUploadSize))
}
