package handler

import (
	"biostats-go/internal/dto"
	"biostats-go/internal/service"
	"biostats-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// IngestHandler 外部系统推送记录
type IngestHandler struct {
	datasets *service.DatasetService
}

// NewIngestHandler 创建推送处理器
func NewIngestHandler(datasets *service.DatasetService) *IngestHandler {
	return &IngestHandler{datasets: datasets}
}

// IngestRecords 在划分末尾追加记录
// @Router /api/ingest/records [post]
func (h *IngestHandler) IngestRecords(c *gin.Context) {
	var req dto.IngestRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	result, err := h.datasets.AppendRecords(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "记录已写入", result)
}
