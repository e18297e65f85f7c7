package handler

import (
	"fmt"
	"net/http"
	"time"

	"biostats-go/internal/dto"
	"biostats-go/internal/middleware"
	"biostats-go/internal/service"
	"biostats-go/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	// progressPollInterval SSE 轮询进度的间隔
	progressPollInterval = 500 * time.Millisecond
	// progressIdleTimeout 进度长时间没有变化时结束推送
	progressIdleTimeout = 30 * time.Second
)

// DashboardHandler 统计面板处理器
type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    *logrus.Logger
}

// NewDashboardHandler 创建统计面板处理器
func NewDashboardHandler(dashboard *service.DashboardService, logger *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// View 渲染当前会话的面板
// @Router /api/dashboard [get]
func (h *DashboardHandler) View(c *gin.Context) {
	view, err := h.dashboard.View(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, view)
}

// Select 修改数据集、配置或计数器选择
// @Router /api/dashboard/select [post]
func (h *DashboardHandler) Select(c *gin.Context) {
	var req dto.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	view, err := h.dashboard.Select(c.Request.Context(), middleware.GetSessionID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, view)
}

// Fetch 触发统计
// @Router /api/dashboard/fetch [post]
func (h *DashboardHandler) Fetch(c *gin.Context) {
	view, err := h.dashboard.Fetch(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "统计完成", view)
}

// Labels 标签计数表和柱状图
// @Router /api/dashboard/labels [get]
func (h *DashboardHandler) Labels(c *gin.Context) {
	var query dto.LabelsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	view, err := h.dashboard.Labels(c.Request.Context(), middleware.GetSessionID(c), &query)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, view)
}

// Progress 推送统计进度(SSE)，统计结束后关闭
// 连接建立之前就已结束的上一次统计不会推送
// @Router /api/dashboard/progress [get]
func (h *DashboardHandler) Progress(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if err := utils.StreamEvent(c, gin.H{"type": "connected", "session_id": sessionID}); err != nil {
		return
	}

	ctx := c.Request.Context()
	connected := time.Now()
	lastChange := connected
	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	var last service.ProgressState
	for {
		state, err := h.dashboard.Progress(ctx, sessionID)
		if err != nil {
			h.logger.WithError(err).WithField("session_id", sessionID).Warn("读取进度失败")
			return
		}
		if state != nil && *state != last {
			last = *state
			lastChange = time.Now()
			if !state.Finished || state.UpdatedAt.After(connected) {
				if err := utils.StreamEvent(c, state); err != nil {
					return
				}
				if state.Finished {
					return
				}
			}
		}
		if time.Since(lastChange) > progressIdleTimeout {
			return
		}

		select {
		case <-ctx.Done():
			h.logger.WithField("session_id", sessionID).Debug("客户端断开连接")
			return
		case <-ticker.C:
		}
	}
}

// ExportTokenLengths 导出token长度表为CSV
// @Router /api/dashboard/token_lengths.csv [get]
func (h *DashboardHandler) ExportTokenLengths(c *gin.Context) {
	table, helper, err := h.dashboard.TokenLengths(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	content, err := utils.ConvertToCSV(table.Columns(), table.Maps())
	if err != nil {
		utils.InternalError(c, "生成CSV失败: "+err.Error())
		return
	}

	utils.SetAttachment(c, fmt.Sprintf("%s_token_lengths.csv", helper.ConfigName))
	c.Data(200, "text/csv; charset=utf-8", content)
}

// ExportTokenLengthsJSONL 导出token长度表为JSONL，每行一个条目
// @Router /api/dashboard/token_lengths.jsonl [get]
func (h *DashboardHandler) ExportTokenLengthsJSONL(c *gin.Context) {
	table, helper, err := h.dashboard.TokenLengths(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SetAttachment(c, fmt.Sprintf("%s_token_lengths.jsonl", helper.ConfigName))
	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)
	if err := utils.WriteJSONLines(c.Writer, table.Maps()); err != nil {
		h.logger.WithError(err).Warn("写入JSONL失败")
	}
}
