package handler

import (
	"biostats-go/internal/dto"
	"biostats-go/internal/service"
	"biostats-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// CatalogHandler 数据集目录处理器
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler 创建目录处理器
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListDatasets 数据集选择器选项
// @Router /api/datasets [get]
func (h *CatalogHandler) ListDatasets(c *gin.Context) {
	names, err := h.catalog.DatasetNames()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, dto.DatasetOptions{Datasets: names})
}

// GetDataset 数据集描述信息
// @Router /api/datasets/{name} [get]
func (h *CatalogHandler) GetDataset(c *gin.Context) {
	info, err := h.catalog.DatasetInfo(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, info)
}

// ListConfigs 某个数据集的配置选择器选项
// @Router /api/datasets/{name}/configs [get]
func (h *CatalogHandler) ListConfigs(c *gin.Context) {
	name := c.Param("name")
	helpers, err := h.catalog.ForDataset(name)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.ConfigOptions{Dataset: name, Configs: make([]dto.ConfigOption, 0, len(helpers))}
	for _, helper := range helpers {
		resp.Configs = append(resp.Configs, dto.ConfigOption{
			Name:   helper.ConfigName,
			Schema: helper.Schema.Tag(),
		})
	}
	utils.SuccessResponse(c, resp)
}
