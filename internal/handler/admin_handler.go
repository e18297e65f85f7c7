package handler

import (
	"strconv"

	"biostats-go/internal/dto"
	"biostats-go/internal/repository"
	"biostats-go/internal/service"
	"biostats-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler 管理员处理器：用户管理、目录和数据集内容导入
type AdminHandler struct {
	userRepo *repository.UserRepository
	catalog  *service.CatalogService
	datasets *service.DatasetService
	hub      *service.HubService
}

// NewAdminHandler 创建管理员处理器
func NewAdminHandler(
	userRepo *repository.UserRepository,
	catalog *service.CatalogService,
	datasets *service.DatasetService,
	hub *service.HubService,
) *AdminHandler {
	return &AdminHandler{
		userRepo: userRepo,
		catalog:  catalog,
		datasets: datasets,
		hub:      hub,
	}
}

// ListUsers 获取所有用户
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	users, total, err := h.userRepo.List(offset, perPage)
	if err != nil {
		utils.InternalError(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, users, total, page, perPage)
}

// DeleteUser 删除用户
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "无效的用户ID")
		return
	}

	if err := h.userRepo.Delete(uint(id)); err != nil {
		utils.InternalError(c, err.Error())
		return
	}

	utils.SuccessWithMessage(c, "用户已删除", gin.H{"success": true})
}

// ImportCatalog 导入YAML目录清单，支持 multipart 的 file 字段或原始请求体
// @Router /api/admin/catalog/import [post]
func (h *AdminHandler) ImportCatalog(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		utils.BadRequest(c, "读取清单失败: "+err.Error())
		return
	}
	if len(data) == 0 {
		utils.BadRequest(c, "清单内容为空")
		return
	}

	summary, err := h.catalog.ImportManifest(data)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "目录导入成功", summary)
}

// UploadSplit 上传JSONL替换一个划分的记录
// @Router /api/admin/datasets/{name}/configs/{config}/splits/{split} [post]
func (h *AdminHandler) UploadSplit(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		utils.BadRequest(c, "读取文件失败: "+err.Error())
		return
	}

	result, err := h.datasets.ImportSplitJSONL(c.Param("name"), c.Param("config"), c.Param("split"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "文件上传成功", result)
}

// HubImport 从远程仓库导入数据集
// @Router /api/admin/hub/import [post]
func (h *AdminHandler) HubImport(c *gin.Context) {
	var req dto.HubImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	result, err := h.hub.ImportDataset(c.Request.Context(), req.Dataset)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "导入完成", result)
}

// DeleteDataset 删除数据集及其内容
// @Router /api/admin/datasets/{name} [delete]
func (h *AdminHandler) DeleteDataset(c *gin.Context) {
	if err := h.catalog.DeleteDataset(c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "数据集已删除", gin.H{"success": true})
}
