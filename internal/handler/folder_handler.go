package handler

import (
	"errors"
	"net/http"

	"radvision-go/internal/model"
	"radvision-go/internal/service"
	"radvision-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// FolderHandler 负责处理患者档案文件夹相关的 API 请求。
type FolderHandler struct {
	folderService service.FolderService
}

// NewFolderHandler 创建一个新的 FolderHandler 实例。
func NewFolderHandler(folderService service.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

// FolderRequest 定义了创建与重命名文件夹的请求体结构。
type FolderRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create 创建一个归属于当前用户的文件夹。
func (h *FolderHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}

	var req FolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	folder := &model.Folder{Name: req.Name, UserID: user.ID}
	if err := h.folderService.Create(folder); err != nil {
		log.Error("Create: failed to create folder", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建文件夹失败"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "data": folder})
}

// List 返回当前用户的全部文件夹。
func (h *FolderHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}

	folders, err := h.folderService.ListByUser(user.ID)
	if err != nil {
		log.Error("List: failed to list folders", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取文件夹失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": folders})
}

// Rename 重命名指定 id 的文件夹。
func (h *FolderHandler) Rename(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 id"})
		return
	}

	var req FolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	if err := h.folderService.Rename(id, user.ID, req.Name); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "无权访问该资源"})
			return
		}
		log.Error("Rename: failed to rename folder", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重命名文件夹失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "重命名成功"})
}

// Delete 删除指定 id 的文件夹，其下患者档案保留但解除归属。
func (h *FolderHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 id"})
		return
	}

	if err := h.folderService.Delete(id, user.ID); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "无权访问该资源"})
			return
		}
		log.Error("Delete: failed to delete folder", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除文件夹失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功"})
}
