package handler

import (
	"errors"
	"net/http"

	"radvision-go/internal/model"
	"radvision-go/internal/service"
	"radvision-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// TemplateHandler 负责处理报告模板相关的 API 请求。
type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler 创建一个新的 TemplateHandler 实例。
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// TemplateRequest 定义了创建与更新报告模板的请求体结构。
type TemplateRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Create 创建一个归属于当前用户的报告模板。
func (h *TemplateHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	template := &model.ReportTemplate{Name: req.Name, Content: req.Content, UserID: user.ID}
	if err := h.templateService.Create(template); err != nil {
		log.Error("Create: failed to create template", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建报告模板失败"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "data": template})
}

// List 返回当前用户的全部报告模板。
func (h *TemplateHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}

	templates, err := h.templateService.ListByUser(user.ID)
	if err != nil {
		log.Error("List: failed to list templates", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取报告模板失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": templates})
}

// Get 返回指定 id 的报告模板。
func (h *TemplateHandler) Get(c *gin.Context) {
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

	template, err := h.templateService.Get(id, user.ID)
	if err != nil {
		h.writeError(c, err, "获取报告模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": template})
}

// Update 更新指定 id 的报告模板。
func (h *TemplateHandler) Update(c *gin.Context) {
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

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	template := &model.ReportTemplate{ID: id, Name: req.Name, Content: req.Content, UserID: user.ID}
	if err := h.templateService.Update(template, user.ID); err != nil {
		h.writeError(c, err, "更新报告模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": template})
}

// Delete 删除指定 id 的报告模板。
func (h *TemplateHandler) Delete(c *gin.Context) {
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

	if err := h.templateService.Delete(id, user.ID); err != nil {
		h.writeError(c, err, "删除报告模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功"})
}

func (h *TemplateHandler) writeError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, service.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": "无权访问该资源"})
		return
	}
	log.Error("template handler error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
