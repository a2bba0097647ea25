package handler

import (
	"errors"
	"net/http"
	"strconv"

	"radvision-go/internal/model"
	"radvision-go/internal/service"
	"radvision-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// PatientHandler 负责处理患者档案相关的 API 请求。
type PatientHandler struct {
	patientService service.PatientService
}

// NewPatientHandler 创建一个新的 PatientHandler 实例。
func NewPatientHandler(patientService service.PatientService) *PatientHandler {
	return &PatientHandler{patientService: patientService}
}

// PatientRequest 定义了创建与更新患者档案的请求体结构。
type PatientRequest struct {
	Name      string `json:"name" binding:"required"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birthDate"`
	Notes     string `json:"notes"`
	FolderID  *uint  `json:"folderId"`
}

// Create 创建一条归属于当前用户的患者档案。
func (h *PatientHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}

	var req PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	patient := &model.Patient{
		Name:      req.Name,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
		Notes:     req.Notes,
		FolderID:  req.FolderID,
		UserID:    user.ID,
	}
	if err := h.patientService.Create(patient); err != nil {
		log.Error("Create: failed to create patient", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建患者档案失败"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "data": patient})
}

// List 返回当前用户的全部患者档案。
func (h *PatientHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}

	patients, err := h.patientService.ListByUser(user.ID)
	if err != nil {
		log.Error("List: failed to list patients", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取患者档案失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": patients})
}

// Get 返回指定 id 的患者档案。
func (h *PatientHandler) Get(c *gin.Context) {
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

	patient, err := h.patientService.Get(id, user.ID)
	if err != nil {
		h.writeError(c, err, "获取患者档案失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": patient})
}

// Update 更新指定 id 的患者档案。
func (h *PatientHandler) Update(c *gin.Context) {
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

	var req PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	patient := &model.Patient{
		ID:        id,
		Name:      req.Name,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
		Notes:     req.Notes,
		FolderID:  req.FolderID,
		UserID:    user.ID,
	}
	if err := h.patientService.Update(patient, user.ID); err != nil {
		h.writeError(c, err, "更新患者档案失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": patient})
}

// Delete 删除指定 id 的患者档案。
func (h *PatientHandler) Delete(c *gin.Context) {
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

	if err := h.patientService.Delete(id, user.ID); err != nil {
		h.writeError(c, err, "删除患者档案失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功"})
}

func (h *PatientHandler) writeError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, service.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": "无权访问该资源"})
		return
	}
	log.Error("patient handler error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// parseUintParam 解析路径中的数字 id 参数。
func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
