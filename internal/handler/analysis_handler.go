// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"
	"radvision-go/internal/service"
	"radvision-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler 负责处理 X 光分析相关的 API 请求。
type AnalysisHandler struct {
	analysisService service.AnalysisService
}

// NewAnalysisHandler 创建一个新的 AnalysisHandler 实例。
func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// Analyze 处理 X 光影像分析请求。
// 请求体为 multipart 表单：title（文本）+ image（影像文件）。
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 title 参数"})
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未能获取上传的影像"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取影像内容失败"})
		return
	}

	session, err := h.analysisService.AnalyzeAndCreate(c.Request.Context(), title, image)
	if err != nil {
		log.Error("Analyze: analysis pipeline failed", err)
		switch {
		case errors.Is(err, service.ErrEmptyImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "影像内容为空"})
		case errors.Is(err, service.ErrModelUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "诊断模型暂时不可用"})
		default:
			// 产物上传失败与会话持久化失败对调用方统一表现为创建失败
			c.JSON(http.StatusInternalServerError, gin.H{"error": "会话创建失败"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "分析完成",
		"data":    session,
	})
}
