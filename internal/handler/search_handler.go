package handler

import (
	"net/http"
	"strconv"

	"radvision-go/internal/service"
	"radvision-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 负责处理会话全文检索的 API 请求。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search 按关键词检索会话文档，支持 q 与可选的 size 查询参数。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少查询关键词 q"})
		return
	}

	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	docs, err := h.searchService.SearchSessions(c.Request.Context(), query, size)
	if err != nil {
		log.Errorf("Search: failed to search sessions, query: %s, error: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "检索失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": docs,
	})
}
