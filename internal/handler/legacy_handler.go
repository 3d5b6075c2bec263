package handler

import (
	"fmt"
	"net/http"

	"insta-iq-go/internal/service"
	"insta-iq-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// LegacyHandler 保留最初的两个接口：/process_data 与 /process_query。
type LegacyHandler struct {
	ingestionService service.IngestionService
	queryService     service.QueryService
}

// NewLegacyHandler 创建一个新的 LegacyHandler。
func NewLegacyHandler(ingestionService service.IngestionService, queryService service.QueryService) *LegacyHandler {
	return &LegacyHandler{ingestionService: ingestionService, queryService: queryService}
}

// ProcessDataRequest 是 /process_data 的请求体。
type ProcessDataRequest struct {
	InstagramID string `json:"instagram_id"`
}

// ProcessData 同步导入一个 profile。
func (h *LegacyHandler) ProcessData(c *gin.Context) {
	var req ProcessDataRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.InstagramID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Instagram ID is required."})
		return
	}

	result, err := h.ingestionService.Ingest(c.Request.Context(), req.InstagramID)
	if err != nil {
		abortLegacy(c, "LegacyHandler", err)
		return
	}
	log.Infof("[LegacyHandler] profile %s 导入完成, 写入 %d 条", result.Profile, result.Upload.Inserted)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Data processed successfully for Instagram ID %s.", req.InstagramID)})
}

// ProcessQueryRequest 是 /process_query 的请求体。
type ProcessQueryRequest struct {
	Query string `json:"query"`
}

// ProcessQuery 查询网关并返回完整响应与提取出的答案。
func (h *LegacyHandler) ProcessQuery(c *gin.Context) {
	var req ProcessQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query string is required."})
		return
	}

	resp, err := h.queryService.Query(c.Request.Context(), req.Query)
	if err != nil {
		abortLegacy(c, "LegacyHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": resp.Raw, "message": resp.Text})
}
