package handler

import (
	"net/http"
	"strconv"

	"insta-iq-go/internal/service"
	"insta-iq-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// IngestionHandler 处理 /api/v1/ingestions 相关请求。
type IngestionHandler struct {
	ingestionService service.IngestionService
}

// NewIngestionHandler 创建一个新的 IngestionHandler。
func NewIngestionHandler(ingestionService service.IngestionService) *IngestionHandler {
	return &IngestionHandler{ingestionService: ingestionService}
}

// CreateIngestionRequest 是创建导入的请求体。
type CreateIngestionRequest struct {
	Profile string `json:"profile"`
	Async   bool   `json:"async"`
}

// Create 同步导入，或在 async=true 时入队并返回 202。
func (h *IngestionHandler) Create(c *gin.Context) {
	var req CreateIngestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid request body", "data": nil})
		return
	}
	log.Infof("[IngestionHandler] 收到导入请求, profile: %s, async: %t", req.Profile, req.Async)

	if req.Async {
		run, err := h.ingestionService.Enqueue(c.Request.Context(), req.Profile)
		if err != nil {
			abortV1(c, "IngestionHandler", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "message": "queued", "data": run})
		return
	}

	result, err := h.ingestionService.Ingest(c.Request.Context(), req.Profile)
	if err != nil {
		abortV1(c, "IngestionHandler", err)
		return
	}
	ok(c, result)
}

// Get 返回单条导入记录。
func (h *IngestionHandler) Get(c *gin.Context) {
	run, err := h.ingestionService.GetRun(c.Param("runId"))
	if err != nil {
		abortV1(c, "IngestionHandler", err)
		return
	}
	ok(c, run)
}

// List 返回最近的导入记录，可按 profile 过滤。
func (h *IngestionHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultRunListLimit)))
	if err != nil || limit <= 0 {
		limit = service.DefaultRunListLimit
	}
	runs, err := h.ingestionService.ListRuns(c.Query("profile"), limit)
	if err != nil {
		abortV1(c, "IngestionHandler", err)
		return
	}
	ok(c, runs)
}
