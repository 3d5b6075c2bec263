package handler

import (
	"net/http"

	"insta-iq-go/internal/service"

	"github.com/gin-gonic/gin"
)

// QueryHandler 处理 /api/v1/queries。
type QueryHandler struct {
	queryService service.QueryService
}

// NewQueryHandler 创建一个新的 QueryHandler。
func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// QueryRequest 是查询请求体。
type QueryRequest struct {
	Query string `json:"query"`
}

// Query 返回提取出的答案与完整的网关响应。
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid request body", "data": nil})
		return
	}
	resp, err := h.queryService.Query(c.Request.Context(), req.Query)
	if err != nil {
		abortV1(c, "QueryHandler", err)
		return
	}
	ok(c, gin.H{"answer": resp.Text, "response": resp.Raw})
}
