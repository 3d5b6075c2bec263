// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"insta-iq-go/pkg/errs"
	"insta-iq-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// statusOf 把错误类别映射为 HTTP 状态码：invalid-input → 400，其余 → 500。
func statusOf(err error) int {
	if errs.KindOf(err) == errs.KindInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// abortLegacy 以 {"error": msg} 响应，供旧版接口使用。未分类错误只返回通用提示，细节写入日志。
func abortLegacy(c *gin.Context, component string, err error) {
	log.Errorf("[%s] %v", component, err)
	c.JSON(statusOf(err), gin.H{"error": errs.MessageOf(err)})
}

// abortV1 以 {"code","message","data"} 信封响应。
func abortV1(c *gin.Context, component string, err error) {
	log.Errorf("[%s] %v", component, err)
	status := statusOf(err)
	c.JSON(status, gin.H{"code": status, "message": errs.MessageOf(err), "data": nil})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}
