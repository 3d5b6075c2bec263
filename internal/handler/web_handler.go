package handler

import (
	"net/http"

	"insta-iq-go/internal/web"

	"github.com/gin-gonic/gin"
)

// Index 返回内嵌的聊天界面。
func Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML())
}

// Healthz 用于存活探测。
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
