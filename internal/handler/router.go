package handler

import (
	"net/http"

	"insta-iq-go/internal/middleware"
	"insta-iq-go/internal/service"
	"insta-iq-go/pkg/errs"
	"insta-iq-go/pkg/log"
	"insta-iq-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// Services 汇总路由依赖的服务。
type Services struct {
	Ingestion service.IngestionService
	Query     service.QueryService
	Chat      service.ChatService
	JWT       *token.JWTManager
}

// recoverPanic 记录 panic 并返回统一的错误体，不向客户端暴露堆栈。
func recoverPanic(c *gin.Context, recovered interface{}) {
	log.Errorf("[Router] panic: %v, path: %s", recovered, c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errs.UnexpectedMessage})
}

// NewRouter 创建 Gin 引擎并注册全部路由。
func NewRouter(s Services) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.CustomRecovery(recoverPanic))

	legacy := NewLegacyHandler(s.Ingestion, s.Query)
	r.POST("/process_data", legacy.ProcessData)
	r.POST("/process_query", legacy.ProcessQuery)

	r.GET("/", Index)
	r.GET("/healthz", Healthz)

	chat := NewChatHandler(s.Chat, s.JWT)
	r.GET("/chat/:token", chat.Handle)

	apiV1 := r.Group("/api/v1")
	{
		ingestion := NewIngestionHandler(s.Ingestion)
		apiV1.POST("/ingestions", ingestion.Create)
		apiV1.GET("/ingestions", ingestion.List)
		apiV1.GET("/ingestions/:runId", ingestion.Get)

		apiV1.POST("/queries", NewQueryHandler(s.Query).Query)

		apiV1.GET("/chat/token", chat.IssueToken)
		conversation := apiV1.Group("/chat/history")
		conversation.Use(middleware.SessionAuth(s.JWT))
		{
			h := NewConversationHandler(s.Chat)
			conversation.GET("", h.GetHistory)
			conversation.DELETE("", h.Reset)
		}
	}
	return r
}
