package handler

import (
	"insta-iq-go/internal/middleware"
	"insta-iq-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理聊天会话历史的 REST 请求，需要 SessionAuth 中间件。
type ConversationHandler struct {
	chatService service.ChatService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(chatService service.ChatService) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

// GetHistory 返回当前会话的历史消息。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	history, err := h.chatService.History(c.Request.Context(), c.GetString(middleware.SessionIDKey))
	if err != nil {
		abortV1(c, "ConversationHandler", err)
		return
	}
	ok(c, history)
}

// Reset 清空当前会话的历史消息。
func (h *ConversationHandler) Reset(c *gin.Context) {
	if err := h.chatService.Reset(c.Request.Context(), c.GetString(middleware.SessionIDKey)); err != nil {
		abortV1(c, "ConversationHandler", err)
		return
	}
	ok(c, nil)
}
