package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"insta-iq-go/internal/model"
	"insta-iq-go/internal/service"
	"insta-iq-go/pkg/errs"
	"insta-iq-go/pkg/log"
	"insta-iq-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责签发会话 token 并处理 WebSocket 聊天连接。
type ChatHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{chatService: chatService, jwtManager: jwtManager}
}

// IssueToken 签发一个新的聊天会话 token。
func (h *ChatHandler) IssueToken(c *gin.Context) {
	tok, sessionID, err := h.jwtManager.IssueSession()
	if err != nil {
		abortV1(c, "ChatHandler", errs.Runtime("Failed to issue a session token", err))
		return
	}
	ok(c, gin.H{"token": tok, "sessionId": sessionID})
}

// controlMessage 是客户端发送的 JSON 控制消息：{"type":"stop"}、{"type":"reset"} 或 {"type":"message","content":"..."}。
type controlMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// connWriter 串行化对同一连接的写入。
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

func (w *connWriter) writeJSON(v interface{}) {
	b, _ := json.Marshal(v)
	_ = w.WriteMessage(websocket.TextMessage, b)
}

// Handle 处理一个 WebSocket 连接。读循环处理控制消息，问题交给单独的 goroutine 按顺序回答，
// 因此回答过程中仍能收到 stop。
func (h *ChatHandler) Handle(c *gin.Context) {
	sessionID, err := h.jwtManager.VerifySession(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Invalid or expired session token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("[ChatHandler] WebSocket 连接已建立，会话: %s", sessionID)

	ws := &connWriter{conn: conn}
	ctx := c.Request.Context()
	var stopped atomic.Bool
	questions := make(chan string, 8)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for q := range questions {
			stopped.Store(false)
			if err := h.chatService.StreamResponse(ctx, sessionID, q, ws, stopped.Load); err != nil {
				log.Errorf("[ChatHandler] 处理流式响应失败: %v", err)
				ws.writeJSON(map[string]string{"error": errs.MessageOf(err)})
				ws.writeJSON(statusFrame("completion", "Response completed"))
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("[ChatHandler] 从 WebSocket 读取消息失败: %v", err)
			}
			break
		}

		text := string(message)
		var ctrl controlMessage
		if strings.HasPrefix(strings.TrimSpace(text), "{") && json.Unmarshal(message, &ctrl) == nil {
			switch ctrl.Type {
			case "stop":
				stopped.Store(true)
				ws.writeJSON(statusFrame("stop", "Response stopped"))
				continue
			case "reset":
				if err := h.chatService.Reset(ctx, sessionID); err != nil {
					ws.writeJSON(map[string]string{"error": errs.MessageOf(err)})
					continue
				}
				ws.writeJSON(statusFrame("reset", "Session reset"))
				continue
			case "message":
				text = ctrl.Content
			}
		}

		select {
		case questions <- text:
		default:
			ws.writeJSON(map[string]string{"error": "Too many pending messages, please wait for the current answer."})
		}
	}

	close(questions)
	<-done
	log.Infof("[ChatHandler] WebSocket 连接已关闭，会话: %s", sessionID)
}

func statusFrame(kind, message string) map[string]interface{} {
	now := time.Now()
	return map[string]interface{}{
		"type":      kind,
		"message":   message,
		"timestamp": now.UnixMilli(),
		"date":      now.Format(model.DateLayout),
	}
}
