package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/model"
	"insta-iq-go/internal/repository"
	"insta-iq-go/pkg/errs"
	"insta-iq-go/pkg/llm"
	"insta-iq-go/pkg/log"

	"github.com/gorilla/websocket"
)

const (
	// ChatModeGateway 通过查询网关回答每条消息。
	ChatModeGateway = "gateway"
	// ChatModeLLM 直接把会话历史流式发送给 LLM。
	ChatModeLLM = "llm"
)

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	StreamResponse(ctx context.Context, sessionID, query string, ws llm.MessageWriter, shouldStop func() bool) error
	History(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	Reset(ctx context.Context, sessionID string) error
}

type chatService struct {
	cfg              config.ChatConfig
	queryService     QueryService
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
}

// NewChatService 创建一个新的 ChatService 实例。llm 模式需要 llmClient。
func NewChatService(cfg config.ChatConfig, queryService QueryService, llmClient llm.Client, conversationRepo repository.ConversationRepository) ChatService {
	if cfg.Mode == "" {
		cfg.Mode = ChatModeGateway
	}
	return &chatService{
		cfg:              cfg,
		queryService:     queryService,
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
	}
}

// StreamResponse 回答一条消息：分块以 {"chunk":"..."} 下发，结束时发送 completion 通知，并保存会话历史。
func (s *chatService) StreamResponse(ctx context.Context, sessionID, query string, ws llm.MessageWriter, shouldStop func() bool) error {
	if strings.TrimSpace(query) == "" {
		return errs.InvalidInput("Query string is required.")
	}

	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder, shouldStop: shouldStop}

	var err error
	switch s.cfg.Mode {
	case ChatModeLLM:
		err = s.streamFromLLM(ctx, sessionID, query, interceptor)
	case ChatModeGateway:
		err = s.answerFromGateway(ctx, query, interceptor)
	default:
		err = errs.Invalidf(nil, "Unsupported chat mode: %s", s.cfg.Mode)
	}
	if err != nil {
		return err
	}

	sendCompletion(ws)
	if fullAnswer := answerBuilder.String(); fullAnswer != "" {
		// 使用后台上下文，即使原始请求被取消也保存已生成的答案
		if err := s.addMessages(context.Background(), sessionID, query, fullAnswer); err != nil {
			log.Errorf("[ChatService] 保存会话历史失败: %v", err)
		}
	}
	return nil
}

func (s *chatService) answerFromGateway(ctx context.Context, query string, w llm.MessageWriter) error {
	resp, err := s.queryService.Query(ctx, query)
	if err != nil {
		return err
	}
	return w.WriteMessage(websocket.TextMessage, []byte(resp.Text))
}

func (s *chatService) streamFromLLM(ctx context.Context, sessionID, query string, w llm.MessageWriter) error {
	if s.llmClient == nil {
		return errs.InvalidInput("LLM chat mode requires llm.base_url to be set.")
	}
	history, err := s.conversationRepo.GetHistory(ctx, sessionID)
	if err != nil {
		log.Errorf("[ChatService] 加载会话历史失败: %v", err)
		history = []model.ChatMessage{}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: model.RoleSystem, Content: s.cfg.SystemPrompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: model.RoleUser, Content: query})

	if _, err := s.llmClient.StreamChatMessages(ctx, messages, w); err != nil {
		return errs.Runtime("The AI service is temporarily unavailable", err)
	}
	return nil
}

func (s *chatService) History(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	history, err := s.conversationRepo.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, errs.Runtime("Failed to load the chat history", err)
	}
	return history, nil
}

func (s *chatService) Reset(ctx context.Context, sessionID string) error {
	if err := s.conversationRepo.ClearHistory(ctx, sessionID); err != nil {
		return errs.Runtime("Failed to reset the chat session", err)
	}
	log.Infof("[ChatService] 会话 %s 已重置", sessionID)
	return nil
}

func (s *chatService) addMessages(ctx context.Context, sessionID, question, answer string) error {
	now := time.Now()
	return s.conversationRepo.AppendHistory(ctx, sessionID,
		model.ChatMessage{Role: model.RoleUser, Content: question, Timestamp: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: answer, Timestamp: now},
	)
}

// wsWriterInterceptor 捕获写入的分块，并包装为 JSON 下发。
type wsWriterInterceptor struct {
	conn       llm.MessageWriter
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	b, _ := json.Marshal(map[string]string{"chunk": string(data)})
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(ws llm.MessageWriter) {
	now := time.Now()
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "Response completed",
		"timestamp": now.UnixMilli(),
		"date":      now.Format(model.DateLayout),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
