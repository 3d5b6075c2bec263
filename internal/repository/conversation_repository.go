package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"insta-iq-go/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	// DefaultHistoryLimit 是每个会话保留的最大消息数。
	DefaultHistoryLimit = 20
	// HistoryTTL 是会话历史在 Redis 中的过期时间。
	HistoryTTL = 7 * 24 * time.Hour
)

// ConversationRepository 定义了聊天会话历史的操作接口，以会话 id 为键。
type ConversationRepository interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	// AppendHistory 追加消息并只保留最近 limit 条。
	AppendHistory(ctx context.Context, sessionID string, messages ...model.ChatMessage) error
	ClearHistory(ctx context.Context, sessionID string) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
	limit       int
}

// NewConversationRepository 创建基于 Redis 的 ConversationRepository。limit 非正数时使用默认值。
func NewConversationRepository(redisClient *redis.Client, limit int) ConversationRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &redisConversationRepository{redisClient: redisClient, limit: limit}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("chat:session:%s", sessionID)
}

// GetHistory 从 Redis 获取会话历史。
func (r *redisConversationRepository) GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	jsonData, err := r.redisClient.Get(ctx, conversationKey(sessionID)).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(jsonData), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return messages, nil
}

// AppendHistory 读取、追加并整体写回，同时刷新过期时间。
func (r *redisConversationRepository) AppendHistory(ctx context.Context, sessionID string, messages ...model.ChatMessage) error {
	history, err := r.GetHistory(ctx, sessionID)
	if err != nil {
		return err
	}
	history = trimHistory(append(history, messages...), r.limit)
	jsonData, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	if err := r.redisClient.Set(ctx, conversationKey(sessionID), jsonData, HistoryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set conversation history: %w", err)
	}
	return nil
}

// ClearHistory 删除会话历史。
func (r *redisConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	if err := r.redisClient.Del(ctx, conversationKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation history: %w", err)
	}
	return nil
}

// memoryConversationRepository 在未配置 Redis 时使用，进程重启后历史丢失。
type memoryConversationRepository struct {
	mu       sync.Mutex
	limit    int
	sessions map[string][]model.ChatMessage
}

// NewMemoryConversationRepository 创建进程内的 ConversationRepository。
func NewMemoryConversationRepository(limit int) ConversationRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &memoryConversationRepository{limit: limit, sessions: make(map[string][]model.ChatMessage)}
}

func (r *memoryConversationRepository) GetHistory(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := r.sessions[sessionID]
	out := make([]model.ChatMessage, len(history))
	copy(out, history)
	return out, nil
}

func (r *memoryConversationRepository) AppendHistory(_ context.Context, sessionID string, messages ...model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := append(r.sessions[sessionID], messages...)
	r.sessions[sessionID] = trimHistory(history, r.limit)
	return nil
}

func (r *memoryConversationRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func trimHistory(history []model.ChatMessage, limit int) []model.ChatMessage {
	if len(history) > limit {
		trimmed := make([]model.ChatMessage, limit)
		copy(trimmed, history[len(history)-limit:])
		return trimmed
	}
	return history
}
