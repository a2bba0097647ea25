// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"radvision-go/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

// 近期对话在 Redis 中的保留策略：最多 20 条、7 天过期。
// 会话记录本身才是对话的事实来源，这里只是中继上下文的快取。
const (
	historyMaxMessages = 20
	historyTTL         = 7 * 24 * time.Hour
)

// ChatHistoryRepository 定义了会话近期对话缓存的操作接口。
type ChatHistoryRepository interface {
	GetRecentMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	AppendMessages(ctx context.Context, sessionID string, messages []model.ChatMessage) error
	Clear(ctx context.Context, sessionID string) error
}

type redisChatHistoryRepository struct {
	redisClient *redis.Client
}

// NewChatHistoryRepository 创建一个新的 ChatHistoryRepository 实例。
func NewChatHistoryRepository(redisClient *redis.Client) ChatHistoryRepository {
	return &redisChatHistoryRepository{redisClient: redisClient}
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:history", sessionID)
}

// GetRecentMessages 从 Redis 获取会话的近期对话消息。
func (r *redisChatHistoryRepository) GetRecentMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	jsonData, err := r.redisClient.Get(ctx, historyKey(sessionID)).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil // No history yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}
	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(jsonData), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat history: %w", err)
	}
	return messages, nil
}

// AppendMessages 将新消息追加到缓存中，超出上限时只保留最近的消息。
func (r *redisChatHistoryRepository) AppendMessages(ctx context.Context, sessionID string, messages []model.ChatMessage) error {
	history, err := r.GetRecentMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	history = append(history, messages...)
	if len(history) > historyMaxMessages {
		history = history[len(history)-historyMaxMessages:]
	}
	jsonData, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	if err := r.redisClient.Set(ctx, historyKey(sessionID), jsonData, historyTTL).Err(); err != nil {
		return fmt.Errorf("failed to set chat history: %w", err)
	}
	return nil
}

// Clear 删除会话的对话缓存。
func (r *redisChatHistoryRepository) Clear(ctx context.Context, sessionID string) error {
	return r.redisClient.Del(ctx, historyKey(sessionID)).Err()
}
