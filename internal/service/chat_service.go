// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"radvision-go/internal/config"
	"radvision-go/internal/model"
	"radvision-go/internal/repository"
	"radvision-go/pkg/chatrelay"
	"radvision-go/pkg/log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ChatService 定义了会话追问（聊天中继）的接口。
type ChatService interface {
	// StreamResponse 针对指定会话将用户问题中继给外部对话服务，
	// 并把流式回答写入 writer；完整回答落库到会话记录。
	// writer 必须自行保证写入的并发安全，本方法不加锁。
	StreamResponse(ctx context.Context, sessionID, query string, writer chatrelay.MessageWriter, shouldStop func() bool) error
}

type chatService struct {
	relayClient chatrelay.Client
	relayCfg    config.ChatRelayConfig
	sessionRepo repository.SessionRepository
	historyRepo repository.ChatHistoryRepository
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	relayClient chatrelay.Client,
	relayCfg config.ChatRelayConfig,
	sessionRepo repository.SessionRepository,
	historyRepo repository.ChatHistoryRepository,
) ChatService {
	return &chatService{
		relayClient: relayClient,
		relayCfg:    relayCfg,
		sessionRepo: sessionRepo,
		historyRepo: historyRepo,
	}
}

// StreamResponse 协调会话上下文加载、中继调用和对话落库。
func (s *chatService) StreamResponse(ctx context.Context, sessionID, query string, writer chatrelay.MessageWriter, shouldStop func() bool) error {
	// 1. 加载会话，系统提示词以其诊断结论为上下文
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	systemMsg := s.buildSystemMessage(session)

	// 2. 加载近期对话历史（缓存缺失时降级为空历史）
	history, err := s.historyRepo.GetRecentMessages(ctx, sessionID)
	if err != nil {
		log.Errorf("Failed to load chat history: %v", err)
		history = []model.ChatMessage{}
	}
	messages := composeMessages(systemMsg, history, query)

	// 拦截 writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{inner: writer, answer: answerBuilder, shouldStop: shouldStop}

	// 3. 调用中继客户端流式下发回答
	if err := s.relayClient.StreamChat(ctx, messages, nil, interceptor); err != nil {
		return err
	}

	// 4. 发送完成通知，并将对话写入会话记录与缓存
	sendCompletion(writer)
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 使用后台上下文：即使原始请求被取消，也要保存已成功生成的答案
		if err := s.appendExchange(context.Background(), session, query, fullAnswer); err != nil {
			// 只记录错误，不返回给客户端，因为流式响应已经成功
			log.Errorf("Failed to save chat exchange: %v", err)
		}
	}

	return nil
}

// buildSystemMessage 用会话的诊断结论拼装系统提示词。
func (s *chatService) buildSystemMessage(session *model.ChatSession) string {
	var sys strings.Builder
	if rules := s.relayCfg.Prompt.Rules; rules != "" {
		sys.WriteString(rules)
		sys.WriteString("\n\n")
	}
	sys.WriteString("本次会话的诊断上下文：\n")
	if session.Result != nil {
		if len(session.Result.Top5Diseases) > 0 {
			sys.WriteString("Top5 预测：")
			for i, p := range session.Result.Top5Diseases {
				if i > 0 {
					sys.WriteString("、")
				}
				sys.WriteString(fmt.Sprintf("%s(%.2f)", p.Disease, p.Confidence))
			}
			sys.WriteString("\n")
		}
		if session.Result.ConciseConclusion != "" {
			sys.WriteString("简要结论：" + session.Result.ConciseConclusion + "\n")
		}
		if session.Result.ComprehensiveAnalysis != "" {
			sys.WriteString("详细分析：" + session.Result.ComprehensiveAnalysis + "\n")
		}
	} else {
		sys.WriteString("（本会话暂无诊断结果）\n")
	}
	return sys.String()
}

func composeMessages(systemMsg string, history []model.ChatMessage, userInput string) []chatrelay.Message {
	msgs := make([]chatrelay.Message, 0, len(history)+2)
	msgs = append(msgs, chatrelay.Message{Role: "system", Content: systemMsg})
	for _, m := range history {
		msgs = append(msgs, chatrelay.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, chatrelay.Message{Role: "user", Content: userInput})
	return msgs
}

// appendExchange 把一轮问答追加到会话记录（事实来源）和 Redis 缓存。
func (s *chatService) appendExchange(ctx context.Context, session *model.ChatSession, question, answer string) error {
	now := time.Now()
	exchange := []model.ChatMessage{
		{Role: "user", Content: question, Timestamp: now},
		{Role: "assistant", Content: answer, Timestamp: now},
	}

	updated := append(session.Messages, exchange...)
	if err := s.sessionRepo.UpdateMessages(session.ID, updated); err != nil {
		return fmt.Errorf("failed to update session messages: %w", err)
	}

	if err := s.historyRepo.AppendMessages(ctx, session.ID, exchange); err != nil {
		// 缓存失败不致命，下一轮会从空历史重建
		log.Warnf("Failed to append chat history cache, sessionID: %s, error: %v", session.ID, err)
	}
	return nil
}

// wsWriterInterceptor 是对下游 writer 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	inner      chatrelay.MessageWriter
	answer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 chatrelay.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.answer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.inner.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(writer chatrelay.MessageWriter) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = writer.WriteMessage(websocket.TextMessage, b)
}
