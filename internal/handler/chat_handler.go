// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"sync"
	"sync/atomic"

	"radvision-go/internal/service"
	"radvision-go/pkg/log"
	"radvision-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// syncConnWriter 串行化对同一 WebSocket 连接的写入。
// gorilla/websocket 最多允许一个并发写入方，而读循环（拒绝并发提问）
// 和流式下发 goroutine 都会写这条连接，所有写操作必须经过这里。
type syncConnWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// WriteMessage 满足 chatrelay.MessageWriter 接口。
func (w *syncConnWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

// ChatHandler 负责处理会话追问的 WebSocket 连接。
type ChatHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		jwtManager:  jwtManager,
	}
}

// Handle 处理一个传入的 WebSocket 连接。
// 路由形如 /chat/:sessionId?token=...，认证通过后每条文本消息作为一个问题中继。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Query("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token"})
		return
	}
	sessionID := c.Param("sessionId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s, sessionID: %s", claims.Username, sessionID)

	writer := &syncConnWriter{conn: conn}
	// stopFlag 在收到 "stop" 指令后置位，流式下发会在下一个分块处中断
	var stopFlag atomic.Bool
	// streaming 保证同一连接上同时只处理一个问题
	var streaming sync.Mutex

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		query := string(message)
		if query == "" {
			continue
		}
		if query == "stop" {
			// 只对进行中的回答有意义。两次回答之间收到的 stop 会先置位，
			// 再被下一个问题的 stopFlag.Store(false) 复位，不影响后续提问。
			stopFlag.Store(true)
			continue
		}

		if !streaming.TryLock() {
			// 上一个问题还在流式回答中，拒绝并发提问
			_ = writer.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"请等待当前回答完成"}`))
			continue
		}
		stopFlag.Store(false)
		go func(q string) {
			defer streaming.Unlock()
			err := h.chatService.StreamResponse(c.Request.Context(), sessionID, q, writer, stopFlag.Load)
			if err != nil {
				log.Errorf("会话追问处理失败, sessionID: %s, error: %v", sessionID, err)
				_ = writer.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"回答生成失败"}`))
			}
		}(query)
	}
}
