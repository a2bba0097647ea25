package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"radvision-go/pkg/chatrelay"
	"radvision-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// streamingChatService 模拟一次多分块的流式回答，每个分块间有间隔，
// 让测试有机会在回答进行中注入第二个问题或 stop 指令。
type streamingChatService struct {
	chunks   int
	interval time.Duration
	started  chan struct{}
	stopped  atomic.Bool
}

func (s *streamingChatService) StreamResponse(ctx context.Context, sessionID, query string, writer chatrelay.MessageWriter, shouldStop func() bool) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	for i := 0; i < s.chunks; i++ {
		if shouldStop != nil && shouldStop() {
			s.stopped.Store(true)
			break
		}
		if err := writer.WriteMessage(websocket.TextMessage, []byte(`{"chunk":"段"}`)); err != nil {
			return err
		}
		time.Sleep(s.interval)
	}
	return writer.WriteMessage(websocket.TextMessage, []byte(`{"type":"completion","status":"finished"}`))
}

func newChatTestServer(t *testing.T, svc *streamingChatService) (*httptest.Server, string) {
	t.Helper()
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	access, _, err := jwtManager.GenerateTokenPair(1, "doctor_zhang", "USER")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/chat/:sessionId", NewChatHandler(svc, jwtManager).Handle)
	server := httptest.NewServer(r)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/chat/s1?token=" + access
	return server, wsURL
}

// readFrames 读取消息直到收到 completion 帧或超时，按类别计数。
func readFrames(t *testing.T, conn *websocket.Conn) (chunks, busy int) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading frames: %v", err)
		}
		var frame map[string]interface{}
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("received corrupt frame %q: %v", data, err)
		}
		if frame["type"] == "completion" {
			return chunks, busy
		}
		if _, ok := frame["chunk"]; ok {
			chunks++
			continue
		}
		if msg, _ := frame["message"].(string); strings.Contains(msg, "等待当前回答") {
			busy++
		}
	}
}

func TestChatHandlerRejectsQuestionDuringStream(t *testing.T) {
	svc := &streamingChatService{chunks: 40, interval: 5 * time.Millisecond, started: make(chan struct{}, 1)}
	server, wsURL := newChatTestServer(t, svc)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("这个结节严重吗")); err != nil {
		t.Fatal(err)
	}
	// 等流式回答开始后，在回答进行中发送第二个问题
	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never started")
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("需要复查吗")); err != nil {
		t.Fatal(err)
	}

	chunks, busy := readFrames(t, conn)
	// 第二个问题被拒绝，且拒绝帧与流式分块都完好地送达同一连接
	if busy != 1 {
		t.Errorf("busy rejections = %d, want 1", busy)
	}
	if chunks != svc.chunks {
		t.Errorf("chunk frames = %d, want %d", chunks, svc.chunks)
	}
}

func TestChatHandlerStopInterruptsStream(t *testing.T) {
	svc := &streamingChatService{chunks: 200, interval: 5 * time.Millisecond, started: make(chan struct{}, 1)}
	server, wsURL := newChatTestServer(t, svc)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("详细解读一下")); err != nil {
		t.Fatal(err)
	}
	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never started")
	}
	time.Sleep(20 * time.Millisecond)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("stop")); err != nil {
		t.Fatal(err)
	}

	chunks, _ := readFrames(t, conn)
	if !svc.stopped.Load() {
		t.Error("stop flag never reached the streaming service")
	}
	if chunks >= svc.chunks {
		t.Errorf("received all %d chunks, stop had no effect", chunks)
	}
}

func TestChatHandlerRejectsInvalidToken(t *testing.T) {
	svc := &streamingChatService{chunks: 1, started: make(chan struct{}, 1)}
	server, wsURL := newChatTestServer(t, svc)
	defer server.Close()

	badURL := wsURL[:strings.Index(wsURL, "token=")] + "token=not.a.jwt"
	if _, _, err := websocket.DefaultDialer.Dial(badURL, nil); err == nil {
		t.Fatal("handshake succeeded with an invalid token")
	}
}
