package chatrelay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"radvision-go/internal/config"
)

// collectWriter 把写入的分块按顺序收集起来。
type collectWriter struct {
	chunks []string
}

func (w *collectWriter) WriteMessage(messageType int, data []byte) error {
	w.chunks = append(w.chunks, string(data))
	return nil
}

func sseBody(contents ...string) string {
	var b strings.Builder
	for _, c := range contents {
		payload, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"delta": map[string]string{"content": c}},
			},
		})
		b.WriteString("data: ")
		b.Write(payload)
		b.WriteString("\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func TestStreamChatForwardsChunks(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody("你好", "，", "这是流式回答"))
	}))
	defer server.Close()

	client := NewClient(config.ChatRelayConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "deepseek-chat",
	})

	writer := &collectWriter{}
	messages := []Message{
		{Role: "system", Content: "你是放射科助手"},
		{Role: "user", Content: "帮我解读"},
	}
	if err := client.StreamChat(context.Background(), messages, nil, writer); err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "deepseek-chat" || !gotReq.Stream {
		t.Errorf("request = %+v, want streaming deepseek-chat", gotReq)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}

	if got := strings.Join(writer.chunks, ""); got != "你好，这是流式回答" {
		t.Errorf("forwarded answer = %q", got)
	}
}

func TestStreamChatUsesConfiguredGenerationParams(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		io.WriteString(w, sseBody("ok"))
	}))
	defer server.Close()

	client := NewClient(config.ChatRelayConfig{
		BaseURL: server.URL,
		Model:   "deepseek-chat",
		Generation: config.RelayGenerationConfig{
			Temperature: 0.7,
			MaxTokens:   1024,
		},
	})

	if err := client.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, &collectWriter{}); err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}

	if gotReq.Temperature == nil || *gotReq.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gotReq.Temperature)
	}
	if gotReq.MaxTokens == nil || *gotReq.MaxTokens != 1024 {
		t.Errorf("max_tokens = %v, want 1024", gotReq.MaxTokens)
	}
	// top_p 未配置时不发送
	if gotReq.TopP != nil {
		t.Errorf("top_p = %v, want nil", *gotReq.TopP)
	}
}

func TestStreamChatNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(config.ChatRelayConfig{BaseURL: server.URL})
	err := client.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, &collectWriter{})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestStreamChatSkipsMalformedChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {not valid json}\n\n")
		io.WriteString(w, sseBody("仍然继续"))
	}))
	defer server.Close()

	client := NewClient(config.ChatRelayConfig{BaseURL: server.URL})
	writer := &collectWriter{}
	if err := client.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, writer); err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	if got := strings.Join(writer.chunks, ""); got != "仍然继续" {
		t.Errorf("forwarded answer = %q", got)
	}
}
