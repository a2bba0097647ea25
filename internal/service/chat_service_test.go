package service

import (
	"strings"
	"testing"
	"time"

	"radvision-go/internal/config"
	"radvision-go/internal/model"
)

func TestComposeMessages(t *testing.T) {
	history := []model.ChatMessage{
		{Role: "user", Content: "这个结节严重吗", Timestamp: time.Now()},
		{Role: "assistant", Content: "建议结合临床", Timestamp: time.Now()},
	}

	msgs := composeMessages("系统提示", history, "需要复查吗")
	if len(msgs) != 4 {
		t.Fatalf("message count = %d, want 4", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != "系统提示" {
		t.Errorf("first message = %+v, want system prompt", msgs[0])
	}
	if msgs[1].Role != "user" || msgs[2].Role != "assistant" {
		t.Errorf("history order broken: %+v", msgs[1:3])
	}
	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "需要复查吗" {
		t.Errorf("last message = %+v, want current question", last)
	}
}

func TestBuildSystemMessageWithResult(t *testing.T) {
	svc := &chatService{relayCfg: config.ChatRelayConfig{
		Prompt: config.RelayPromptConfig{Rules: "你是放射科助手"},
	}}
	session := &model.ChatSession{
		ID: "s1",
		Result: &model.StoredResult{
			Top5Diseases: []model.DiseasePrediction{
				{Disease: "Pneumonia", Confidence: 0.81},
				{Disease: "Effusion", Confidence: 0.42},
			},
			ConciseConclusion:     "疑似肺炎",
			ComprehensiveAnalysis: "右下肺野见斑片状阴影。",
		},
	}

	msg := svc.buildSystemMessage(session)
	for _, want := range []string{"你是放射科助手", "Pneumonia(0.81)", "Effusion(0.42)", "疑似肺炎", "右下肺野见斑片状阴影。"} {
		if !strings.Contains(msg, want) {
			t.Errorf("system message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildSystemMessageWithoutResult(t *testing.T) {
	svc := &chatService{}
	msg := svc.buildSystemMessage(&model.ChatSession{ID: "s1"})
	if !strings.Contains(msg, "暂无诊断结果") {
		t.Errorf("system message for result-less session: %s", msg)
	}
}
