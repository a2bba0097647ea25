// Package model 包含了应用的数据模型定义。
package model

import "time"

// DiseasePrediction 表示持久化记录中的一条疾病预测。
type DiseasePrediction struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// StoredResult 是诊断结果的持久化形态：与模型返回的结构一致，
// 但所有影像字段均已替换为对象存储中的 URL，绝不内嵌影像字节。
type StoredResult struct {
	PredictedDiseases     []DiseasePrediction `json:"predicted_diseases"`
	Top5Diseases          []DiseasePrediction `json:"top_5_diseases"`
	GradcamAnalyses       map[string]string   `json:"gradcam_analyses"`
	AttentionMap          string              `json:"attention_map"`
	ConciseConclusion     string              `json:"concise_conclusion"`
	ComprehensiveAnalysis string              `json:"comprehensive_analysis"`
	DiseaseAnalyses       map[string]string   `json:"disease_analyses"`
}

// ChatMessage 代表会话中的单条对话消息。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessages 是存储在会话记录 JSON 列中的消息列表。
type ChatMessages []ChatMessage

// ChatSession 定义了 chat_sessions 表的 ORM 模型。
// 一条记录对应一次完整的 X 光诊断会话，由分析流程在全部上游步骤
// 成功后一次性写入，之后归仓库所有。
type ChatSession struct {
	ID           string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title        string        `gorm:"type:varchar(255);not null" json:"title"`
	XrayImageURL string        `gorm:"type:varchar(1024);not null" json:"xrayImageUrl"`
	Result       *StoredResult `gorm:"type:json;serializer:json" json:"result"`
	Messages     ChatMessages  `gorm:"type:json;serializer:json" json:"messages"`
	Deleted      bool          `gorm:"not null;default:false" json:"deleted"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// SessionDocument 是写入 Elasticsearch 的会话摘要文档。
type SessionDocument struct {
	SessionID         string    `json:"session_id"`
	Title             string    `json:"title"`
	TopDisease        string    `json:"top_disease"`
	ConciseConclusion string    `json:"concise_conclusion"`
	CreatedAt         time.Time `json:"created_at"`
}
