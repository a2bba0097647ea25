// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"radvision-go/internal/model"
	"radvision-go/internal/repository"
	"radvision-go/pkg/diagnosis"
	"radvision-go/pkg/log"
	"radvision-go/pkg/storage"
	"radvision-go/pkg/tasks"
	"strings"

	"github.com/google/uuid"
)

// 分析流程的失败分类。调用方用 errors.Is 判定，具体原因通过包装链获取。
var (
	// ErrEmptyImage 表示提交的影像为空。
	ErrEmptyImage = errors.New("影像内容为空")
	// ErrModelUnavailable 表示诊断模型不可达或返回了无效响应，流程在任何写入发生前终止。
	ErrModelUnavailable = errors.New("诊断模型不可用")
	// ErrArtifactUpload 表示某个影像产物上传失败，整个流程终止。
	ErrArtifactUpload = errors.New("影像产物上传失败")
	// ErrSessionNotPersisted 表示会话写入失败，或写入后回读为空；调用方必须视为会话不存在。
	ErrSessionNotPersisted = errors.New("会话创建失败")
)

// SessionEventPublisher 在会话创建确认后发布索引事件。
// 发布失败只记录日志，不影响分析流程的结果。
type SessionEventPublisher interface {
	PublishSessionIndexTask(task tasks.SessionIndexTask) error
}

// AnalysisService 接口定义了 X 光分析流水线的业务操作。
type AnalysisService interface {
	// AnalyzeAndCreate 接收标题与原始影像字节，产出一条已持久化并经回读确认的会话，
	// 或返回明确的失败；绝不产生半写状态的会话。
	AnalyzeAndCreate(ctx context.Context, title string, image []byte) (*model.ChatSession, error)
}

type analysisService struct {
	diagClient  diagnosis.Client
	store       storage.Store
	sessionRepo repository.SessionRepository
	publisher   SessionEventPublisher // 可为 nil（例如测试或未接入 Kafka 的部署）
}

// NewAnalysisService 创建一个新的 AnalysisService 实例。
// 三个协作方均通过接口注入，测试中可替换为假实现。
func NewAnalysisService(
	diagClient diagnosis.Client,
	store storage.Store,
	sessionRepo repository.SessionRepository,
	publisher SessionEventPublisher,
) AnalysisService {
	return &analysisService{
		diagClient:  diagClient,
		store:       store,
		sessionRepo: sessionRepo,
		publisher:   publisher,
	}
}

// AnalyzeAndCreate 执行完整的分析流水线。
// 写入顺序是先对象存储后数据库：流程中途失败只会留下无主的对象（廉价、无害），
// 而不会留下引用缺失对象的数据库记录。
func (s *analysisService) AnalyzeAndCreate(ctx context.Context, title string, image []byte) (*model.ChatSession, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	// 1. 本地生成会话 ID。它只充当存储键的命名空间和数据库主键，
	//    128 位随机值的碰撞概率可以忽略，不做存在性检查。
	sessionID := uuid.NewString()
	log.Infof("[AnalyzeAndCreate] 开始分析流水线, sessionID: %s, title: %s, image_size: %d", sessionID, title, len(image))

	// 2. 同步调用诊断模型。这是全有或全无的闸门：失败则整个流程终止，
	//    不创建会话也不上传任何产物。
	result, err := s.diagClient.Analyze(ctx, image)
	if err != nil {
		log.Errorf("[AnalyzeAndCreate] 诊断模型调用失败, sessionID: %s, error: %v", sessionID, err)
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	// uploaded 记录本次尝试已写入的对象键，供失败时做尽力而为的清理。
	var uploaded []string

	// 3. 上传原始影像。
	xrayKey := fmt.Sprintf("%s/xray_image.png", sessionID)
	xrayURL, err := s.store.Put(ctx, xrayKey, image, "image/png")
	if err != nil {
		log.Errorf("[AnalyzeAndCreate] 上传原始影像失败, sessionID: %s, error: %v", sessionID, err)
		return nil, fmt.Errorf("%w: %v", ErrArtifactUpload, err)
	}
	uploaded = append(uploaded, xrayKey)

	// 4. 解码并上传五个 gradcam 影像。键名由 top5 列表的排名和疾病标签决定，
	//    响应中缺失或为空的键直接跳过；单个解码/上传失败对整个流程是致命的，
	//    因为残缺的诊断结果在医学上是误导性的。
	gradcamURLs := make(map[string]string)
	for rank := 1; rank <= len(result.Top5Diseases); rank++ {
		key := result.GradcamKey(rank)
		encoded := result.GradcamAnalyses[key]
		if encoded == "" {
			continue
		}
		data, err := decodeBase64Image(encoded)
		if err != nil {
			log.Errorf("[AnalyzeAndCreate] gradcam 影像解码失败, sessionID: %s, key: %s, error: %v", sessionID, key, err)
			s.cleanupArtifacts(sessionID, uploaded)
			return nil, fmt.Errorf("%w: 解码 %s 失败: %v", ErrArtifactUpload, key, err)
		}
		objectName := fmt.Sprintf("%s/gradcam/%s.png", sessionID, key)
		url, err := s.store.Put(ctx, objectName, data, "image/png")
		if err != nil {
			log.Errorf("[AnalyzeAndCreate] gradcam 影像上传失败, sessionID: %s, key: %s, error: %v", sessionID, key, err)
			s.cleanupArtifacts(sessionID, uploaded)
			return nil, fmt.Errorf("%w: 上传 %s 失败: %v", ErrArtifactUpload, key, err)
		}
		uploaded = append(uploaded, objectName)
		gradcamURLs[key] = url
	}

	// 5. 注意力图是可选的：响应中没有时持久化为空字符串，不算错误。
	attentionURL := ""
	if result.AttentionMap != "" {
		data, err := decodeBase64Image(result.AttentionMap)
		if err != nil {
			log.Errorf("[AnalyzeAndCreate] 注意力图解码失败, sessionID: %s, error: %v", sessionID, err)
			s.cleanupArtifacts(sessionID, uploaded)
			return nil, fmt.Errorf("%w: 解码注意力图失败: %v", ErrArtifactUpload, err)
		}
		attentionKey := fmt.Sprintf("%s/attention_map.png", sessionID)
		attentionURL, err = s.store.Put(ctx, attentionKey, data, "image/png")
		if err != nil {
			log.Errorf("[AnalyzeAndCreate] 注意力图上传失败, sessionID: %s, error: %v", sessionID, err)
			s.cleanupArtifacts(sessionID, uploaded)
			return nil, fmt.Errorf("%w: 上传注意力图失败: %v", ErrArtifactUpload, err)
		}
		uploaded = append(uploaded, attentionKey)
	}

	// 6. 预测列表与叙述文本原样拷贝，不做任何转换。
	stored := buildStoredResult(result, gradcamURLs, attentionURL)

	// 7. 组装会话并单次写入，随后按 id 回读，向调用方返回服务端确认过的副本。
	//    回读可以捕获被 SDK 吞掉的静默写入失败。
	session := &model.ChatSession{
		ID:           sessionID,
		Title:        title,
		XrayImageURL: xrayURL,
		Result:       stored,
		Messages:     model.ChatMessages{},
	}
	if err := s.sessionRepo.Create(session); err != nil {
		log.Errorf("[AnalyzeAndCreate] 会话写入失败, sessionID: %s, error: %v", sessionID, err)
		return nil, fmt.Errorf("%w: %v", ErrSessionNotPersisted, err)
	}

	confirmed, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		// 写入报告成功但回读为空，说明存储层出现不一致，必须显式上报而不是吞掉。
		log.Errorf("[AnalyzeAndCreate] 会话写入后回读失败, sessionID: %s, error: %v", sessionID, err)
		return nil, fmt.Errorf("%w: 写入后回读失败: %v", ErrSessionNotPersisted, err)
	}

	// 8. 发布索引事件（尽力而为）。
	if s.publisher != nil {
		task := tasks.SessionIndexTask{SessionID: sessionID, Title: title}
		if err := s.publisher.PublishSessionIndexTask(task); err != nil {
			log.Errorf("[AnalyzeAndCreate] 发布会话索引事件失败, sessionID: %s, error: %v", sessionID, err)
		}
	}

	log.Infof("[AnalyzeAndCreate] 分析流水线完成, sessionID: %s, gradcam 数: %d", sessionID, len(gradcamURLs))
	return confirmed, nil
}

// cleanupArtifacts 在流程失败后于后台尽力删除本次已上传的对象。
// 清理失败只记录日志：无主对象比引用缺失对象的记录危害小得多。
func (s *analysisService) cleanupArtifacts(sessionID string, keys []string) {
	if len(keys) == 0 {
		return
	}
	go func() {
		bgCtx := context.Background()
		for _, key := range keys {
			if err := s.store.Remove(bgCtx, key); err != nil {
				log.Warnf("[AnalyzeAndCreate] 后台清理对象失败, sessionID: %s, key: %s, error: %v", sessionID, key, err)
			}
		}
		log.Infof("[AnalyzeAndCreate] 后台清理完成, sessionID: %s, 清理对象数: %d", sessionID, len(keys))
	}()
}

// buildStoredResult 将模型结果中的影像字段替换为 URL，其余字段逐项拷贝。
func buildStoredResult(result *diagnosis.Result, gradcamURLs map[string]string, attentionURL string) *model.StoredResult {
	return &model.StoredResult{
		PredictedDiseases:     copyPredictions(result.PredictedDiseases),
		Top5Diseases:          copyPredictions(result.Top5Diseases),
		GradcamAnalyses:       gradcamURLs,
		AttentionMap:          attentionURL,
		ConciseConclusion:     result.ConciseConclusion,
		ComprehensiveAnalysis: result.ComprehensiveAnalysis,
		DiseaseAnalyses:       copyStringMap(result.DiseaseAnalyses),
	}
}

func copyPredictions(preds []diagnosis.Prediction) []model.DiseasePrediction {
	out := make([]model.DiseasePrediction, 0, len(preds))
	for _, p := range preds {
		out = append(out, model.DiseasePrediction{Disease: p.Disease, Confidence: p.Confidence})
	}
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// decodeBase64Image 解码一段 base64 影像数据，允许携带 data:image/...;base64, 前缀。
func decodeBase64Image(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, "base64,"); idx >= 0 {
		encoded = encoded[idx+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
}
