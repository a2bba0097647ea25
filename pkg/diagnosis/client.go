// Package diagnosis 提供了与外部 X 光诊断模型服务交互的客户端。
package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"radvision-go/internal/config"
	"radvision-go/pkg/log"
	"strconv"
	"time"
)

const defaultTimeout = 120 * time.Second

// Client 定义了诊断模型客户端的接口。
type Client interface {
	// Analyze 将一张 X 光影像提交给模型服务并返回结构化的诊断结果。
	// 每次调用只尝试一次，不做重试；传输错误、非 2xx 响应和无法解析的
	// 响应体都以 error 形式返回。
	Analyze(ctx context.Context, image []byte) (*Result, error)
}

// Prediction 表示一条疾病预测及其置信度。
type Prediction struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// Result 是诊断模型返回的结构化结果。
// 其中的影像字段均为 base64 编码，可能带有 data URI 前缀。
type Result struct {
	PredictedDiseases     []Prediction      `json:"predicted_diseases"`
	Top5Diseases          []Prediction      `json:"top_5_diseases"`
	GradcamAnalyses       map[string]string `json:"gradcam_analyses"`
	AttentionMap          string            `json:"attention_map"`
	ConciseConclusion     string            `json:"concise_conclusion"`
	ComprehensiveAnalysis string            `json:"comprehensive_analysis"`
	DiseaseAnalyses       map[string]string `json:"disease_analyses"`
}

// GradcamKey 返回 top5 列表中第 rank 名（从 1 开始）对应的 gradcam 键名，
// 形如 top1_Pneumonia。键名由排名和疾病标签共同决定。
func (r *Result) GradcamKey(rank int) string {
	if rank < 1 || rank > len(r.Top5Diseases) {
		return ""
	}
	return fmt.Sprintf("top%d_%s", rank, r.Top5Diseases[rank-1].Disease)
}

// validate 对必需字段做收敛校验：缺失即判定为上游不可用，
// 不把不完整的结果透传给下游持久化。
func (r *Result) validate() error {
	if len(r.PredictedDiseases) == 0 {
		return errors.New("响应缺少 predicted_diseases 字段")
	}
	if len(r.Top5Diseases) == 0 {
		return errors.New("响应缺少 top_5_diseases 字段")
	}
	for _, p := range append(r.PredictedDiseases, r.Top5Diseases...) {
		if p.Disease == "" {
			return errors.New("预测项缺少 disease 标签")
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			return fmt.Errorf("疾病 %s 的置信度 %f 超出 [0,1] 范围", p.Disease, p.Confidence)
		}
	}
	return nil
}

type httpClient struct {
	cfg    config.DiagnosisConfig
	client *http.Client
}

// NewClient 创建一个新的诊断模型客户端。配置通过参数注入，便于测试时指向假端点。
func NewClient(cfg config.DiagnosisConfig) Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Analyze 以 multipart 表单提交影像与超参数，并解析模型的 JSON 响应。
func (c *httpClient) Analyze(ctx context.Context, image []byte) (*Result, error) {
	log.Infof("[DiagnosisClient] 开始调用诊断模型, endpoint: %s, image_size: %d", c.cfg.BaseURL, len(image))

	// 1. 构建 multipart 请求体：image + 两个标量超参数
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "xray_image.png")
	if err != nil {
		return nil, fmt.Errorf("构建 multipart 表单失败: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("写入影像数据失败: %w", err)
	}
	if err := writer.WriteField("confidence_threshold", strconv.FormatFloat(c.cfg.ConfidenceThreshold, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("写入 confidence_threshold 字段失败: %w", err)
	}
	if c.cfg.ModelPath != "" {
		if err := writer.WriteField("model_path", c.cfg.ModelPath); err != nil {
			return nil, fmt.Errorf("写入 model_path 字段失败: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭 multipart writer 失败: %w", err)
	}

	// 2. 发送请求
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/analyze", body)
	if err != nil {
		return nil, fmt.Errorf("创建诊断请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[DiagnosisClient] 调用诊断模型失败, error: %v", err)
		return nil, fmt.Errorf("调用诊断模型失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		log.Errorf("[DiagnosisClient] 诊断模型返回非 2xx 状态码: %s", resp.Status)
		return nil, fmt.Errorf("诊断模型返回非 2xx 状态码 %s: %s", resp.Status, string(respBody))
	}

	// 3. 解析并校验响应
	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Errorf("[DiagnosisClient] 解析诊断模型响应失败, error: %v", err)
		return nil, fmt.Errorf("解析诊断模型响应失败: %w", err)
	}
	if err := result.validate(); err != nil {
		log.Errorf("[DiagnosisClient] 诊断模型响应不完整, error: %v", err)
		return nil, fmt.Errorf("诊断模型响应不完整: %w", err)
	}

	log.Infof("[DiagnosisClient] 诊断模型调用成功, 预测数: %d, gradcam 数: %d",
		len(result.PredictedDiseases), len(result.GradcamAnalyses))
	return &result, nil
}
