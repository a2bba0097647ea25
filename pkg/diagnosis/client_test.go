package diagnosis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"radvision-go/internal/config"
	"radvision-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "json", "")
	os.Exit(m.Run())
}

func validResponse() map[string]interface{} {
	return map[string]interface{}{
		"predicted_diseases": []map[string]interface{}{
			{"disease": "Pneumonia", "confidence": 0.81},
		},
		"top_5_diseases": []map[string]interface{}{
			{"disease": "Pneumonia", "confidence": 0.81},
			{"disease": "Effusion", "confidence": 0.42},
		},
		"gradcam_analyses": map[string]string{
			"top1_Pneumonia": "aGVhdG1hcA==",
		},
		"attention_map":          "YXR0ZW50aW9u",
		"concise_conclusion":     "疑似肺炎",
		"comprehensive_analysis": "右下肺野见斑片状阴影。",
		"disease_analyses": map[string]string{
			"Pneumonia": "阴影形态符合感染性改变。",
		},
	}
}

func TestAnalyzeSendsMultipartForm(t *testing.T) {
	var gotThreshold, gotModelPath string
	var gotImage []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("path = %s, want /analyze", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("request is not multipart: %v", err)
		}
		gotThreshold = r.FormValue("confidence_threshold")
		gotModelPath = r.FormValue("model_path")
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("missing image part: %v", err)
		}
		defer file.Close()
		gotImage, _ = io.ReadAll(file)

		json.NewEncoder(w).Encode(validResponse())
	}))
	defer server.Close()

	client := NewClient(config.DiagnosisConfig{
		BaseURL:             server.URL,
		ConfidenceThreshold: 0.35,
		ModelPath:           "models/chexnet.pth",
	})

	result, err := client.Analyze(context.Background(), []byte("raw-xray"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if gotThreshold != "0.35" {
		t.Errorf("confidence_threshold = %q, want 0.35", gotThreshold)
	}
	if gotModelPath != "models/chexnet.pth" {
		t.Errorf("model_path = %q", gotModelPath)
	}
	if string(gotImage) != "raw-xray" {
		t.Errorf("image bytes = %q", gotImage)
	}

	if result.Top5Diseases[0].Confidence != 0.81 {
		t.Errorf("top1 confidence = %v, want 0.81", result.Top5Diseases[0].Confidence)
	}
	if result.ConciseConclusion != "疑似肺炎" {
		t.Errorf("concise conclusion = %q", result.ConciseConclusion)
	}
}

func TestAnalyzeOmitsEmptyModelPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(32 << 20)
		if _, ok := r.MultipartForm.Value["model_path"]; ok {
			t.Error("model_path field sent despite empty config")
		}
		json.NewEncoder(w).Encode(validResponse())
	}))
	defer server.Close()

	client := NewClient(config.DiagnosisConfig{BaseURL: server.URL, ConfidenceThreshold: 0.5})
	if _, err := client.Analyze(context.Background(), []byte("img")); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
}

func TestAnalyzeNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.DiagnosisConfig{BaseURL: server.URL})
	if _, err := client.Analyze(context.Background(), []byte("img")); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestAnalyzeMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>")
	}))
	defer server.Close()

	client := NewClient(config.DiagnosisConfig{BaseURL: server.URL})
	if _, err := client.Analyze(context.Background(), []byte("img")); err == nil {
		t.Fatal("expected error for malformed response body")
	}
}

func TestAnalyzeRejectsIncompleteResponse(t *testing.T) {
	cases := map[string]func(m map[string]interface{}){
		"missing_predicted": func(m map[string]interface{}) { delete(m, "predicted_diseases") },
		"missing_top5":      func(m map[string]interface{}) { delete(m, "top_5_diseases") },
		"empty_disease_label": func(m map[string]interface{}) {
			m["top_5_diseases"] = []map[string]interface{}{{"disease": "", "confidence": 0.5}}
		},
		"confidence_out_of_range": func(m map[string]interface{}) {
			m["top_5_diseases"] = []map[string]interface{}{{"disease": "Pneumonia", "confidence": 1.5}}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			resp := validResponse()
			mutate(resp)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(resp)
			}))
			defer server.Close()

			client := NewClient(config.DiagnosisConfig{BaseURL: server.URL})
			if _, err := client.Analyze(context.Background(), []byte("img")); err == nil {
				t.Error("incomplete response was accepted")
			}
		})
	}
}

func TestAnalyzeTimesOut(t *testing.T) {
	if testing.Short() {
		t.Skip("timeout test sleeps")
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
		json.NewEncoder(w).Encode(validResponse())
	}))
	defer server.Close()

	client := NewClient(config.DiagnosisConfig{BaseURL: server.URL, TimeoutSeconds: 1})
	start := time.Now()
	_, err := client.Analyze(context.Background(), []byte("img"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("request took %v, configured timeout was 1s", elapsed)
	}
}

func TestGradcamKey(t *testing.T) {
	r := &Result{Top5Diseases: []Prediction{
		{Disease: "Pneumonia"}, {Disease: "Effusion"},
	}}
	if got := r.GradcamKey(1); got != "top1_Pneumonia" {
		t.Errorf("GradcamKey(1) = %q", got)
	}
	if got := r.GradcamKey(2); got != "top2_Effusion" {
		t.Errorf("GradcamKey(2) = %q", got)
	}
	if got := r.GradcamKey(3); got != "" {
		t.Errorf("GradcamKey(3) = %q, want empty for out-of-range rank", got)
	}
}
