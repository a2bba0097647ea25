package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"radvision-go/internal/model"
	"radvision-go/internal/service"
	"radvision-go/pkg/log"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.Init("error", "json", "")
	os.Exit(m.Run())
}

// fakeAnalysisService 返回预置的会话或错误。
type fakeAnalysisService struct {
	session *model.ChatSession
	err     error

	gotTitle string
	gotImage []byte
}

func (f *fakeAnalysisService) AnalyzeAndCreate(ctx context.Context, title string, image []byte) (*model.ChatSession, error) {
	f.gotTitle = title
	f.gotImage = image
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func newAnalyzeRouter(svc service.AnalysisService) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/sessions/analyze", NewAnalysisHandler(svc).Analyze)
	return r
}

// analyzeRequest 构建一个带 title 与 image 的 multipart 请求。
func analyzeRequest(t *testing.T, title string, image []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if title != "" {
		if err := writer.WriteField("title", title); err != nil {
			t.Fatal(err)
		}
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "xray.png")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(image)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestAnalyzeSuccess(t *testing.T) {
	svc := &fakeAnalysisService{session: &model.ChatSession{ID: "s1", Title: "胸片检查"}}
	router := newAnalyzeRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, analyzeRequest(t, "胸片检查", []byte("raw-xray")))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}
	if svc.gotTitle != "胸片检查" {
		t.Errorf("service received title %q", svc.gotTitle)
	}
	if string(svc.gotImage) != "raw-xray" {
		t.Errorf("service received image %q", svc.gotImage)
	}
}

func TestAnalyzeMissingTitle(t *testing.T) {
	svc := &fakeAnalysisService{}
	router := newAnalyzeRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, analyzeRequest(t, "", []byte("raw-xray")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if svc.gotImage != nil {
		t.Error("service was called despite missing title")
	}
}

func TestAnalyzeMissingImage(t *testing.T) {
	svc := &fakeAnalysisService{}
	router := newAnalyzeRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, analyzeRequest(t, "胸片检查", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"empty_image":       {service.ErrEmptyImage, http.StatusBadRequest},
		"model_unavailable": {service.ErrModelUnavailable, http.StatusBadGateway},
		"artifact_upload":   {service.ErrArtifactUpload, http.StatusInternalServerError},
		"not_persisted":     {service.ErrSessionNotPersisted, http.StatusInternalServerError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			router := newAnalyzeRouter(&fakeAnalysisService{err: tc.err})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, analyzeRequest(t, "t", []byte("img")))
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
