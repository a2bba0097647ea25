package service

import (
	"context"
	"errors"
	"testing"

	"radvision-go/internal/model"
	"radvision-go/internal/repository"
)

// fakeHistoryRepo 记录被清理的会话 id。
type fakeHistoryRepo struct {
	cleared []string
}

func (f *fakeHistoryRepo) GetRecentMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	return []model.ChatMessage{}, nil
}

func (f *fakeHistoryRepo) AppendMessages(ctx context.Context, sessionID string, messages []model.ChatMessage) error {
	return nil
}

func (f *fakeHistoryRepo) Clear(ctx context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func seedSession(repo *fakeSessionRepo, id string) *model.ChatSession {
	s := &model.ChatSession{ID: id, Title: "初始标题", XrayImageURL: "http://store.local/" + id + "/xray_image.png"}
	repo.sessions[id] = s
	return s
}

func TestSessionServiceGetNotFound(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo(), newFakeStore(), &fakeHistoryRepo{})

	_, err := svc.Get("no-such-id")
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionServiceRename(t *testing.T) {
	repo := newFakeSessionRepo()
	seedSession(repo, "s1")
	svc := NewSessionService(repo, newFakeStore(), &fakeHistoryRepo{})

	if err := svc.Rename("s1", "复查胸片"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if repo.sessions["s1"].Title != "复查胸片" {
		t.Errorf("title = %q, want 复查胸片", repo.sessions["s1"].Title)
	}

	if err := svc.Rename("missing", "x"); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("rename missing session: err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionServiceDeleteIsSoft(t *testing.T) {
	repo := newFakeSessionRepo()
	seedSession(repo, "s1")
	history := &fakeHistoryRepo{}
	svc := NewSessionService(repo, newFakeStore(), history)

	if err := svc.Delete("s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(history.cleared) != 1 || history.cleared[0] != "s1" {
		t.Errorf("cleared history = %v, want [s1]", history.cleared)
	}
	// 记录保留，仅标记删除
	s, ok := repo.sessions["s1"]
	if !ok {
		t.Fatal("session record was removed, want soft delete")
	}
	if !s.Deleted {
		t.Error("session was not marked deleted")
	}

	// 已删除的会话不再出现在列表中
	sessions, err := svc.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, got := range sessions {
		if got.ID == "s1" {
			t.Error("soft-deleted session still listed")
		}
	}
}

func TestSessionServiceImageDownloadURL(t *testing.T) {
	repo := newFakeSessionRepo()
	seedSession(repo, "s1")
	svc := NewSessionService(repo, newFakeStore(), &fakeHistoryRepo{})

	url, err := svc.ImageDownloadURL(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ImageDownloadURL failed: %v", err)
	}
	want := "http://store.local/presigned/s1/xray_image.png"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}

	// 会话不存在时不签发链接
	if _, err := svc.ImageDownloadURL(context.Background(), "missing"); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}
