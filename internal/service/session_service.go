// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"radvision-go/internal/model"
	"radvision-go/internal/repository"
	"radvision-go/pkg/log"
	"radvision-go/pkg/storage"
	"time"
)

// SessionService 接口定义了会话管理相关的业务操作。
type SessionService interface {
	List() ([]model.ChatSession, error)
	Get(id string) (*model.ChatSession, error)
	Rename(id, title string) error
	Delete(id string) error
	// ImageDownloadURL 为会话的原始影像生成限时下载链接。
	ImageDownloadURL(ctx context.Context, id string) (string, error)
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	store       storage.Store
	historyRepo repository.ChatHistoryRepository
}

// NewSessionService 创建一个新的 SessionService 实例。
func NewSessionService(
	sessionRepo repository.SessionRepository,
	store storage.Store,
	historyRepo repository.ChatHistoryRepository,
) SessionService {
	return &sessionService{sessionRepo: sessionRepo, store: store, historyRepo: historyRepo}
}

// List 返回所有未删除的会话。
func (s *sessionService) List() ([]model.ChatSession, error) {
	return s.sessionRepo.FindAll()
}

// Get 返回指定会话；不存在时透传 repository.ErrSessionNotFound。
func (s *sessionService) Get(id string) (*model.ChatSession, error) {
	return s.sessionRepo.FindByID(id)
}

// Rename 更新会话标题。
func (s *sessionService) Rename(id, title string) error {
	log.Infof("[SessionService] 重命名会话, sessionID: %s", id)
	return s.sessionRepo.UpdateTitle(id, title)
}

// Delete 软删除会话。对象存储中的产物保留在原位，会话记录仍是可审计的。
// 对话缓存随会话一并清理，清理失败只记录日志。
func (s *sessionService) Delete(id string) error {
	log.Infof("[SessionService] 软删除会话, sessionID: %s", id)
	if err := s.sessionRepo.SoftDelete(id); err != nil {
		return err
	}
	if err := s.historyRepo.Clear(context.Background(), id); err != nil {
		log.Warnf("[SessionService] 清理对话缓存失败, sessionID: %s, error: %v", id, err)
	}
	return nil
}

// ImageDownloadURL 确认会话存在后，为其原始影像对象签发一小时有效的下载链接。
func (s *sessionService) ImageDownloadURL(ctx context.Context, id string) (string, error) {
	if _, err := s.sessionRepo.FindByID(id); err != nil {
		return "", err
	}
	objectName := id + "/xray_image.png"
	return s.store.PresignedURL(ctx, objectName, time.Hour)
}
