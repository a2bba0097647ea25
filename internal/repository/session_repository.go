// Package repository 提供了数据访问层的实现。
package repository

import (
	"errors"
	"fmt"
	"radvision-go/internal/model"

	"gorm.io/gorm"
)

// ErrSessionNotFound 表示按 id 查找的会话不存在。
// 查找失败（数据库错误）返回其他 error，两者由调用方用 errors.Is 区分。
var ErrSessionNotFound = errors.New("会话不存在")

// SessionRepository 接口定义了诊断会话的数据持久化操作。
type SessionRepository interface {
	Create(session *model.ChatSession) error
	// FindByID 返回指定会话；不存在时返回 ErrSessionNotFound。
	FindByID(id string) (*model.ChatSession, error)
	// FindAll 返回所有未软删除的会话，按创建时间倒序。
	FindAll() ([]model.ChatSession, error)
	UpdateTitle(id, title string) error
	UpdateMessages(id string, messages model.ChatMessages) error
	// SoftDelete 将会话标记为已删除，不移除记录与其对象存储产物。
	SoftDelete(id string) error
}

// sessionRepository 是 SessionRepository 接口的 GORM 实现。
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create 以单次写入持久化完整的会话记录。
func (r *sessionRepository) Create(session *model.ChatSession) error {
	return r.db.Create(session).Error
}

// FindByID 根据会话 id 检索完整记录。
func (r *sessionRepository) FindByID(id string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("查询会话记录失败: %w", err)
	}
	return &session, nil
}

// FindAll 检索所有未软删除的会话。
func (r *sessionRepository) FindAll() ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.db.Where("deleted = ?", false).Order("created_at desc").Find(&sessions).Error
	return sessions, err
}

// UpdateTitle 更新会话标题。
func (r *sessionRepository) UpdateTitle(id, title string) error {
	return r.updateColumn(id, "title", title)
}

// UpdateMessages 覆盖写入会话的对话消息列表。
func (r *sessionRepository) UpdateMessages(id string, messages model.ChatMessages) error {
	return r.updateColumn(id, "messages", messages)
}

// SoftDelete 标记会话为已删除。
func (r *sessionRepository) SoftDelete(id string) error {
	return r.updateColumn(id, "deleted", true)
}

// updateColumn 更新单列并在目标记录不存在时返回 ErrSessionNotFound。
func (r *sessionRepository) updateColumn(id, column string, value interface{}) error {
	result := r.db.Model(&model.ChatSession{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
