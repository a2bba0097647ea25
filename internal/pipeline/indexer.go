// Package pipeline 定义了会话索引的后台处理流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"radvision-go/internal/model"
	"radvision-go/internal/repository"
	"radvision-go/pkg/log"
	"radvision-go/pkg/tasks"
)

// SessionIndexer 抽象了文档写入端，*es.Client 是其生产实现。
type SessionIndexer interface {
	IndexSession(ctx context.Context, doc model.SessionDocument) error
}

// Indexer 消费会话索引任务，把会话摘要写入 Elasticsearch。
type Indexer struct {
	sessionRepo repository.SessionRepository
	esClient    SessionIndexer
}

// NewIndexer 创建一个新的 Indexer 实例。
func NewIndexer(sessionRepo repository.SessionRepository, esClient SessionIndexer) *Indexer {
	return &Indexer{
		sessionRepo: sessionRepo,
		esClient:    esClient,
	}
}

// Process 是会话索引的主函数，满足 kafka.TaskProcessor 接口。
func (p *Indexer) Process(ctx context.Context, task tasks.SessionIndexTask) error {
	log.Infof("[Indexer] 开始索引会话, sessionID: %s", task.SessionID)

	// 1. 从数据库加载会话记录
	session, err := p.sessionRepo.FindByID(task.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// 会话在消费前被删除：任务作废，不触发重试
			log.Warnf("[Indexer] 会话不存在，跳过索引, sessionID: %s", task.SessionID)
			return nil
		}
		return fmt.Errorf("加载会话失败: %w", err)
	}
	if session.Deleted {
		log.Infof("[Indexer] 会话已软删除，跳过索引, sessionID: %s", task.SessionID)
		return nil
	}

	// 2. 组装摘要文档
	doc := model.SessionDocument{
		SessionID: session.ID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
	}
	if session.Result != nil {
		if len(session.Result.Top5Diseases) > 0 {
			doc.TopDisease = session.Result.Top5Diseases[0].Disease
		}
		doc.ConciseConclusion = session.Result.ConciseConclusion
	}

	// 3. 写入 Elasticsearch
	if err := p.esClient.IndexSession(ctx, doc); err != nil {
		return fmt.Errorf("索引会话文档失败: %w", err)
	}

	log.Infof("[Indexer] 会话索引完成, sessionID: %s", task.SessionID)
	return nil
}
