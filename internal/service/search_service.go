// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"radvision-go/internal/model"
	"radvision-go/pkg/es"
	"radvision-go/pkg/log"
)

// SearchService 接口定义了历史会话检索的业务操作。
type SearchService interface {
	SearchSessions(ctx context.Context, query string, size int) ([]model.SessionDocument, error)
}

type searchService struct {
	esClient *es.Client
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(esClient *es.Client) SearchService {
	return &searchService{esClient: esClient}
}

// SearchSessions 在索引的会话摘要上执行全文检索。
func (s *searchService) SearchSessions(ctx context.Context, query string, size int) ([]model.SessionDocument, error) {
	if size <= 0 {
		size = 10
	}
	log.Infof("[SearchSessions] 检索历史会话, query: %s, size: %d", query, size)
	return s.esClient.SearchSessions(ctx, query, size)
}
