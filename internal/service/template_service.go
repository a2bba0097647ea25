// Package service 包含了应用的业务逻辑层。
package service

import (
	"radvision-go/internal/model"
	"radvision-go/internal/repository"
)

// TemplateService 接口定义了报告模板相关的业务操作。
type TemplateService interface {
	Create(template *model.ReportTemplate) error
	Get(id, userID uint) (*model.ReportTemplate, error)
	ListByUser(userID uint) ([]model.ReportTemplate, error)
	Update(template *model.ReportTemplate, userID uint) error
	Delete(id, userID uint) error
}

type templateService struct {
	templateRepo repository.TemplateRepository
}

// NewTemplateService 创建一个新的 TemplateService 实例。
func NewTemplateService(templateRepo repository.TemplateRepository) TemplateService {
	return &templateService{templateRepo: templateRepo}
}

func (s *templateService) Create(template *model.ReportTemplate) error {
	return s.templateRepo.Create(template)
}

func (s *templateService) Get(id, userID uint) (*model.ReportTemplate, error) {
	template, err := s.templateRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if template.UserID != userID {
		return nil, ErrForbidden
	}
	return template, nil
}

func (s *templateService) ListByUser(userID uint) ([]model.ReportTemplate, error) {
	return s.templateRepo.FindByUserID(userID)
}

func (s *templateService) Update(template *model.ReportTemplate, userID uint) error {
	existing, err := s.templateRepo.FindByID(template.ID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrForbidden
	}
	template.UserID = existing.UserID
	return s.templateRepo.Update(template)
}

func (s *templateService) Delete(id, userID uint) error {
	existing, err := s.templateRepo.FindByID(id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrForbidden
	}
	return s.templateRepo.Delete(id)
}
