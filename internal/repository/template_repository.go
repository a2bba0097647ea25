package repository

import (
	"radvision-go/internal/model"

	"gorm.io/gorm"
)

// TemplateRepository 接口定义了报告模板数据的持久化操作。
type TemplateRepository interface {
	Create(template *model.ReportTemplate) error
	FindByID(id uint) (*model.ReportTemplate, error)
	FindByUserID(userID uint) ([]model.ReportTemplate, error)
	Update(template *model.ReportTemplate) error
	Delete(id uint) error
}

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建一个新的 TemplateRepository 实例。
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(template *model.ReportTemplate) error {
	return r.db.Create(template).Error
}

func (r *templateRepository) FindByID(id uint) (*model.ReportTemplate, error) {
	var template model.ReportTemplate
	if err := r.db.First(&template, id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) FindByUserID(userID uint) ([]model.ReportTemplate, error) {
	var templates []model.ReportTemplate
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&templates).Error
	return templates, err
}

func (r *templateRepository) Update(template *model.ReportTemplate) error {
	return r.db.Save(template).Error
}

func (r *templateRepository) Delete(id uint) error {
	return r.db.Delete(&model.ReportTemplate{}, id).Error
}
