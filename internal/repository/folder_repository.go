package repository

import (
	"radvision-go/internal/model"

	"gorm.io/gorm"
)

// FolderRepository 接口定义了文件夹数据的持久化操作。
type FolderRepository interface {
	Create(folder *model.Folder) error
	FindByID(id uint) (*model.Folder, error)
	FindByUserID(userID uint) ([]model.Folder, error)
	Update(folder *model.Folder) error
	Delete(id uint) error
}

type folderRepository struct {
	db *gorm.DB
}

// NewFolderRepository 创建一个新的 FolderRepository 实例。
func NewFolderRepository(db *gorm.DB) FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) Create(folder *model.Folder) error {
	return r.db.Create(folder).Error
}

func (r *folderRepository) FindByID(id uint) (*model.Folder, error) {
	var folder model.Folder
	if err := r.db.First(&folder, id).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

func (r *folderRepository) FindByUserID(userID uint) ([]model.Folder, error) {
	var folders []model.Folder
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&folders).Error
	return folders, err
}

func (r *folderRepository) Update(folder *model.Folder) error {
	return r.db.Save(folder).Error
}

func (r *folderRepository) Delete(id uint) error {
	return r.db.Delete(&model.Folder{}, id).Error
}
