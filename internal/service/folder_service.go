// Package service 包含了应用的业务逻辑层。
package service

import (
	"radvision-go/internal/model"
	"radvision-go/internal/repository"
)

// FolderService 接口定义了文件夹相关的业务操作。
type FolderService interface {
	Create(folder *model.Folder) error
	ListByUser(userID uint) ([]model.Folder, error)
	Rename(id, userID uint, name string) error
	// Delete 删除文件夹，其下患者档案保留但解除归属。
	Delete(id, userID uint) error
}

type folderService struct {
	folderRepo  repository.FolderRepository
	patientRepo repository.PatientRepository
}

// NewFolderService 创建一个新的 FolderService 实例。
func NewFolderService(folderRepo repository.FolderRepository, patientRepo repository.PatientRepository) FolderService {
	return &folderService{folderRepo: folderRepo, patientRepo: patientRepo}
}

func (s *folderService) Create(folder *model.Folder) error {
	return s.folderRepo.Create(folder)
}

func (s *folderService) ListByUser(userID uint) ([]model.Folder, error) {
	return s.folderRepo.FindByUserID(userID)
}

func (s *folderService) Rename(id, userID uint, name string) error {
	folder, err := s.folderRepo.FindByID(id)
	if err != nil {
		return err
	}
	if folder.UserID != userID {
		return ErrForbidden
	}
	folder.Name = name
	return s.folderRepo.Update(folder)
}

func (s *folderService) Delete(id, userID uint) error {
	folder, err := s.folderRepo.FindByID(id)
	if err != nil {
		return err
	}
	if folder.UserID != userID {
		return ErrForbidden
	}

	// 解除该文件夹下患者的归属
	patients, err := s.patientRepo.FindByFolderID(id)
	if err != nil {
		return err
	}
	for i := range patients {
		patients[i].FolderID = nil
		if err := s.patientRepo.Update(&patients[i]); err != nil {
			return err
		}
	}

	return s.folderRepo.Delete(id)
}
