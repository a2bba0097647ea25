// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"radvision-go/internal/model"
	"radvision-go/internal/repository"
)

// ErrForbidden 表示当前用户无权访问目标资源。
var ErrForbidden = errors.New("无权访问该资源")

// PatientService 接口定义了患者档案相关的业务操作。
type PatientService interface {
	Create(patient *model.Patient) error
	Get(id, userID uint) (*model.Patient, error)
	ListByUser(userID uint) ([]model.Patient, error)
	Update(patient *model.Patient, userID uint) error
	Delete(id, userID uint) error
}

type patientService struct {
	patientRepo repository.PatientRepository
}

// NewPatientService 创建一个新的 PatientService 实例。
func NewPatientService(patientRepo repository.PatientRepository) PatientService {
	return &patientService{patientRepo: patientRepo}
}

func (s *patientService) Create(patient *model.Patient) error {
	return s.patientRepo.Create(patient)
}

// Get 返回患者档案；归属校验失败时返回 ErrForbidden。
func (s *patientService) Get(id, userID uint) (*model.Patient, error) {
	patient, err := s.patientRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if patient.UserID != userID {
		return nil, ErrForbidden
	}
	return patient, nil
}

func (s *patientService) ListByUser(userID uint) ([]model.Patient, error) {
	return s.patientRepo.FindByUserID(userID)
}

func (s *patientService) Update(patient *model.Patient, userID uint) error {
	existing, err := s.patientRepo.FindByID(patient.ID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrForbidden
	}
	patient.UserID = existing.UserID
	return s.patientRepo.Update(patient)
}

func (s *patientService) Delete(id, userID uint) error {
	existing, err := s.patientRepo.FindByID(id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrForbidden
	}
	return s.patientRepo.Delete(id)
}
