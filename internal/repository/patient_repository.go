package repository

import (
	"radvision-go/internal/model"

	"gorm.io/gorm"
)

// PatientRepository 接口定义了患者数据的持久化操作。
type PatientRepository interface {
	Create(patient *model.Patient) error
	FindByID(id uint) (*model.Patient, error)
	FindByUserID(userID uint) ([]model.Patient, error)
	FindByFolderID(folderID uint) ([]model.Patient, error)
	Update(patient *model.Patient) error
	Delete(id uint) error
}

type patientRepository struct {
	db *gorm.DB
}

// NewPatientRepository 创建一个新的 PatientRepository 实例。
func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(patient *model.Patient) error {
	return r.db.Create(patient).Error
}

func (r *patientRepository) FindByID(id uint) (*model.Patient, error) {
	var patient model.Patient
	if err := r.db.First(&patient, id).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) FindByUserID(userID uint) ([]model.Patient, error) {
	var patients []model.Patient
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&patients).Error
	return patients, err
}

func (r *patientRepository) FindByFolderID(folderID uint) ([]model.Patient, error) {
	var patients []model.Patient
	err := r.db.Where("folder_id = ?", folderID).Find(&patients).Error
	return patients, err
}

func (r *patientRepository) Update(patient *model.Patient) error {
	return r.db.Save(patient).Error
}

func (r *patientRepository) Delete(id uint) error {
	return r.db.Delete(&model.Patient{}, id).Error
}
