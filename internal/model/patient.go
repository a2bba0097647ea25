package model

import "time"

// Patient 定义了 patients 表的 ORM 模型。
type Patient struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Gender    string    `gorm:"type:varchar(10)" json:"gender"`
	BirthDate string    `gorm:"type:varchar(10)" json:"birthDate"` // YYYY-MM-DD
	Notes     string    `gorm:"type:text" json:"notes"`
	FolderID  *uint     `gorm:"index" json:"folderId"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Patient) TableName() string {
	return "patients"
}
