package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Student struct {
	ID        string `json:"id" gorm:"type:uuid;primaryKey"`
	StudentNo string `json:"student_no" gorm:"not null;size:64;uniqueIndex:idx_student_identity"`
	Name      string `json:"name" gorm:"not null;size:100;uniqueIndex:idx_student_identity"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Student) TableName() string {
	return "students"
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
