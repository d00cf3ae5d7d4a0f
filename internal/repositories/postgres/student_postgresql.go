package postgres

import (
	"context"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"gorm.io/gorm"
)

type StudentPostgreSQL struct {
	db *gorm.DB
}

func NewStudentPostgreSQL(db *gorm.DB) repositories.StudentRepository {
	return &StudentPostgreSQL{db: db}
}

func (s StudentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	var student models.Student
	if err := s.getDB(tx).WithContext(ctx).First(&student, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (s StudentPostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	var count int64
	if err := s.getDB(tx).WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s StudentPostgreSQL) FindOrCreate(ctx context.Context, tx *gorm.DB, studentNo, name string) (*models.Student, error) {
	student := models.Student{StudentNo: studentNo, Name: name}
	if err := s.getDB(tx).WithContext(ctx).
		Where(models.Student{StudentNo: studentNo, Name: name}).
		FirstOrCreate(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (s StudentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
