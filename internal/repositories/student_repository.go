package repositories

import (
	"context"

	"github.com/m11312045/pneumatic-app/internal/models"
	"gorm.io/gorm"
)

// StudentRepository is the identity lookup the quiz depends on. Students are
// never updated or deleted here.
type StudentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error)
	ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error)

	// FindOrCreate returns the student matching (studentNo, name), creating it
	// when absent.
	FindOrCreate(ctx context.Context, tx *gorm.DB, studentNo, name string) (*models.Student, error)
}
