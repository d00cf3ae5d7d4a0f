package repositories

import (
	"context"

	"github.com/m11312045/pneumatic-app/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository is read-only: the catalog is maintained by an external
// administrative process.
type QuestionRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error)
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)

	// ListActive returns every active question.
	ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Question, error)
}
