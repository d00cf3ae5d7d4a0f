package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/m11312045/pneumatic-app/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned by implementations that do not surface
// gorm.ErrRecordNotFound themselves, such as zero-row conditional updates.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err denotes a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// AttemptRepository interface for quiz attempt operations
type AttemptRepository interface {
	// Basic operations
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error)
	GetByIDWithItems(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) // items by seq, with questions

	// GetByIDForUpdate reads the attempt and holds its row lock until tx ends.
	// Writers to the attempt or its items take this lock first.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error)

	// Status transitions. Both apply only while the attempt is IN_PROGRESS and
	// report whether a row was changed.
	Finalize(ctx context.Context, tx *gorm.DB, id string, totalScore float64, submittedAt time.Time) (bool, error)
	Cancel(ctx context.Context, tx *gorm.DB, id string) (bool, error)

	// History. Ordered by COALESCE(submitted_at, started_at) descending, with
	// student, items and item questions preloaded.
	ListWithDetails(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.Attempt, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttemptFilters) ([]*models.Attempt, error)
}

// AttemptItemRepository interface for per-question records of an attempt
type AttemptItemRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, items []*models.AttemptItem) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.AttemptItem, error)
	GetByAttemptAndSeq(ctx context.Context, tx *gorm.DB, attemptID string, seq int) (*models.AttemptItem, error)

	// ApplyOutcome writes the whole outcome in one UPDATE keyed by
	// (attemptID, seq), only while the attempt is IN_PROGRESS. It returns
	// ErrNotFound when no row matches.
	ApplyOutcome(ctx context.Context, tx *gorm.DB, attemptID string, seq int, outcome *ItemOutcome) error

	CountAnswered(ctx context.Context, tx *gorm.DB, attemptID string) (int64, error)
}
