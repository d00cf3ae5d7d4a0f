package postgres

import (
	"context"
	"time"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxAttemptListLimit = 200

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	return a.getDB(tx).WithContext(ctx).Create(attempt).Error
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.getDB(tx).WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

// GetByIDForUpdate issues SELECT ... FOR UPDATE; tx must be non-nil for the
// lock to outlive the statement.
func (a AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.getDB(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByIDWithItems(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.withDetails(a.getDB(tx).WithContext(ctx)).
		First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Finalize transitions IN_PROGRESS -> SUBMITTED. The status predicate makes a
// repeated call affect zero rows.
func (a AttemptPostgreSQL) Finalize(ctx context.Context, tx *gorm.DB, id string, totalScore float64, submittedAt time.Time) (bool, error) {
	result := a.getDB(tx).WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", id, models.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":       models.AttemptStatusSubmitted,
			"total_score":  totalScore,
			"submitted_at": submittedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (a AttemptPostgreSQL) Cancel(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	result := a.getDB(tx).WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", id, models.AttemptStatusInProgress).
		Update("status", models.AttemptStatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (a AttemptPostgreSQL) ListWithDetails(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	var attempts []*models.Attempt

	query := a.getDB(tx).WithContext(ctx).Model(&models.Attempt{})
	query = a.applyFiltersAttempt(query, filters)
	query = a.applyPaginationAndSortAttempt(query, filters)

	if err := a.withDetails(query).Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}

func (a AttemptPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	filters.StudentID = &studentID
	return a.ListWithDetails(ctx, tx, filters)
}

// ===== HELPERS =====

func (a AttemptPostgreSQL) withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Student").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Preload("Items.Question")
}

func (a AttemptPostgreSQL) applyFiltersAttempt(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("COALESCE(submitted_at, started_at) >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("COALESCE(submitted_at, started_at) < ?", *filters.DateTo)
	}
	return query
}

func (a AttemptPostgreSQL) applyPaginationAndSortAttempt(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	query = query.Order("COALESCE(submitted_at, started_at) DESC").Order("id ASC")

	limit := filters.Limit
	if limit <= 0 || limit > maxAttemptListLimit {
		limit = maxAttemptListLimit
	}
	return query.Limit(limit)
}

func (a AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
