package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"gorm.io/gorm"
)

type AttemptItemPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptItemPostgreSQL(db *gorm.DB) repositories.AttemptItemRepository {
	return &AttemptItemPostgreSQL{db: db}
}

func (a AttemptItemPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, items []*models.AttemptItem) error {
	if len(items) == 0 {
		return nil
	}
	return a.getDB(tx).WithContext(ctx).Create(&items).Error
}

func (a AttemptItemPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.AttemptItem, error) {
	var items []*models.AttemptItem
	if err := a.getDB(tx).WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("seq ASC").
		Preload("Question").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (a AttemptItemPostgreSQL) GetByAttemptAndSeq(ctx context.Context, tx *gorm.DB, attemptID string, seq int) (*models.AttemptItem, error) {
	var item models.AttemptItem
	if err := a.getDB(tx).WithContext(ctx).
		Where("attempt_id = ? AND seq = ?", attemptID, seq).
		Preload("Question").
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ApplyOutcome sets every answer column in one statement so readers never see
// a partially graded item.
func (a AttemptItemPostgreSQL) ApplyOutcome(ctx context.Context, tx *gorm.DB, attemptID string, seq int, outcome *repositories.ItemOutcome) error {
	labels := outcome.DetectedLabels
	if labels == nil {
		labels = []string{}
	}

	result := a.getDB(tx).WithContext(ctx).
		Model(&models.AttemptItem{}).
		Where("attempt_id = ? AND seq = ?", attemptID, seq).
		Where("EXISTS (SELECT 1 FROM attempts WHERE attempts.id = attempt_items.attempt_id AND attempts.status = ?)",
			models.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"answer_image_url": outcome.AnswerImageURL,
			"detected_labels":  pq.StringArray(labels),
			"match_pass":       outcome.MatchPass,
			"score":            outcome.Score,
			"feedback":         outcome.Feedback,
			"answered_at":      outcome.AnsweredAt,
			"ai_provider":      outcome.AIProvider,
			"ai_model":         outcome.AIModel,
			"ai_result":        outcome.AIResult,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (a AttemptItemPostgreSQL) CountAnswered(ctx context.Context, tx *gorm.DB, attemptID string) (int64, error) {
	var count int64
	if err := a.getDB(tx).WithContext(ctx).
		Model(&models.AttemptItem{}).
		Where("attempt_id = ? AND answered_at IS NOT NULL", attemptID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (a AttemptItemPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
