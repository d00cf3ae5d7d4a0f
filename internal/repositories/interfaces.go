package repositories

import (
	"context"
	"time"

	"github.com/m11312045/pneumatic-app/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository groups the per-aggregate repositories. Every method accepts an
// optional tx; nil runs against the root connection.
type Repository interface {
	Question() QuestionRepository
	Student() StudentRepository
	Attempt() AttemptRepository
	AttemptItem() AttemptItemRepository

	// WithTransaction runs fn inside one transaction, rolling back when fn
	// returns an error.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Variant    *models.QuestionVariant `json:"variant"`
	Difficulty *int                    `json:"difficulty"`
	ActiveOnly bool                    `json:"active_only"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`    // "created_at", "difficulty"
	SortOrder  string                  `json:"sort_order"` // "asc", "desc"
}

// AttemptFilters bound recency to [DateFrom, DateTo).
type AttemptFilters struct {
	Status    models.AttemptStatus `json:"status"`
	StudentID *string              `json:"student_id"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
}

// ===== SHARED HELPER STRUCTS =====

// ItemOutcome is the full graded result written to one attempt item in a
// single update.
type ItemOutcome struct {
	AnswerImageURL string         `json:"answer_image_url"`
	DetectedLabels []string       `json:"detected_labels"`
	MatchPass      bool           `json:"match_pass"`
	Score          float64        `json:"score"`
	Feedback       *string        `json:"feedback"`
	AnsweredAt     time.Time      `json:"answered_at"`
	AIProvider     string         `json:"ai_provider"`
	AIModel        *string        `json:"ai_model"`
	AIResult       datatypes.JSON `json:"ai_result"`
}
