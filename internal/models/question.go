package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionVariant is the grading modality of a question.
type QuestionVariant string

const (
	VariantCopy     QuestionVariant = "COPY"
	VariantText     QuestionVariant = "TEXT"
	VariantAdvanced QuestionVariant = "ADVANCED"
)

// IsBasic reports whether the variant is graded by label matching.
func (v QuestionVariant) IsBasic() bool {
	return v == VariantCopy || v == VariantText
}

func (v QuestionVariant) IsValid() bool {
	switch v {
	case VariantCopy, VariantText, VariantAdvanced:
		return true
	}
	return false
}

const DefaultDifficulty = 1

type Question struct {
	ID      string          `json:"id" gorm:"type:uuid;primaryKey"`
	Variant QuestionVariant `json:"question_type" gorm:"column:question_type;not null;size:16;index"`
	Title   *string         `json:"title" gorm:"size:200"`

	// Prompt
	PromptText     *string `json:"prompt_text" gorm:"type:text"`
	PromptImageURL *string `json:"prompt_image_url" gorm:"type:text"`
	AnswerImageURL *string `json:"answer_image_url" gorm:"type:text"`
	Explanation    *string `json:"explanation" gorm:"type:text"`

	// Grading reference; only consulted for COPY and TEXT
	ExpectedLabels pq.StringArray `json:"expected_labels" gorm:"type:text[]"`
	ExpectedCounts datatypes.JSON `json:"expected_counts" gorm:"type:jsonb"`

	Difficulty *int `json:"difficulty" gorm:"check:difficulty BETWEEN 1 AND 3"`
	IsActive   bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// DifficultyLevel returns the stored difficulty, treating an absent value as 1.
func (q *Question) DifficultyLevel() int {
	if q.Difficulty == nil {
		return DefaultDifficulty
	}
	return *q.Difficulty
}

// Counts decodes ExpectedCounts. Malformed or absent counts yield an empty map.
func (q *Question) Counts() map[string]int {
	counts := map[string]int{}
	if len(q.ExpectedCounts) == 0 {
		return counts
	}
	if err := json.Unmarshal(q.ExpectedCounts, &counts); err != nil {
		return map[string]int{}
	}
	return counts
}

// ReferenceImageURL is the image the grader compares the answer against:
// the prompt image for COPY, the stored answer image for TEXT.
func (q *Question) ReferenceImageURL() *string {
	switch q.Variant {
	case VariantCopy:
		return q.PromptImageURL
	case VariantText:
		return q.AnswerImageURL
	}
	return nil
}
