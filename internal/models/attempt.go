package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
	AttemptStatusCancelled  AttemptStatus = "CANCELLED"
)

const DefaultAIProvider = "GEMINI"

type Attempt struct {
	ID        string        `json:"id" gorm:"type:uuid;primaryKey"`
	StudentID string        `json:"student_id" gorm:"type:uuid;not null;index"`
	Status    AttemptStatus `json:"status" gorm:"not null;size:16;default:IN_PROGRESS;index"`

	// Per-variant item counts
	CopyCount     int `json:"copy_count" gorm:"not null;default:0"`
	TextCount     int `json:"text_count" gorm:"not null;default:0"`
	AdvancedCount int `json:"advanced_count" gorm:"not null;default:0"`

	// 0-100; meaningful only once SUBMITTED
	TotalScore float64 `json:"total_score" gorm:"not null;default:0"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt *time.Time `json:"submitted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Student *Student      `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Items   []AttemptItem `json:"items,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// QuestionCount is the number of items the attempt was opened with.
func (a *Attempt) QuestionCount() int {
	return a.CopyCount + a.TextCount + a.AdvancedCount
}

// RecencyAt is the submit time, or the start time when not yet submitted.
func (a *Attempt) RecencyAt() time.Time {
	if a.SubmittedAt != nil {
		return *a.SubmittedAt
	}
	return a.StartedAt
}

// ItemBySeq returns the item with the given sequence number, or nil.
func (a *Attempt) ItemBySeq(seq int) *AttemptItem {
	for i := range a.Items {
		if a.Items[i].Seq == seq {
			return &a.Items[i]
		}
	}
	return nil
}

type AttemptItem struct {
	ID         string `json:"id" gorm:"type:uuid;primaryKey"`
	AttemptID  string `json:"attempt_id" gorm:"type:uuid;not null;uniqueIndex:idx_attempt_items_attempt_seq"`
	QuestionID string `json:"question_id" gorm:"type:uuid;not null;index"`
	Seq        int    `json:"seq" gorm:"not null;uniqueIndex:idx_attempt_items_attempt_seq"`

	// Answer
	AnswerImageURL *string        `json:"answer_image_url" gorm:"type:text"`
	DetectedLabels pq.StringArray `json:"detected_labels" gorm:"type:text[]"`
	MatchPass      *bool          `json:"match_pass"`
	Score          float64        `json:"score" gorm:"not null;default:0"`
	Feedback       *string        `json:"feedback" gorm:"type:text"`
	AnsweredAt     *time.Time     `json:"answered_at"`

	// Grading provenance
	AIProvider string         `json:"ai_provider" gorm:"size:32;default:GEMINI"`
	AIModel    *string        `json:"ai_model" gorm:"size:100"`
	AIResult   datatypes.JSON `json:"ai_result" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (AttemptItem) TableName() string {
	return "attempt_items"
}

func (i *AttemptItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (i *AttemptItem) IsAnswered() bool {
	return i.AnsweredAt != nil
}

// IsCorrect treats an absent pass flag as incorrect.
func (i *AttemptItem) IsCorrect() bool {
	return i.MatchPass != nil && *i.MatchPass
}
