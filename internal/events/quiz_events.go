package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/m11312045/pneumatic-app/internal/models"
)

// EventType represents the kinds of quiz lifecycle events
type EventType string

const (
	// Attempt events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventAttemptCancelled EventType = "attempt.cancelled"

	// Answer events
	EventAnswerGraded EventType = "answer.graded"
)

const (
	eventSource  = "pneumatic-quiz"
	eventVersion = "1.0"
)

// QuizEvent is the envelope for every published event
type QuizEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Attempt event payloads

type AttemptStartedEvent struct {
	AttemptID     string    `json:"attempt_id"`
	StudentID     string    `json:"student_id"`
	StartedAt     time.Time `json:"started_at"`
	QuestionCount int       `json:"question_count"`
	CopyCount     int       `json:"copy_count"`
	TextCount     int       `json:"text_count"`
	AdvancedCount int       `json:"advanced_count"`
}

type AttemptSubmittedEvent struct {
	AttemptID   string    `json:"attempt_id"`
	StudentID   string    `json:"student_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	TotalScore  float64   `json:"total_score"`
}

type AttemptCancelledEvent struct {
	AttemptID   string    `json:"attempt_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Answer event payloads

type AnswerGradedEvent struct {
	AttemptID  string                 `json:"attempt_id"`
	QuestionID string                 `json:"question_id"`
	Seq        int                    `json:"seq"`
	Variant    models.QuestionVariant `json:"variant"`
	IsCorrect  bool                   `json:"is_correct"`
	Score      float64                `json:"score"`
	Provider   string                 `json:"ai_provider"`
	Model      string                 `json:"ai_model,omitempty"`
}

// Event factory functions

func NewAttemptStartedEvent(attempt *models.Attempt) *QuizEvent {
	return newEvent(EventAttemptStarted, AttemptStartedEvent{
		AttemptID:     attempt.ID,
		StudentID:     attempt.StudentID,
		StartedAt:     attempt.StartedAt,
		QuestionCount: attempt.QuestionCount(),
		CopyCount:     attempt.CopyCount,
		TextCount:     attempt.TextCount,
		AdvancedCount: attempt.AdvancedCount,
	})
}

func NewAttemptSubmittedEvent(attemptID, studentID string, submittedAt time.Time, totalScore float64) *QuizEvent {
	return newEvent(EventAttemptSubmitted, AttemptSubmittedEvent{
		AttemptID:   attemptID,
		StudentID:   studentID,
		SubmittedAt: submittedAt,
		TotalScore:  totalScore,
	})
}

func NewAttemptCancelledEvent(attemptID string, cancelledAt time.Time) *QuizEvent {
	return newEvent(EventAttemptCancelled, AttemptCancelledEvent{
		AttemptID:   attemptID,
		CancelledAt: cancelledAt,
	})
}

func NewAnswerGradedEvent(answer *models.Answer, variant models.QuestionVariant) *QuizEvent {
	payload := AnswerGradedEvent{
		AttemptID:  answer.AttemptID,
		QuestionID: answer.QuestionID,
		Seq:        answer.Seq,
		Variant:    variant,
		IsCorrect:  answer.IsCorrect,
		Score:      answer.Score,
	}
	if answer.Analysis != nil {
		payload.Provider = answer.Analysis.Provider
		payload.Model = answer.Analysis.Model
	}
	return newEvent(EventAnswerGraded, payload)
}

func newEvent(eventType EventType, data interface{}) *QuizEvent {
	return &QuizEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// GenerateEventID returns a random event identifier
func GenerateEventID() string {
	return uuid.NewString()
}
