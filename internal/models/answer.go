package models

import (
	"encoding/json"
	"time"
)

// AnalysisResult is the grader's normalized output. Absent flags are false
// and absent lists are empty; the raw payload is kept for auditing.
type AnalysisResult struct {
	IsCorrect          bool            `json:"isCorrect"`
	BonusCorrect       bool            `json:"bonusCorrect"`
	LogicEquation      string          `json:"logicEquation,omitempty"`
	Advice             string          `json:"advice,omitempty"`
	DetectedComponents []string        `json:"detectedComponents"`
	Confidence         float64         `json:"confidence,omitempty"`
	Provider           string          `json:"ai_provider"`
	Model              string          `json:"ai_model,omitempty"`
	Raw                json.RawMessage `json:"raw,omitempty"`
}

// Answer is the enriched per-question response returned to the caller after
// grading. Its durable form is the AttemptItem.
type Answer struct {
	AttemptID      string          `json:"attempt_id"`
	QuestionID     string          `json:"question_id"`
	Seq            int             `json:"seq"`
	ImageURL       string          `json:"image_url"`
	DetectedLabels []string        `json:"detected_labels"`
	IsCorrect      bool            `json:"is_correct"`
	Score          float64         `json:"score"`
	BaseScore      float64         `json:"base_score"`
	BonusScore     float64         `json:"bonus_score"`
	Feedback       *string         `json:"feedback,omitempty"`
	Analysis       *AnalysisResult `json:"analysis"`
	AnsweredAt     time.Time       `json:"answered_at"`
}
