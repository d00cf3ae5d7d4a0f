package grading

import (
	"context"
	"errors"

	"github.com/m11312045/pneumatic-app/internal/models"
)

var (
	ErrUnsupportedVariant = errors.New("grader does not support this question variant")
	ErrEmptyResponse      = errors.New("grader returned no result")
)

// Request is everything the external grader sees for one answer.
type Request struct {
	Variant        models.QuestionVariant `json:"questionType"`
	PromptText     string                 `json:"promptText"`
	AnswerImageURL string                 `json:"answerImageUrl"`

	// ReferenceImageURL is the prompt image for COPY and the stored answer
	// image for TEXT. Rubric is the explanation text for ADVANCED.
	ReferenceImageURL string `json:"referenceImageUrl,omitempty"`
	Rubric            string `json:"bestAnswerText,omitempty"`

	ExpectedLabels []string       `json:"expectedLabels,omitempty"`
	ExpectedCounts map[string]int `json:"expectedCounts,omitempty"`
}

// NewRequest builds the grading request for question q answered at answerURL.
func NewRequest(q *models.Question, answerURL string) Request {
	req := Request{
		Variant:        q.Variant,
		AnswerImageURL: answerURL,
	}
	if q.PromptText != nil {
		req.PromptText = *q.PromptText
	}
	if q.Variant == models.VariantAdvanced {
		if q.Explanation != nil {
			req.Rubric = *q.Explanation
		}
		return req
	}
	if ref := q.ReferenceImageURL(); ref != nil {
		req.ReferenceImageURL = *ref
	}
	req.ExpectedLabels = append([]string(nil), q.ExpectedLabels...)
	req.ExpectedCounts = q.Counts()
	return req
}

// Grader inspects an answer image and returns a normalized analysis.
// Implementations may block on network I/O and must honor ctx.
type Grader interface {
	Grade(ctx context.Context, req Request) (*models.AnalysisResult, error)
	Name() string
}
