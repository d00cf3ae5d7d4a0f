package services

import (
	"context"
	"time"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
)

// ===== SERVICE INTERFACES =====

type CatalogService interface {
	ActiveQuestions(ctx context.Context) ([]*models.Question, error)
	SearchQuestions(ctx context.Context, query QuestionQuery) (*QuestionPage, error)
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	InvalidateCache(ctx context.Context) error
}

type StudentService interface {
	LoginOrRegister(ctx context.Context, req *LoginRequest) (*models.Student, error)
	GetByID(ctx context.Context, id string) (*models.Student, error)
}

// AttemptService owns the IN_PROGRESS -> SUBMITTED | CANCELLED state machine.
type AttemptService interface {
	Open(ctx context.Context, studentID string, questions []*models.Question) (*models.Attempt, error)
	RecordAnswer(ctx context.Context, attemptID string, seq int, outcome *repositories.ItemOutcome) error
	Finalize(ctx context.Context, attemptID string, totalScore float64) (*FinalizeResult, error)
	Cancel(ctx context.Context, attemptID string) error
	Get(ctx context.Context, attemptID string) (*models.Attempt, error)
}

type AnswerService interface {
	Submit(ctx context.Context, req *SubmitAnswerRequest) (*models.Answer, error)
}

type ScoringService interface {
	FinalizeIfComplete(ctx context.Context, attemptID string) (*ScoringOutcome, error)
}

type HistoryService interface {
	List(ctx context.Context, query HistoryQuery) ([]*AttemptHistory, error)
	ListByStudent(ctx context.Context, studentID string, query HistoryQuery) ([]*AttemptHistory, error)
}

type ExportService interface {
	ExportHistoryXLSX(ctx context.Context, query HistoryQuery) ([]byte, error)
}

type QuizService interface {
	StartQuiz(ctx context.Context, req *StartQuizRequest) (*QuizSession, error)
}

// ===== REQUEST / RESPONSE TYPES =====

type LoginRequest struct {
	StudentNo string `json:"student_no" validate:"required,notblank,max=50"`
	Name      string `json:"name" validate:"required,notblank,max=100"`
}

type StartQuizRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
}

type SubmitAnswerRequest struct {
	AttemptID   string `json:"attempt_id" validate:"required,uuid"`
	Seq         int    `json:"seq" validate:"min=1"`
	Image       []byte `json:"-"`
	ContentType string `json:"content_type"`
}

type FinalizeResult struct {
	Attempt *models.Attempt `json:"attempt"`
	// Applied is false when the attempt had already been submitted.
	Applied bool `json:"applied"`
}

type ScoringOutcome struct {
	AttemptID        string          `json:"attempt_id"`
	Finalized        bool            `json:"finalized"`
	AlreadyFinalized bool            `json:"already_finalized"`
	Answered         int             `json:"answered"`
	Total            int             `json:"total"`
	TotalScore       float64         `json:"total_score"`
	Attempt          *models.Attempt `json:"attempt,omitempty"`
}

// QuestionQuery lists the active catalog page by page.
type QuestionQuery struct {
	Variant    string `json:"variant" form:"variant" validate:"omitempty,question_variant"`
	Difficulty int    `json:"difficulty" form:"difficulty" validate:"omitempty,min=1,max=3"`
	Limit      int    `json:"limit" form:"limit" validate:"omitempty,min=1,max=200"`
	Offset     int    `json:"offset" form:"offset" validate:"omitempty,min=0"`
	SortBy     string `json:"sort_by" form:"sort_by" validate:"omitempty,oneof=created_at difficulty"`
	SortOrder  string `json:"sort_order" form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type QuestionPage struct {
	Questions []*models.Question `json:"questions"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// HistoryQuery selects attempts by recency. Status overrides
// IncludeInProgress; From and To are calendar days, both inclusive.
type HistoryQuery struct {
	Limit             int        `json:"limit" form:"limit" validate:"omitempty,min=1,max=200"`
	ViewerID          string     `json:"viewer_id" form:"viewer_id" validate:"omitempty,uuid"`
	MineFirst         bool       `json:"mine_first" form:"mine_first"`
	IncludeInProgress bool       `json:"include_in_progress" form:"include_in_progress"`
	Status            string     `json:"status" form:"status" validate:"omitempty,attempt_status"`
	From              *time.Time `json:"from" form:"from" time_format:"2006-01-02" time_utc:"1"`
	To                *time.Time `json:"to" form:"to" time_format:"2006-01-02" time_utc:"1"`
}

// AttemptHistory is the read-only projection of one attempt.
type AttemptHistory struct {
	ID            string               `json:"id"`
	StudentID     string               `json:"student_id"`
	StudentNo     string               `json:"student_no"`
	StudentName   string               `json:"student_name"`
	Status        models.AttemptStatus `json:"status"`
	TotalScore    float64              `json:"total_score"`
	StartedAt     time.Time            `json:"started_at"`
	SubmittedAt   *time.Time           `json:"submitted_at"`
	CopyCount     int                  `json:"copy_count"`
	TextCount     int                  `json:"text_count"`
	AdvancedCount int                  `json:"advanced_count"`
	QuestionCount int                  `json:"question_count"`
	AnsweredCount int                  `json:"answered_count"`
	CorrectCount  int                  `json:"correct_count"`
	IsMine        bool                 `json:"is_mine"`
	Items         []models.AttemptItem `json:"items"`
}

type QuizSession struct {
	Attempt   *models.Attempt    `json:"attempt"`
	Questions []*models.Question `json:"questions"`
	Shortage  ShortageReport     `json:"shortage"`
	Warnings  []string           `json:"warnings,omitempty"`
}
