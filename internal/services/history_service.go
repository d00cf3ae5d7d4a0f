package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/m11312045/pneumatic-app/internal/validator"
	"github.com/samber/lo"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

type historyService struct {
	repo         repositories.Repository
	validator    *validator.Validator
	logger       *slog.Logger
	defaultLimit int
}

func NewHistoryService(repo repositories.Repository, validator *validator.Validator, logger *slog.Logger, defaultLimit int) HistoryService {
	if defaultLimit <= 0 || defaultLimit > MaxHistoryLimit {
		defaultLimit = DefaultHistoryLimit
	}
	return &historyService{
		repo:         repo,
		validator:    validator,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// List returns the most recent attempts with their items and questions. With
// MineFirst the viewer's attempts come first; recency order is kept inside
// each group.
func (s *historyService) List(ctx context.Context, query HistoryQuery) ([]*AttemptHistory, error) {
	filters, err := s.filtersFor(&query)
	if err != nil {
		return nil, err
	}

	attempts, err := s.repo.Attempt().ListWithDetails(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	history := lo.Map(attempts, func(a *models.Attempt, _ int) *AttemptHistory {
		return projectAttempt(a, query.ViewerID)
	})

	if query.MineFirst && query.ViewerID != "" {
		mine, others := lo.FilterReject(history, func(h *AttemptHistory, _ int) bool {
			return h.IsMine
		})
		history = append(mine, others...)
	}

	s.logger.Debug("History listed",
		"count", len(history),
		"viewer_id", query.ViewerID,
		"mine_first", query.MineFirst)

	return history, nil
}

// ListByStudent returns one student's attempts, most recent first.
func (s *historyService) ListByStudent(ctx context.Context, studentID string, query HistoryQuery) ([]*AttemptHistory, error) {
	query.ViewerID = studentID
	filters, err := s.filtersFor(&query)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.Student().ExistsByID(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check student: %w", err)
	}
	if !exists {
		return nil, ErrStudentNotFound
	}

	attempts, err := s.repo.Attempt().GetByStudent(ctx, nil, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list student attempts: %w", err)
	}

	s.logger.Debug("Student history listed", "student_id", studentID, "count", len(attempts))
	return lo.Map(attempts, func(a *models.Attempt, _ int) *AttemptHistory {
		return projectAttempt(a, studentID)
	}), nil
}

func (s *historyService) filtersFor(query *HistoryQuery) (repositories.AttemptFilters, error) {
	if err := s.validator.Validate(query); err != nil {
		return repositories.AttemptFilters{}, fmt.Errorf("validation failed: %w", err)
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return repositories.AttemptFilters{}, NewValidationError("to", "must not be before from", query.To.Format(time.DateOnly))
	}
	if query.Limit == 0 {
		query.Limit = s.defaultLimit
	}

	filters := repositories.AttemptFilters{
		Status:   models.AttemptStatus(query.Status),
		DateFrom: query.From,
		Limit:    query.Limit,
	}
	if filters.Status == "" && !query.IncludeInProgress {
		filters.Status = models.AttemptStatusSubmitted
	}
	if query.To != nil {
		end := query.To.AddDate(0, 0, 1)
		filters.DateTo = &end
	}
	return filters, nil
}

func projectAttempt(a *models.Attempt, viewerID string) *AttemptHistory {
	h := &AttemptHistory{
		ID:            a.ID,
		StudentID:     a.StudentID,
		Status:        a.Status,
		TotalScore:    a.TotalScore,
		StartedAt:     a.StartedAt,
		SubmittedAt:   a.SubmittedAt,
		CopyCount:     a.CopyCount,
		TextCount:     a.TextCount,
		AdvancedCount: a.AdvancedCount,
		QuestionCount: a.QuestionCount(),
		IsMine:        viewerID != "" && a.StudentID == viewerID,
		Items:         a.Items,
	}
	if a.Student != nil {
		h.StudentNo = a.Student.StudentNo
		h.StudentName = a.Student.Name
	}
	if h.Items == nil {
		h.Items = []models.AttemptItem{}
	}
	h.AnsweredCount = lo.CountBy(a.Items, func(item models.AttemptItem) bool {
		return item.IsAnswered()
	})
	h.CorrectCount = lo.CountBy(a.Items, func(item models.AttemptItem) bool {
		return item.IsCorrect()
	})
	return h
}
