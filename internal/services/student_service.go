package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/m11312045/pneumatic-app/internal/validator"
)

type studentService struct {
	repo      repositories.Repository
	validator *validator.Validator
	logger    *slog.Logger
}

func NewStudentService(repo repositories.Repository, validator *validator.Validator, logger *slog.Logger) StudentService {
	return &studentService{
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

// LoginOrRegister returns the student with this number and name, creating
// the record on first login.
func (s *studentService) LoginOrRegister(ctx context.Context, req *LoginRequest) (*models.Student, error) {
	if req == nil {
		return nil, NewValidationError("request", "is required", nil)
	}
	normalized := LoginRequest{
		StudentNo: strings.TrimSpace(req.StudentNo),
		Name:      strings.TrimSpace(req.Name),
	}
	if err := s.validator.Validate(normalized); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	student, err := s.repo.Student().FindOrCreate(ctx, nil, normalized.StudentNo, normalized.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create student: %w", err)
	}

	s.logger.Info("Student logged in",
		"student_id", student.ID,
		"student_no", student.StudentNo)
	return student, nil
}

func (s *studentService) GetByID(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.Student().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}
