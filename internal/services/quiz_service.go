package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/validator"
)

type QuizConfig struct {
	Plan            SamplingPlan
	ShuffleCombined bool
}

type quizService struct {
	catalog   CatalogService
	sampler   *Sampler
	attempts  AttemptService
	config    QuizConfig
	metrics   *metrics.Metrics
	validator *validator.Validator
	logger    *slog.Logger
	ops       *ServiceLogger
}

func NewQuizService(
	catalog CatalogService,
	sampler *Sampler,
	attempts AttemptService,
	config QuizConfig,
	m *metrics.Metrics,
	validator *validator.Validator,
	logger *slog.Logger,
) QuizService {
	return &quizService{
		catalog:   catalog,
		sampler:   sampler,
		attempts:  attempts,
		config:    config,
		metrics:   m,
		validator: validator,
		logger:    logger,
		ops:       NewServiceLogger(logger, "quiz"),
	}
}

// StartQuiz samples a quiz from the active catalog and opens an attempt for
// it. A shortage is reported in the session, not as an error.
func (s *quizService) StartQuiz(ctx context.Context, req *StartQuizRequest) (*QuizSession, error) {
	op := s.ops.WithOperation(ctx, "start_quiz")
	session, err := s.startQuiz(ctx, req)
	resourceID := ""
	if session != nil {
		resourceID = session.Attempt.ID
	}
	op.LogResult(resourceID, err)
	return session, err
}

func (s *quizService) startQuiz(ctx context.Context, req *StartQuizRequest) (*QuizSession, error) {
	if req == nil {
		return nil, NewValidationError("request", "is required", nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	catalog, err := s.catalog.ActiveQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}

	sample := s.sampler.Sample(catalog, s.config.Plan)
	if len(sample.Questions) == 0 {
		return nil, ErrNoQuestionsSelected
	}
	s.reportShortage(req.StudentID, sample.Shortage)

	questions := sample.Questions
	if s.config.ShuffleCombined {
		s.sampler.Shuffle(questions)
	}

	attempt, err := s.attempts.Open(ctx, req.StudentID, questions)
	if err != nil {
		return nil, err
	}

	return &QuizSession{
		Attempt:   attempt,
		Questions: questions,
		Shortage:  sample.Shortage,
		Warnings:  sample.Shortage.Messages(),
	}, nil
}

func (s *quizService) reportShortage(studentID string, report ShortageReport) {
	if report.Basic.Short() {
		s.metrics.ObserveShortage(PoolBasic)
	}
	if report.Advanced.Short() {
		s.metrics.ObserveShortage(PoolAdvanced)
	}
	if report.AdvancedHard.Short() {
		s.metrics.ObserveShortage(PoolAdvancedHard)
	}
	if report.HasShortage() {
		s.logger.Warn("Question pool shortage",
			"student_id", studentID,
			"basic", report.Basic,
			"advanced", report.Advanced,
			"advanced_hard", report.AdvancedHard)
	}
}
