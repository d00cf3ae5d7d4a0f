package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m11312045/pneumatic-app/internal/events"
	"github.com/m11312045/pneumatic-app/internal/grading"
	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/m11312045/pneumatic-app/internal/storage"
	"github.com/m11312045/pneumatic-app/internal/validator"
	"gorm.io/datatypes"
)

const defaultGradeTimeout = 60 * time.Second

type AnswerConfig struct {
	Policy       grading.ScoringPolicy
	GradeTimeout time.Duration
}

type answerService struct {
	repo      repositories.Repository
	attempts  AttemptService
	store     storage.ObjectStore
	grader    grading.Grader
	config    AnswerConfig
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	validator *validator.Validator
	logger    *slog.Logger
	ops       *ServiceLogger
	now       func() time.Time
}

func NewAnswerService(
	repo repositories.Repository,
	attempts AttemptService,
	store storage.ObjectStore,
	grader grading.Grader,
	config AnswerConfig,
	publisher events.EventPublisher,
	m *metrics.Metrics,
	validator *validator.Validator,
	logger *slog.Logger,
) AnswerService {
	if config.GradeTimeout <= 0 {
		config.GradeTimeout = defaultGradeTimeout
	}
	return &answerService{
		repo:      repo,
		attempts:  attempts,
		store:     store,
		grader:    grader,
		config:    config,
		publisher: publisher,
		metrics:   m,
		validator: validator,
		logger:    logger,
		ops:       NewServiceLogger(logger, "answer"),
		now:       time.Now,
	}
}

// Submit runs upload, grade, score and persist for one question. An upload
// or grading failure returns a *CollaboratorError and writes nothing.
func (s *answerService) Submit(ctx context.Context, req *SubmitAnswerRequest) (*models.Answer, error) {
	op := s.ops.WithOperation(ctx, "submit_answer")
	answer, err := s.submit(ctx, req)
	resourceID := ""
	if req != nil {
		resourceID = fmt.Sprintf("%s/%d", req.AttemptID, req.Seq)
	}
	op.LogResult(resourceID, err)
	return answer, err
}

func (s *answerService) submit(ctx context.Context, req *SubmitAnswerRequest) (*models.Answer, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, ErrImageRequired
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	s.logger.Info("Submitting answer",
		"attempt_id", req.AttemptID,
		"seq", req.Seq,
		"image_bytes", len(req.Image))

	attempt, item, err := s.loadTarget(ctx, req.AttemptID, req.Seq)
	if err != nil {
		return nil, err
	}
	question := item.Question

	// ===== UPLOAD =====
	imageURL, err := s.upload(ctx, req)
	if err != nil {
		return nil, err
	}

	// ===== GRADE =====
	analysis, err := s.grade(ctx, question, imageURL)
	if err != nil {
		return nil, err
	}

	// ===== SCORE =====
	breakdown := s.config.Policy.Score(question.Variant, analysis, grading.PointValue(attempt.QuestionCount()))

	// ===== PERSIST =====
	answeredAt := s.now()
	labels := analysis.DetectedComponents
	if !question.Variant.IsBasic() {
		labels = []string{}
	}
	feedback := feedbackFor(question, analysis)

	outcome := &repositories.ItemOutcome{
		AnswerImageURL: imageURL,
		DetectedLabels: labels,
		MatchPass:      analysis.IsCorrect,
		Score:          breakdown.Total,
		Feedback:       feedback,
		AnsweredAt:     answeredAt,
		AIProvider:     analysis.Provider,
		AIModel:        optionalString(analysis.Model),
		AIResult:       rawResult(analysis),
	}
	if err := s.attempts.RecordAnswer(ctx, attempt.ID, req.Seq, outcome); err != nil {
		return nil, err
	}

	answer := &models.Answer{
		AttemptID:      attempt.ID,
		QuestionID:     question.ID,
		Seq:            req.Seq,
		ImageURL:       imageURL,
		DetectedLabels: labels,
		IsCorrect:      analysis.IsCorrect,
		Score:          breakdown.Total,
		BaseScore:      breakdown.Base,
		BonusScore:     breakdown.Bonus,
		Feedback:       feedback,
		Analysis:       analysis,
		AnsweredAt:     answeredAt,
	}

	s.metrics.ObserveAnswer(string(question.Variant), analysis.IsCorrect)
	publishEvent(ctx, s.publisher, s.logger, events.NewAnswerGradedEvent(answer, question.Variant))

	s.logger.Info("Answer graded",
		"attempt_id", attempt.ID,
		"seq", req.Seq,
		"variant", question.Variant,
		"is_correct", analysis.IsCorrect,
		"score", breakdown.Total,
		"provider", analysis.Provider)

	return answer, nil
}

// loadTarget checks every precondition before any collaborator is called.
func (s *answerService) loadTarget(ctx context.Context, attemptID string, seq int) (*models.Attempt, *models.AttemptItem, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return nil, nil, fmt.Errorf("%w: status %s", ErrAttemptNotActive, attempt.Status)
	}
	if attempt.QuestionCount() == 0 {
		return nil, nil, ErrQuestionCountInvalid
	}

	item, err := s.repo.AttemptItem().GetByAttemptAndSeq(ctx, nil, attemptID, seq)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, fmt.Errorf("%w: attempt %s seq %d", ErrAttemptItemNotFound, attemptID, seq)
		}
		return nil, nil, fmt.Errorf("failed to get attempt item: %w", err)
	}
	if item.Question == nil {
		return nil, nil, ErrQuestionNotLoaded
	}
	return attempt, item, nil
}

func (s *answerService) upload(ctx context.Context, req *SubmitAnswerRequest) (string, error) {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	path := storage.AnswerImagePath(req.AttemptID, req.Seq, storage.ExtensionFor(contentType))

	started := time.Now()
	url, err := s.store.Put(ctx, path, bytes.NewReader(req.Image), int64(len(req.Image)), contentType)
	s.metrics.ObserveStage(StageUpload, started, err)
	if err != nil {
		s.logger.Warn("Answer image upload failed",
			"attempt_id", req.AttemptID,
			"seq", req.Seq,
			"path", path,
			"error", err)
		return "", newCollaboratorError(StageUpload, err)
	}
	return url, nil
}

func (s *answerService) grade(ctx context.Context, question *models.Question, imageURL string) (*models.AnalysisResult, error) {
	gradeCtx, cancel := context.WithTimeout(ctx, s.config.GradeTimeout)
	defer cancel()

	started := time.Now()
	analysis, err := s.grader.Grade(gradeCtx, grading.NewRequest(question, imageURL))
	if err == nil && analysis == nil {
		err = grading.ErrEmptyResponse
	}
	s.metrics.ObserveStage(StageGrade, started, err)
	if err != nil {
		s.logger.Warn("Grading failed",
			"question_id", question.ID,
			"variant", question.Variant,
			"grader", s.grader.Name(),
			"error", err)
		return nil, newCollaboratorError(StageGrade, err)
	}

	analysis.Provider = grading.NormalizeProvider(analysis.Provider, "")
	if analysis.DetectedComponents == nil {
		analysis.DetectedComponents = []string{}
	}
	return analysis, nil
}

// feedbackFor shows basic questions the explanation when they are wrong and
// the grader's advice otherwise. Advanced questions always get the advice.
func feedbackFor(question *models.Question, analysis *models.AnalysisResult) *string {
	advice := strings.TrimSpace(analysis.Advice)
	if question.Variant.IsBasic() && !analysis.IsCorrect && question.Explanation != nil {
		if explanation := strings.TrimSpace(*question.Explanation); explanation != "" {
			return &explanation
		}
	}
	return optionalString(advice)
}

// rawResult keeps the grader's own payload when it sent one.
func rawResult(analysis *models.AnalysisResult) datatypes.JSON {
	if len(analysis.Raw) > 0 && json.Valid(analysis.Raw) {
		return datatypes.JSON(analysis.Raw)
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
