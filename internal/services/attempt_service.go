package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m11312045/pneumatic-app/internal/events"
	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type attemptService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, publisher events.EventPublisher, m *metrics.Metrics, logger *slog.Logger) AttemptService {
	return &attemptService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Open creates the attempt and one item per question in a single
// transaction. Items are numbered from 1 in list order.
func (s *attemptService) Open(ctx context.Context, studentID string, questions []*models.Question) (*models.Attempt, error) {
	questions = lo.Compact(questions)
	if len(questions) == 0 {
		return nil, ErrNoQuestionsSelected
	}

	s.logger.Info("Opening attempt",
		"student_id", studentID,
		"question_count", len(questions))

	exists, err := s.repo.Student().ExistsByID(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check student: %w", err)
	}
	if !exists {
		return nil, ErrStudentNotFound
	}

	counts := lo.CountValuesBy(questions, func(q *models.Question) models.QuestionVariant {
		return q.Variant
	})

	attempt := &models.Attempt{
		StudentID:     studentID,
		Status:        models.AttemptStatusInProgress,
		CopyCount:     counts[models.VariantCopy],
		TextCount:     counts[models.VariantText],
		AdvancedCount: counts[models.VariantAdvanced],
		StartedAt:     s.now(),
	}

	items := make([]*models.AttemptItem, len(questions))
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Attempt().Create(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}

		for i, q := range questions {
			items[i] = &models.AttemptItem{
				AttemptID:  attempt.ID,
				QuestionID: q.ID,
				Seq:        i + 1,
				AIProvider: models.DefaultAIProvider,
			}
		}
		if err := s.repo.AttemptItem().CreateBatch(ctx, tx, items); err != nil {
			return fmt.Errorf("failed to create attempt items: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to open attempt", "student_id", studentID, "error", err)
		return nil, err
	}

	attempt.Items = make([]models.AttemptItem, len(items))
	for i, item := range items {
		item.Question = questions[i]
		attempt.Items[i] = *item
	}

	s.metrics.ObserveAttemptStarted()
	s.publish(ctx, events.NewAttemptStartedEvent(attempt))

	s.logger.Info("Attempt opened",
		"attempt_id", attempt.ID,
		"student_id", studentID,
		"copy_count", attempt.CopyCount,
		"text_count", attempt.TextCount,
		"advanced_count", attempt.AdvancedCount)

	return attempt, nil
}

// RecordAnswer writes outcome to the item (attemptID, seq) in one update.
// Repeated calls are last-write-wins.
func (s *attemptService) RecordAnswer(ctx context.Context, attemptID string, seq int, outcome *repositories.ItemOutcome) error {
	if outcome == nil {
		return NewValidationError("outcome", "is required", nil)
	}

	return s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, err := lockAttempt(ctx, s.repo, tx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptStatusInProgress {
			return fmt.Errorf("%w: status %s", ErrAttemptNotActive, attempt.Status)
		}

		if err := s.repo.AttemptItem().ApplyOutcome(ctx, tx, attemptID, seq, outcome); err != nil {
			if repositories.IsNotFoundError(err) {
				return fmt.Errorf("%w: attempt %s seq %d", ErrAttemptItemNotFound, attemptID, seq)
			}
			return fmt.Errorf("failed to record answer: %w", err)
		}

		s.logger.Debug("Answer recorded",
			"attempt_id", attemptID,
			"seq", seq,
			"score", outcome.Score,
			"match_pass", outcome.MatchPass)
		return nil
	})
}

// Finalize submits the attempt. A second call on a submitted attempt is a
// no-op that leaves the stored total and timestamp untouched.
func (s *attemptService) Finalize(ctx context.Context, attemptID string, totalScore float64) (*FinalizeResult, error) {
	if totalScore < 0 {
		return nil, NewValidationError("total_score", "must not be negative", totalScore)
	}

	var result *FinalizeResult
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, err := lockAttempt(ctx, s.repo, tx, attemptID)
		if err != nil {
			return err
		}
		result, err = finalizeLocked(ctx, s.repo, tx, attempt, totalScore, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		announceSubmitted(ctx, s.publisher, s.metrics, s.logger, result.Attempt)
	} else {
		s.logger.Info("Attempt already submitted, skipping finalize", "attempt_id", attemptID)
	}
	return result, nil
}

// Cancel abandons an in-progress attempt. Cancelling twice is a no-op.
func (s *attemptService) Cancel(ctx context.Context, attemptID string) error {
	applied, err := s.repo.Attempt().Cancel(ctx, nil, attemptID)
	if err != nil {
		return fmt.Errorf("failed to cancel attempt: %w", err)
	}

	if !applied {
		attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}
		switch attempt.Status {
		case models.AttemptStatusCancelled:
			return nil
		case models.AttemptStatusSubmitted:
			return ErrAttemptSubmitted
		default:
			return fmt.Errorf("failed to cancel attempt %s: status unchanged", attemptID)
		}
	}

	s.metrics.ObserveAttemptFinal(string(models.AttemptStatusCancelled))
	s.publish(ctx, events.NewAttemptCancelledEvent(attemptID, s.now()))

	s.logger.Info("Attempt cancelled", "attempt_id", attemptID)
	return nil
}

func (s *attemptService) Get(ctx context.Context, attemptID string) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithItems(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

// ===== HELPERS =====

// lockAttempt reads the attempt with its row lock held for the rest of tx.
func lockAttempt(ctx context.Context, repo repositories.Repository, tx *gorm.DB, attemptID string) (*models.Attempt, error) {
	attempt, err := repo.Attempt().GetByIDForUpdate(ctx, tx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to lock attempt: %w", err)
	}
	return attempt, nil
}

// finalizeLocked applies IN_PROGRESS -> SUBMITTED to an attempt locked by
// lockAttempt in the same tx.
func finalizeLocked(ctx context.Context, repo repositories.Repository, tx *gorm.DB, attempt *models.Attempt, totalScore float64, submittedAt time.Time) (*FinalizeResult, error) {
	switch attempt.Status {
	case models.AttemptStatusSubmitted:
		return &FinalizeResult{Attempt: attempt, Applied: false}, nil
	case models.AttemptStatusCancelled:
		return nil, ErrAttemptCancelled
	}

	applied, err := repo.Attempt().Finalize(ctx, tx, attempt.ID, totalScore, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize attempt: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("failed to finalize attempt %s: status unchanged", attempt.ID)
	}

	attempt.Status = models.AttemptStatusSubmitted
	attempt.TotalScore = totalScore
	attempt.SubmittedAt = &submittedAt
	return &FinalizeResult{Attempt: attempt, Applied: true}, nil
}

// announceSubmitted runs after the finalizing transaction commits.
func announceSubmitted(ctx context.Context, publisher events.EventPublisher, m *metrics.Metrics, logger *slog.Logger, attempt *models.Attempt) {
	m.ObserveAttemptFinal(string(models.AttemptStatusSubmitted))
	publishEvent(ctx, publisher, logger, events.NewAttemptSubmittedEvent(attempt.ID, attempt.StudentID, *attempt.SubmittedAt, attempt.TotalScore))

	logger.Info("Attempt submitted",
		"attempt_id", attempt.ID,
		"total_score", attempt.TotalScore)
}

func (s *attemptService) publish(ctx context.Context, event *events.QuizEvent) {
	publishEvent(ctx, s.publisher, s.logger, event)
}

// publishEvent is best effort: the state it reports is already committed.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event *events.QuizEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishQuizEvent(ctx, event); err != nil {
		logger.Warn("Failed to publish quiz event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
	}
}
