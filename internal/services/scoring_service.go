package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/m11312045/pneumatic-app/internal/events"
	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type scoringService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewScoringService(repo repositories.Repository, publisher events.EventPublisher, m *metrics.Metrics, logger *slog.Logger) ScoringService {
	return &scoringService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// FinalizeIfComplete submits the attempt once every item is answered. It is
// safe to call repeatedly; an incomplete attempt is left untouched.
//
// The attempt row stays locked while items are counted, summed and the
// status flips, so no answer can land between the sum and the transition.
func (s *scoringService) FinalizeIfComplete(ctx context.Context, attemptID string) (*ScoringOutcome, error) {
	var (
		outcome *ScoringOutcome
		result  *FinalizeResult
	)
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, err := lockAttempt(ctx, s.repo, tx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status == models.AttemptStatusCancelled {
			return ErrAttemptCancelled
		}

		answered, err := s.repo.AttemptItem().CountAnswered(ctx, tx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to count answered items: %w", err)
		}
		outcome = &ScoringOutcome{
			AttemptID: attempt.ID,
			Total:     attempt.QuestionCount(),
			Answered:  int(answered),
		}

		if attempt.Status == models.AttemptStatusSubmitted {
			outcome.AlreadyFinalized = true
			outcome.TotalScore = attempt.TotalScore
			return nil
		}
		if outcome.Total == 0 || outcome.Answered != outcome.Total {
			return nil
		}

		items, err := s.repo.AttemptItem().GetByAttempt(ctx, tx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to get attempt items: %w", err)
		}
		total := roundScore(lo.SumBy(items, func(item *models.AttemptItem) float64 {
			return item.Score
		}))

		result, err = finalizeLocked(ctx, s.repo, tx, attempt, total, s.now())
		if err != nil {
			return err
		}
		outcome.Finalized = result.Applied
		outcome.TotalScore = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case outcome.Finalized:
		announceSubmitted(ctx, s.publisher, s.metrics, s.logger, result.Attempt)
	case !outcome.AlreadyFinalized:
		s.logger.Info("Attempt incomplete, not finalizing",
			"attempt_id", attemptID,
			"answered", outcome.Answered,
			"total", outcome.Total)
	}

	outcome.Attempt, err = s.repo.Attempt().GetByIDWithItems(ctx, nil, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return outcome, nil
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
