package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m11312045/pneumatic-app/internal/cache"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/m11312045/pneumatic-app/internal/validator"
)

const (
	catalogCacheKey     = "catalog:active"
	catalogCachePattern = "catalog:*"
)

type catalogService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	ttl       time.Duration
	validator *validator.Validator
	logger    *slog.Logger
}

// NewCatalogService reads the active catalog, caching it for ttl when c is
// not nil.
func NewCatalogService(repo repositories.Repository, c cache.CacheService, ttl time.Duration, validator *validator.Validator, logger *slog.Logger) CatalogService {
	return &catalogService{
		repo:      repo,
		cache:     c,
		ttl:       ttl,
		validator: validator,
		logger:    logger,
	}
}

func (s *catalogService) ActiveQuestions(ctx context.Context) ([]*models.Question, error) {
	if s.cache != nil {
		var cached []*models.Question
		err := s.cache.Get(ctx, catalogCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Catalog cache read failed", "error", err)
		}
	}

	questions, err := s.repo.Question().ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list active questions: %w", err)
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, catalogCacheKey, questions, s.ttl); err != nil {
			s.logger.Warn("Catalog cache write failed", "error", err)
		}
	}

	s.logger.Debug("Loaded active catalog", "count", len(questions))
	return questions, nil
}

// SearchQuestions pages through active questions straight from the store.
func (s *catalogService) SearchQuestions(ctx context.Context, query QuestionQuery) (*QuestionPage, error) {
	if err := s.validator.Validate(query); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	filters := repositories.QuestionFilters{
		ActiveOnly: true,
		Limit:      query.Limit,
		Offset:     query.Offset,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
	}
	if query.Variant != "" {
		variant := models.QuestionVariant(query.Variant)
		filters.Variant = &variant
	}
	if query.Difficulty != 0 {
		filters.Difficulty = &query.Difficulty
	}

	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	return &QuestionPage{
		Questions: questions,
		Total:     total,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}, nil
}

func (s *catalogService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

func (s *catalogService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeletePattern(ctx, catalogCachePattern); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}
