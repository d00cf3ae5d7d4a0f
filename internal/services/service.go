package services

import (
	"log/slog"
	"math/rand"

	"github.com/m11312045/pneumatic-app/internal/cache"
	"github.com/m11312045/pneumatic-app/internal/config"
	"github.com/m11312045/pneumatic-app/internal/events"
	"github.com/m11312045/pneumatic-app/internal/grading"
	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/m11312045/pneumatic-app/internal/storage"
	"github.com/m11312045/pneumatic-app/internal/validator"
)

// ServiceManager exposes every service to the transport layer.
type ServiceManager interface {
	Catalog() CatalogService
	Student() StudentService
	Attempt() AttemptService
	Answer() AnswerService
	Scoring() ScoringService
	History() HistoryService
	Export() ExportService
	Quiz() QuizService
}

// Dependencies are the collaborators the services are built on. Cache,
// Publisher and Metrics may be nil.
type Dependencies struct {
	Repo      repositories.Repository
	Cache     cache.CacheService
	Store     storage.ObjectStore
	Grader    grading.Grader
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	Validator *validator.Validator
	Logger    *slog.Logger
	Random    rand.Source
}

type serviceManager struct {
	catalog CatalogService
	student StudentService
	attempt AttemptService
	answer  AnswerService
	scoring ScoringService
	history HistoryService
	export  ExportService
	quiz    QuizService
}

func NewServiceManager(deps Dependencies, quizConfig config.QuizConfig, graderConfig config.GraderConfig) ServiceManager {
	catalog := NewCatalogService(deps.Repo, deps.Cache, quizConfig.CatalogCacheTTL, deps.Validator, deps.Logger)
	attempt := NewAttemptService(deps.Repo, deps.Publisher, deps.Metrics, deps.Logger)
	history := NewHistoryService(deps.Repo, deps.Validator, deps.Logger, quizConfig.HistoryLimit)

	answer := NewAnswerService(deps.Repo, attempt, deps.Store, deps.Grader, AnswerConfig{
		Policy:       grading.ScoringPolicy{BonusRequiresBase: quizConfig.BonusRequiresBase},
		GradeTimeout: graderConfig.Timeout,
	}, deps.Publisher, deps.Metrics, deps.Validator, deps.Logger)

	quiz := NewQuizService(catalog, NewSampler(deps.Random), attempt, QuizConfig{
		Plan: SamplingPlan{
			BasicNeed:      quizConfig.BasicNeed,
			AdvNeed:        quizConfig.AdvNeed,
			AdvHardCap:     quizConfig.AdvHardCap,
			HardDifficulty: quizConfig.HardDifficulty,
		},
		ShuffleCombined: quizConfig.ShuffleCombined,
	}, deps.Metrics, deps.Validator, deps.Logger)

	return &serviceManager{
		catalog: catalog,
		student: NewStudentService(deps.Repo, deps.Validator, deps.Logger),
		attempt: attempt,
		answer:  answer,
		scoring: NewScoringService(deps.Repo, deps.Publisher, deps.Metrics, deps.Logger),
		history: history,
		export:  NewExportService(history, deps.Logger),
		quiz:    quiz,
	}
}

func (sm *serviceManager) Catalog() CatalogService { return sm.catalog }
func (sm *serviceManager) Student() StudentService { return sm.student }
func (sm *serviceManager) Attempt() AttemptService { return sm.attempt }
func (sm *serviceManager) Answer() AnswerService   { return sm.answer }
func (sm *serviceManager) Scoring() ScoringService { return sm.scoring }
func (sm *serviceManager) History() HistoryService { return sm.history }
func (sm *serviceManager) Export() ExportService   { return sm.export }
func (sm *serviceManager) Quiz() QuizService       { return sm.quiz }
