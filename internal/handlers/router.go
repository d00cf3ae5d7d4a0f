package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/services"
	"github.com/m11312045/pneumatic-app/internal/utils"
)

type HandlerManager struct {
	studentHandler *StudentHandler
	quizHandler    *QuizHandler
	historyHandler *HistoryHandler
	metrics        *metrics.Metrics
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	m *metrics.Metrics,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		studentHandler: NewStudentHandler(serviceManager.Student(), serviceManager.History(), logger),
		quizHandler:    NewQuizHandler(serviceManager, logger),
		historyHandler: NewHistoryHandler(serviceManager.History(), serviceManager.Export(), logger),
		metrics:        m,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)
	if hm.metrics != nil {
		router.GET("/metrics", hm.metrics.Handler())
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		students := v1.Group("/students")
		{
			students.POST("/login", hm.studentHandler.Login)
			students.GET("/:id", hm.studentHandler.GetStudent)
			students.GET("/:id/attempts", hm.studentHandler.ListStudentAttempts)
		}

		questions := v1.Group("/questions")
		{
			questions.GET("", hm.quizHandler.ListQuestions)
			questions.GET("/:id", hm.quizHandler.GetQuestion)
			questions.DELETE("/cache", hm.quizHandler.InvalidateCatalog)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.POST("", hm.quizHandler.StartAttempt)
			attempts.GET("/:id", hm.quizHandler.GetAttempt)
			attempts.POST("/:id/items/:seq/answer", hm.quizHandler.SubmitAnswer)
			attempts.POST("/:id/submit", hm.quizHandler.SubmitAttempt)
			attempts.POST("/:id/cancel", hm.quizHandler.CancelAttempt)
		}

		history := v1.Group("/history")
		{
			history.GET("", hm.historyHandler.ListHistory)
			history.GET("/export", hm.historyHandler.ExportHistory)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pneumatic-quiz",
	})
}
