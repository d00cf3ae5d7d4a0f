package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m11312045/pneumatic-app/internal/services"
	"github.com/m11312045/pneumatic-app/internal/utils"
)

// MaxImageBytes bounds an uploaded answer photo.
const MaxImageBytes = 10 << 20

type QuizHandler struct {
	BaseHandler
	catalogService services.CatalogService
	quizService    services.QuizService
	attemptService services.AttemptService
	answerService  services.AnswerService
	scoringService services.ScoringService
}

func NewQuizHandler(sm services.ServiceManager, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler:    NewBaseHandler(logger),
		catalogService: sm.Catalog(),
		quizService:    sm.Quiz(),
		attemptService: sm.Attempt(),
		answerService:  sm.Answer(),
		scoringService: sm.Scoring(),
	}
}

// ListQuestions pages through the active catalog.
// @Summary Active questions
// @Tags questions
// @Produce json
// @Param variant query string false "COPY, TEXT or ADVANCED"
// @Param difficulty query int false "Difficulty (1-3)"
// @Param limit query int false "Page size (1-200)"
// @Param offset query int false "Rows to skip"
// @Param sort_by query string false "created_at or difficulty"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} SuccessResponse{data=services.QuestionPage}
// @Failure 400 {object} ErrorResponse
// @Router /questions [get]
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	var query services.QuestionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	page, err := h.catalogService.SearchQuestions(c.Request.Context(), query)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Questions retrieved", page, "count", len(page.Questions), "total", page.Total)
}

// GetQuestion returns one catalog question.
// @Summary Question detail
// @Tags questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} SuccessResponse{data=models.Question}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuizHandler) GetQuestion(c *gin.Context) {
	id := ParseUUIDParam(c, "id")
	if id == "" {
		return
	}

	question, err := h.catalogService.GetQuestion(c.Request.Context(), id)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Question retrieved", question, "question_id", id)
}

// InvalidateCatalog drops the cached catalog after questions are edited.
// @Summary Invalidate catalog cache
// @Tags questions
// @Success 200 {object} SuccessResponse
// @Router /questions/cache [delete]
func (h *QuizHandler) InvalidateCatalog(c *gin.Context) {
	if err := h.catalogService.InvalidateCache(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Catalog cache cleared", nil)
}

// StartAttempt samples a quiz and opens an attempt for it.
// @Summary Start quiz
// @Tags attempts
// @Accept json
// @Produce json
// @Param request body services.StartQuizRequest true "Student"
// @Success 201 {object} SuccessResponse{data=services.QuizSession}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts [post]
func (h *QuizHandler) StartAttempt(c *gin.Context) {
	var req services.StartQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	session, err := h.quizService.StartQuiz(c.Request.Context(), &req)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Attempt started", session,
		"attempt_id", session.Attempt.ID,
		"shortage", session.Shortage.HasShortage())
}

// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} SuccessResponse{data=models.Attempt}
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *QuizHandler) GetAttempt(c *gin.Context) {
	id := ParseUUIDParam(c, "id")
	if id == "" {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), id)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Attempt retrieved", attempt)
}

// SubmitAnswer uploads, grades and scores one answer photo.
// @Summary Submit answer
// @Tags attempts
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Attempt ID"
// @Param seq path int true "Item position"
// @Param image formData file true "Answer photo"
// @Success 200 {object} SuccessResponse{data=models.Answer}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /attempts/{id}/items/{seq}/answer [post]
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	id := ParseUUIDParam(c, "id")
	if id == "" {
		return
	}
	seq := ParseSeqParam(c, "seq")
	if seq == 0 {
		return
	}

	image, contentType, err := readImage(c)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid image upload", err, err.Error())
		return
	}
	h.LogDebug(c, "Answer image received", "bytes", len(image), "content_type", contentType)

	answer, err := h.answerService.Submit(c.Request.Context(), &services.SubmitAnswerRequest{
		AttemptID:   id,
		Seq:         seq,
		Image:       image,
		ContentType: contentType,
	})
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Answer graded", answer,
		"attempt_id", id,
		"seq", seq,
		"correct", answer.IsCorrect)
}

// SubmitAttempt finalizes the attempt once every item is answered.
// @Summary Submit attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} SuccessResponse{data=services.ScoringOutcome}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	id := ParseUUIDParam(c, "id")
	if id == "" {
		return
	}

	outcome, err := h.scoringService.FinalizeIfComplete(c.Request.Context(), id)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}

	message := "Attempt submitted"
	switch {
	case outcome.AlreadyFinalized:
		message = "Attempt already submitted"
	case !outcome.Finalized:
		message = "Attempt is not complete"
	}
	h.RespondWithSuccess(c, http.StatusOK, message, outcome,
		"attempt_id", id,
		"answered", outcome.Answered,
		"total", outcome.Total)
}

// @Summary Cancel attempt
// @Tags attempts
// @Param id path string true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/cancel [post]
func (h *QuizHandler) CancelAttempt(c *gin.Context) {
	id := ParseUUIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.attemptService.Cancel(c.Request.Context(), id); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Attempt cancelled", nil, "attempt_id", id)
}

// readImage returns the bytes of the "image" form file. A missing file yields
// empty bytes so the answer service rejects it.
func readImage(c *gin.Context) ([]byte, string, error) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if header.Size > MaxImageBytes {
		return nil, "", errImageTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxImageBytes {
		return nil, "", errImageTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
