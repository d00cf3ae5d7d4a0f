package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m11312045/pneumatic-app/internal/services"
	"github.com/m11312045/pneumatic-app/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	studentService services.StudentService
	historyService services.HistoryService
}

func NewStudentHandler(studentService services.StudentService, historyService services.HistoryService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler:    NewBaseHandler(logger),
		studentService: studentService,
		historyService: historyService,
	}
}

// Login finds the student by number or registers them.
// @Summary Student login
// @Tags students
// @Accept json
// @Produce json
// @Param login body services.LoginRequest true "Student number and name"
// @Success 200 {object} SuccessResponse{data=models.Student}
// @Failure 400 {object} ErrorResponse
// @Router /students/login [post]
func (h *StudentHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	student, err := h.studentService.LoginOrRegister(c.Request.Context(), &req)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Logged in", student, "student_id", student.ID)
}

// GetStudent returns the student record.
// @Summary Student detail
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} SuccessResponse{data=models.Student}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /students/{id} [get]
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id := ParseUUIDParam(c, "id")
	if id == "" {
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Student retrieved", student, "student_id", id)
}

// ListStudentAttempts returns one student's attempts newest first.
// @Summary Student history
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Param limit query int false "Maximum rows (1-200)"
// @Param status query string false "IN_PROGRESS, SUBMITTED or CANCELLED"
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} SuccessResponse{data=[]services.AttemptHistory}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /students/{id}/attempts [get]
func (h *StudentHandler) ListStudentAttempts(c *gin.Context) {
	id := ParseUUIDParam(c, "id")
	if id == "" {
		return
	}

	var query services.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	history, err := h.historyService.ListByStudent(c.Request.Context(), id, query)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Student history retrieved", history, "student_id", id, "count", len(history))
}
