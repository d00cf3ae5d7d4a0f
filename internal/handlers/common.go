package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m11312045/pneumatic-app/internal/services"
	"github.com/m11312045/pneumatic-app/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs an incoming request with its context fields.
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append(h.contextFields(c),
		"remote_addr", c.ClientIP(),
		"user_agent", c.Request.UserAgent(),
	)
	fields = append(fields, additionalFields...)
	h.loggerFor(c).Info(message, fields...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := append(h.contextFields(c), additionalFields...)
	h.loggerFor(c).LogError(err, message, fields...)
}

func (h *BaseHandler) LogDebug(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append(h.contextFields(c), additionalFields...)
	h.loggerFor(c).Debug(message, fields...)
}

func (h *BaseHandler) LogInfo(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append(h.contextFields(c), additionalFields...)
	h.loggerFor(c).Info(message, fields...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append(h.contextFields(c), additionalFields...)
	h.loggerFor(c).Warn(message, fields...)
}

func (h *BaseHandler) loggerFor(c *gin.Context) utils.Logger {
	return utils.GetLoggerFromContext(c, h.logger)
}

func (h *BaseHandler) contextFields(c *gin.Context) []interface{} {
	return []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}

	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else if err != nil {
		h.LogWarn(c, message, "status_code", statusCode, "error", err.Error())
	} else {
		h.LogWarn(c, message, "status_code", statusCode)
	}

	c.JSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response and logs it
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}, additionalFields ...interface{}) {
	fields := []interface{}{"status_code", statusCode}
	fields = append(fields, additionalFields...)
	h.LogInfo(c, message, fields...)

	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// RespondWithServiceError maps a service error onto its HTTP status.
func (h *BaseHandler) RespondWithServiceError(c *gin.Context, err error) {
	kind := services.ClassifyError(err)
	status, message := statusFor(kind)

	resp := ErrorResponse{
		Message: message,
		Code:    string(kind),
	}
	if kind != services.KindInternal {
		resp.Details = services.FormatError(err)
	}

	if status >= http.StatusInternalServerError && kind != services.KindCollaborator {
		h.LogError(c, err, message, "status_code", status)
	} else {
		h.LogWarn(c, message, "status_code", status, "error", err.Error())
	}

	c.JSON(status, resp)
}

func statusFor(kind services.ErrorKind) (int, string) {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest, "Invalid request"
	case services.KindNotFound:
		return http.StatusNotFound, "Resource not found"
	case services.KindPrecondition:
		return http.StatusConflict, "Request conflicts with the attempt state"
	case services.KindCollaborator:
		return http.StatusBadGateway, "Answer could not be processed, please retry this question"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
