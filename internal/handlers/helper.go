package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/m11312045/pneumatic-app/internal/services"
)

// ParseUUIDParam reads an ID path parameter. It writes the 400 itself and
// returns "" when the value is empty or not a UUID.
func ParseUUIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
			Code:    string(services.KindValidation),
		})
		return ""
	}
	if err := uuid.Validate(idStr); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a valid UUID",
			Code:    string(services.KindValidation),
		})
		return ""
	}
	return idStr
}

// ParseSeqParam reads a 1-based item position. It writes the 400 itself and
// returns 0 on failure.
func ParseSeqParam(c *gin.Context, param string) int {
	seq, err := strconv.Atoi(strings.TrimSpace(c.Param(param)))
	if err != nil || seq < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
		})
		return 0
	}
	return seq
}

var errImageTooLarge = errors.New("image exceeds 10 MiB")
