package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m11312045/pneumatic-app/internal/services"
	"github.com/m11312045/pneumatic-app/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type HistoryHandler struct {
	BaseHandler
	historyService services.HistoryService
	exportService  services.ExportService
	now            func() time.Time
}

func NewHistoryHandler(historyService services.HistoryService, exportService services.ExportService, logger utils.Logger) *HistoryHandler {
	return &HistoryHandler{
		BaseHandler:    NewBaseHandler(logger),
		historyService: historyService,
		exportService:  exportService,
		now:            time.Now,
	}
}

// ListHistory returns attempts newest first.
// @Summary Attempt history
// @Tags history
// @Produce json
// @Param limit query int false "Maximum rows (1-200)"
// @Param viewer_id query string false "Viewer student ID"
// @Param mine_first query bool false "Put the viewer's attempts first"
// @Param include_in_progress query bool false "Include unsubmitted attempts"
// @Param status query string false "IN_PROGRESS, SUBMITTED or CANCELLED"
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} SuccessResponse{data=[]services.AttemptHistory}
// @Failure 400 {object} ErrorResponse
// @Router /history [get]
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}

	history, err := h.historyService.List(c.Request.Context(), query)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "History retrieved", history, "count", len(history))
}

// ExportHistory streams the history as an xlsx workbook.
// @Summary Export history
// @Tags history
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param limit query int false "Maximum rows (1-200)"
// @Router /history/export [get]
func (h *HistoryHandler) ExportHistory(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportHistoryXLSX(c.Request.Context(), query)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz-history-%s.xlsx", h.now().Format("20060102-150405"))
	h.LogInfo(c, "History exported", "bytes", len(data), "filename", filename)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *HistoryHandler) bindQuery(c *gin.Context) (services.HistoryQuery, bool) {
	var query services.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return query, false
	}
	return query, true
}
