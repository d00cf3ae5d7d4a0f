package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	attemptsSheet = "Attempts"
	itemsSheet    = "Items"
	exportTime    = "2006-01-02 15:04:05"
)

type exportService struct {
	history HistoryService
	logger  *slog.Logger
}

func NewExportService(history HistoryService, logger *slog.Logger) ExportService {
	return &exportService{
		history: history,
		logger:  logger,
	}
}

// ExportHistoryXLSX writes one row per attempt and one row per item.
func (s *exportService) ExportHistoryXLSX(ctx context.Context, query HistoryQuery) ([]byte, error) {
	history, err := s.history.List(ctx, query)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attemptsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	attemptHeaders := []interface{}{
		"Attempt ID", "Student No", "Student Name", "Status", "Started At", "Submitted At",
		"Total Score", "Questions", "Answered", "Correct", "COPY", "TEXT", "ADVANCED",
	}
	itemHeaders := []interface{}{
		"Attempt ID", "Student No", "Seq", "Question Type", "Title", "Score", "Correct",
		"Detected Labels", "Feedback", "Answered At", "AI Provider", "AI Model", "Answer Image",
	}
	if err := writeRow(f, attemptsSheet, 1, attemptHeaders); err != nil {
		return nil, err
	}
	if err := writeRow(f, itemsSheet, 1, itemHeaders); err != nil {
		return nil, err
	}

	itemRow := 2
	for i, h := range history {
		if err := writeRow(f, attemptsSheet, i+2, attemptRow(h)); err != nil {
			return nil, err
		}
		for _, item := range h.Items {
			if err := writeRow(f, itemsSheet, itemRow, itemRowValues(h, item)); err != nil {
				return nil, err
			}
			itemRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("History exported",
		"attempts", len(history),
		"items", itemRow-2,
		"bytes", buf.Len())

	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func attemptRow(h *AttemptHistory) []interface{} {
	submitted := ""
	if h.SubmittedAt != nil {
		submitted = h.SubmittedAt.Format(exportTime)
	}
	return []interface{}{
		h.ID,
		h.StudentNo,
		h.StudentName,
		string(h.Status),
		h.StartedAt.Format(exportTime),
		submitted,
		h.TotalScore,
		h.QuestionCount,
		h.AnsweredCount,
		h.CorrectCount,
		h.CopyCount,
		h.TextCount,
		h.AdvancedCount,
	}
}

func itemRowValues(h *AttemptHistory, item models.AttemptItem) []interface{} {
	var variant, title string
	if item.Question != nil {
		variant = string(item.Question.Variant)
		if item.Question.Title != nil {
			title = *item.Question.Title
		}
	}
	answered := ""
	if item.AnsweredAt != nil {
		answered = item.AnsweredAt.Format(exportTime)
	}
	correct := "N"
	if item.IsCorrect() {
		correct = "Y"
	}
	return []interface{}{
		h.ID,
		h.StudentNo,
		item.Seq,
		variant,
		title,
		item.Score,
		correct,
		strings.Join(item.DetectedLabels, ", "),
		derefString(item.Feedback),
		answered,
		item.AIProvider,
		derefString(item.AIModel),
		derefString(item.AnswerImageURL),
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
