package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrorKind classifies err into the service error taxonomy.
type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindPrecondition ErrorKind = "precondition_failed"
	KindCollaborator ErrorKind = "collaborator_failure"
	KindInternal     ErrorKind = "internal"
)

func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case IsValidation(err):
		return KindValidation
	case IsNotFound(err):
		return KindNotFound
	case IsPreconditionFailed(err):
		return KindPrecondition
	case IsCollaboratorFailure(err):
		return KindCollaborator
	default:
		return KindInternal
	}
}

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, service string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", service),
	}
}

// ===== OPERATION LOGGING =====

// LogOperation logs the result of one operation. Client-side errors log at
// warn, collaborator failures at warn with the failing stage, and anything
// else at error.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, resourceID string, duration time.Duration, err error) {
	kind := ClassifyError(err)
	status := "success"
	if kind != KindNone {
		status = string(kind)
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("resource_id", resourceID),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	level := slog.LevelInfo
	switch kind {
	case KindNone:
	case KindValidation, KindNotFound, KindPrecondition:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", err.Error()))
	case KindCollaborator:
		level = slog.LevelWarn
		attrs = append(attrs, slog.Any("error", FormatError(err)))
	default:
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

// ContextualLogger times one operation and logs its result.
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, resourceID, time.Since(cl.startTime), err)
}

// ===== ERROR FORMATTING HELPERS =====

// FormatError describes err for logs and error response details.
func FormatError(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	result := map[string]interface{}{
		"message": err.Error(),
		"type":    string(ClassifyError(err)),
	}

	var ve ValidationErrors
	var ce *CollaboratorError
	switch {
	case errors.As(err, &ve):
		fields := make([]map[string]interface{}, len(ve))
		for i, validationErr := range ve {
			fields[i] = map[string]interface{}{
				"field":   validationErr.Field,
				"message": validationErr.Message,
			}
		}
		result["errors"] = fields
	case errors.As(err, &ce):
		result["stage"] = ce.Stage
	}

	return result
}
