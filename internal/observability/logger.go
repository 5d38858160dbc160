package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldProjectID is the field name for project ID.
	LogFieldProjectID = "project_id"
	// LogFieldUserID is the field name for user ID.
	LogFieldUserID = "user_id"
	// LogFieldThreadID is the field name for thread ID.
	LogFieldThreadID = "thread_id"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldToolName is the field name for tool name.
	LogFieldToolName = "tool_name"
	// LogFieldMode is the field name for agent response mode.
	LogFieldMode = "mode"
)

// TurnContext carries structured logging state for a single agent turn.
type TurnContext struct {
	RequestID string
	ProjectID string
	UserID    string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewTurnContext creates a new turn context with a generated request ID.
func NewTurnContext(logger *slog.Logger, projectID, userID string) *TurnContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnContext{
		RequestID: uuid.New().String(),
		ProjectID: projectID,
		UserID:    userID,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// Info logs an info message with the turn's base attributes.
func (t *TurnContext) Info(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, t.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message with the turn's base attributes.
func (t *TurnContext) Debug(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, t.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message with the turn's base attributes.
func (t *TurnContext) Warn(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, t.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error attached.
func (t *TurnContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	t.Logger.LogAttrs(context.Background(), slog.LevelError, msg, t.baseAttrsAppended(allAttrs...)...)
}

// DurationMs returns the elapsed time since the turn started in milliseconds.
func (t *TurnContext) DurationMs() int64 {
	return time.Since(t.StartTime).Milliseconds()
}

func (t *TurnContext) baseAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldRequestID, t.RequestID),
		slog.String(LogFieldProjectID, t.ProjectID),
		slog.String(LogFieldUserID, t.UserID),
	}
}

func (t *TurnContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(t.baseAttrs(), attrs...)
}
