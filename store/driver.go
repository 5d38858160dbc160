package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Project model related methods.
	CreateProject(ctx context.Context, create *Project) (*Project, error)
	GetProject(ctx context.Context, find *FindProject) (*Project, error)
	UpdateProject(ctx context.Context, update *UpdateProject) (*Project, error)

	// Thread model related methods.
	CreateThread(ctx context.Context, create *Thread) (*Thread, error)
	GetThread(ctx context.Context, find *FindThread) (*Thread, error)

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)

	// ToolCall model related methods.
	CreateToolCall(ctx context.Context, create *ToolCall) (*ToolCall, error)
	GetToolCall(ctx context.Context, find *FindToolCall) (*ToolCall, error)
	UpdateToolCall(ctx context.Context, update *UpdateToolCall) (*ToolCall, error)

	// MemoryItem model related methods.
	CreateMemoryItem(ctx context.Context, create *MemoryItem) (*MemoryItem, error)
	ListMemoryItems(ctx context.Context, find *FindMemoryItem) ([]*MemoryItem, error)
	UpdateMemoryItem(ctx context.Context, update *UpdateMemoryItem) (*MemoryItem, error)
	DeleteMemoryItems(ctx context.Context, delete *DeleteMemoryItem) (int, error)

	// Preference model related methods.
	CreatePreference(ctx context.Context, create *Preference) (*Preference, error)
	ListPreferences(ctx context.Context, find *FindPreference) ([]*Preference, error)

	// Lesson model related methods.
	CreateLesson(ctx context.Context, create *Lesson) (*Lesson, error)
	ListLessons(ctx context.Context, find *FindLesson) ([]*Lesson, error)

	// AuditLog model related methods.
	CreateAuditLog(ctx context.Context, create *AuditLog) (*AuditLog, error)
	ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error)
}
