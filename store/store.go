package store

import (
	"context"

	"github.com/pepavlin/agent-manager-sub000/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateProject(ctx context.Context, create *Project) (*Project, error) {
	return s.driver.CreateProject(ctx, create)
}

func (s *Store) GetProject(ctx context.Context, find *FindProject) (*Project, error) {
	return s.driver.GetProject(ctx, find)
}

func (s *Store) UpdateProject(ctx context.Context, update *UpdateProject) (*Project, error) {
	return s.driver.UpdateProject(ctx, update)
}

func (s *Store) CreateThread(ctx context.Context, create *Thread) (*Thread, error) {
	return s.driver.CreateThread(ctx, create)
}

func (s *Store) GetThread(ctx context.Context, find *FindThread) (*Thread, error) {
	return s.driver.GetThread(ctx, find)
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) CreateToolCall(ctx context.Context, create *ToolCall) (*ToolCall, error) {
	return s.driver.CreateToolCall(ctx, create)
}

func (s *Store) GetToolCall(ctx context.Context, find *FindToolCall) (*ToolCall, error) {
	return s.driver.GetToolCall(ctx, find)
}

func (s *Store) UpdateToolCall(ctx context.Context, update *UpdateToolCall) (*ToolCall, error) {
	return s.driver.UpdateToolCall(ctx, update)
}

func (s *Store) CreateMemoryItem(ctx context.Context, create *MemoryItem) (*MemoryItem, error) {
	return s.driver.CreateMemoryItem(ctx, create)
}

func (s *Store) ListMemoryItems(ctx context.Context, find *FindMemoryItem) ([]*MemoryItem, error) {
	return s.driver.ListMemoryItems(ctx, find)
}

func (s *Store) UpdateMemoryItem(ctx context.Context, update *UpdateMemoryItem) (*MemoryItem, error) {
	return s.driver.UpdateMemoryItem(ctx, update)
}

func (s *Store) DeleteMemoryItems(ctx context.Context, delete *DeleteMemoryItem) (int, error) {
	return s.driver.DeleteMemoryItems(ctx, delete)
}

func (s *Store) CreatePreference(ctx context.Context, create *Preference) (*Preference, error) {
	return s.driver.CreatePreference(ctx, create)
}

func (s *Store) ListPreferences(ctx context.Context, find *FindPreference) ([]*Preference, error) {
	return s.driver.ListPreferences(ctx, find)
}

func (s *Store) CreateLesson(ctx context.Context, create *Lesson) (*Lesson, error) {
	return s.driver.CreateLesson(ctx, create)
}

func (s *Store) ListLessons(ctx context.Context, find *FindLesson) ([]*Lesson, error) {
	return s.driver.ListLessons(ctx, find)
}

func (s *Store) CreateAuditLog(ctx context.Context, create *AuditLog) (*AuditLog, error) {
	return s.driver.CreateAuditLog(ctx, create)
}

func (s *Store) ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error) {
	return s.driver.ListAuditLogs(ctx, find)
}
