package store

// Lesson is the legacy per-user lesson record.
// Retained for backward compatibility; every write also produces an
// equivalent lesson-type MemoryItem, but reads stay independent.
type Lesson struct {
	ID        string
	ProjectID string
	UserID    string
	Text      string
	CreatedTs int64
}

// FindLesson specifies the conditions for finding lessons.
type FindLesson struct {
	ProjectID *string
	UserID    *string
}
