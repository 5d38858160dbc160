package store

// Thread represents a conversation thread within a project.
type Thread struct {
	ID        string
	ProjectID string
	UserID    string
	CreatedTs int64
	UpdatedTs int64
}

// FindThread specifies the conditions for finding threads.
type FindThread struct {
	ID        *string
	ProjectID *string
	UserID    *string
}
