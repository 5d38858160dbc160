package store

// Project represents a managed project the agent works on.
// A project owns threads, memory items, preferences, lessons and audit entries.
type Project struct {
	ID string
	// Name is the human-readable project name.
	Name string
	// Role is the agent persona statement rendered into every system prompt.
	Role string
	// Brief is the latest generated project brief. Empty until first generated.
	Brief     string
	CreatedTs int64
	UpdatedTs int64
}

// FindProject specifies the conditions for finding projects.
type FindProject struct {
	ID *string
}

// UpdateProject specifies the mutable fields of a project.
// Everything else is immutable after creation.
type UpdateProject struct {
	ID    string
	Name  *string
	Brief *string
}
