package store

// Preference is the legacy per-user preference record.
// Retained for backward compatibility; every write also produces an
// equivalent preference-type MemoryItem, but reads stay independent.
type Preference struct {
	ID        string
	ProjectID string
	UserID    string
	Text      string
	Active    bool
	CreatedTs int64
}

// FindPreference specifies the conditions for finding preferences.
type FindPreference struct {
	ProjectID *string
	UserID    *string
	Active    *bool
}
