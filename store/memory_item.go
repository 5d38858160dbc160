package store

// MemoryItemType classifies a memory item.
type MemoryItemType string

const (
	MemoryItemTypeFact       MemoryItemType = "fact"
	MemoryItemTypeRule       MemoryItemType = "rule"
	MemoryItemTypeEvent      MemoryItemType = "event"
	MemoryItemTypeDecision   MemoryItemType = "decision"
	MemoryItemTypeOpenLoop   MemoryItemType = "open_loop"
	MemoryItemTypeIdea       MemoryItemType = "idea"
	MemoryItemTypeMetric     MemoryItemType = "metric"
	MemoryItemTypePreference MemoryItemType = "preference"
	MemoryItemTypeLesson     MemoryItemType = "lesson"
)

// MemoryItemStatus is the lifecycle state of a memory item.
// It is nil for append-only types that have no lifecycle.
type MemoryItemStatus string

const (
	MemoryItemStatusProposed MemoryItemStatus = "proposed"
	MemoryItemStatusAccepted MemoryItemStatus = "accepted"
	MemoryItemStatusRejected MemoryItemStatus = "rejected"
	MemoryItemStatusDone     MemoryItemStatus = "done"
	MemoryItemStatusBlocked  MemoryItemStatus = "blocked"
	MemoryItemStatusActive   MemoryItemStatus = "active"
)

// MemorySource identifies where a memory item came from.
type MemorySource string

const (
	MemorySourceUserChat   MemorySource = "user_chat"
	MemorySourceDocUpload  MemorySource = "doc_upload"
	MemorySourceToolResult MemorySource = "tool_result"
	MemorySourceCron       MemorySource = "cron"
	MemorySourceSystem     MemorySource = "system"
)

// MemoryItem is a typed, persisted unit of agent-accumulated knowledge.
// The relational row is authoritative; VectorPointID links the best-effort
// twin point in the vector index.
type MemoryItem struct {
	ID        string
	ProjectID string
	UserID    *string
	Type      MemoryItemType
	Title     string
	// Content is an open key→value map, stored as JSON.
	Content map[string]any
	Status  *MemoryItemStatus
	Source  MemorySource
	// Confidence is in [0,1].
	Confidence float64
	Tags       []string
	// SupersedesID points to an item this one replaces.
	SupersedesID *string
	// VectorPointID is the id of the mirrored point in the vector index,
	// nil when the item was never indexed.
	VectorPointID *string
	ExpiresTs     *int64
	CreatedTs     int64
	UpdatedTs     int64
}

// FindMemoryItem specifies the conditions for finding memory items.
type FindMemoryItem struct {
	ID        *string
	IDs       []string
	ProjectID *string
	UserID    *string
	Types     []MemoryItemType
	Statuses  []MemoryItemStatus
	// ExcludeStatuses drops items in any of the given statuses.
	ExcludeStatuses []MemoryItemStatus
	// IncludeExpired opts in to items whose expiry timestamp has passed.
	// By default expired items are excluded.
	IncludeExpired bool
	// ExpiredOnly restricts the result to items whose expiry has passed.
	ExpiredOnly bool
	Limit       int
	Offset      int
}

// UpdateMemoryItem specifies the fields to patch on a memory item.
// Nil fields are left unchanged.
type UpdateMemoryItem struct {
	ID         string
	Title      *string
	Content    map[string]any
	Status     *MemoryItemStatus
	Confidence *float64
	Tags       []string
	ExpiresTs  *int64
}

// DeleteMemoryItem specifies the conditions for deleting memory items.
type DeleteMemoryItem struct {
	ID  *string
	IDs []string
}
