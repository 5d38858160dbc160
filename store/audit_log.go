package store

// AuditLog is an append-only record of turns and tool results.
// It is written for traceability and never read by the core logic.
type AuditLog struct {
	ID        string
	ProjectID string
	ThreadID  string
	UserID    string
	// Action is "chat_turn" or "tool_result".
	Action string
	// Mode is the agent response mode of the turn, if any.
	Mode string
	// ToolName is the requested/executed tool, if any.
	ToolName string
	// Source is the inbound source tag of the turn.
	Source string
	// Payload carries a serialized summary of the turn.
	Payload   string
	CreatedTs int64
}

// FindAuditLog specifies the conditions for finding audit entries.
type FindAuditLog struct {
	ProjectID *string
	ThreadID  *string
	Limit     int
}
