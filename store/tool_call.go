package store

// ToolCallStatus is the lifecycle state of a tool call.
type ToolCallStatus string

const (
	ToolCallStatusPending   ToolCallStatus = "pending"
	ToolCallStatusApproved  ToolCallStatus = "approved"
	ToolCallStatusRejected  ToolCallStatus = "rejected"
	ToolCallStatusCompleted ToolCallStatus = "completed"
	ToolCallStatusFailed    ToolCallStatus = "failed"
)

// ToolCall records a tool invocation requested by the model.
// Terminal states are completed, failed and rejected.
type ToolCall struct {
	ID        string
	ProjectID string
	ThreadID  string
	ToolName  string
	// Arguments is the serialized argument object of the request.
	Arguments        string
	RequiresApproval bool
	// Risk is one of low, medium, high.
	Risk   string
	Status ToolCallStatus
	// Result is the serialized result envelope, set on completion/failure.
	Result string
	// ToolsSnapshot is the serialized tool catalog available at request time.
	// It lets a later result submission resume the turn with the same tool
	// context even if the caller does not resend the catalog.
	ToolsSnapshot string
	CreatedTs     int64
	UpdatedTs     int64
}

// FindToolCall specifies the conditions for finding tool calls.
type FindToolCall struct {
	ID       *string
	ThreadID *string
	Status   *ToolCallStatus
}

// UpdateToolCall specifies the fields to update on a tool call.
type UpdateToolCall struct {
	ID     string
	Status *ToolCallStatus
	Result *string
}
