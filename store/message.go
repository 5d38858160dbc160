package store

// MessageRole is the author role of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Message represents one entry of a thread transcript.
// Messages are append-only; they are never mutated or deleted.
type Message struct {
	ID       string
	ThreadID string
	Role     MessageRole
	// Content is plain text for user/assistant messages. Tool messages carry
	// a serialized result envelope.
	Content   string
	CreatedTs int64
}

// FindMessage specifies the conditions for finding messages.
type FindMessage struct {
	ThreadID *string
	// Limit restricts the result to the most recent N messages.
	// Results are always returned in chronological order.
	Limit int
}
