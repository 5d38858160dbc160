// Package agent implements the chat orchestrator: one turn from inbound
// message to structured response, and the follow-up turn after an external
// tool result comes back.
package agent

import (
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/tools"
	"github.com/pepavlin/agent-manager-sub000/store"
)

// Mode is the agent's declared intent for a turn.
type Mode string

const (
	// ModeAct requests exactly one tool call.
	ModeAct Mode = "ACT"
	// ModeAsk poses a clarifying question to the user.
	ModeAsk Mode = "ASK"
	// ModeNoop answers conversationally with no tool use.
	ModeNoop Mode = "NOOP"
	// ModeContinue signals further autonomous steps are needed.
	ModeContinue Mode = "CONTINUE"
)

// Response is the structured agent output parsed from the model text.
type Response struct {
	Mode        Mode           `json:"mode"`
	Message     string         `json:"message"`
	ToolRequest *tools.Request `json:"tool_request"`
}

// ChatRequest is one inbound turn.
type ChatRequest struct {
	ProjectID string
	UserID    string
	// ThreadID is optional; when set, the thread is created with this id on
	// first use so retried calls are idempotent.
	ThreadID string
	Message  string
	Tools    []tools.Definition
	// Source drives conversational vs unattended prompt mode. Empty means
	// user chat.
	Source store.MemorySource
}

// Render carries caller display conveniences.
type Render struct {
	TextToSendToUser string `json:"text_to_send_to_user"`
}

// ChatResult is the outcome of one turn.
type ChatResult struct {
	ThreadID string    `json:"thread_id"`
	Response *Response `json:"response"`
	// PendingToolCallID is set when a non-memory tool awaits external
	// execution and a later result submission.
	PendingToolCallID string `json:"pending_tool_call_id,omitempty"`
	// ToolAutoExecuted is set when a memory tool ran synchronously within
	// the turn; ToolResult then carries its envelope.
	ToolAutoExecuted bool          `json:"tool_auto_executed,omitempty"`
	ToolResult       *tools.Result `json:"tool_result,omitempty"`
	Render           Render        `json:"render"`
}

// ToolResultSubmission reports the outcome of an externally executed tool.
type ToolResultSubmission struct {
	ToolCallID string
	ProjectID  string
	OK         bool
	Data       map[string]any
	Error      string
	// UserID attributes the follow-up turn; defaults to the submitting
	// system user.
	UserID string
	// Tools is the catalog for the follow-up turn; when empty the catalog
	// snapshot stored on the ToolCall is used.
	Tools []tools.Definition
}
