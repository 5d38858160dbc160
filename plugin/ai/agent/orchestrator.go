package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/internal/observability"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/extract"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/prompt"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/tools"
	"github.com/pepavlin/agent-manager-sub000/store"
)

const (
	// fallbackMessage is the fixed safe reply when model output cannot be
	// turned into a valid response.
	fallbackMessage = "I had trouble processing that. Could you rephrase your request?"
	// toolMessageCharCap truncates the conversational copy of a tool result.
	// The full result stays on the ToolCall record.
	toolMessageCharCap = 2000
)

// Completer is the single model call the orchestrator depends on.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OrchestratorStore is the store subset the orchestrator writes through.
// *store.Store satisfies it.
type OrchestratorStore interface {
	GetProject(ctx context.Context, find *store.FindProject) (*store.Project, error)
	GetThread(ctx context.Context, find *store.FindThread) (*store.Thread, error)
	CreateThread(ctx context.Context, create *store.Thread) (*store.Thread, error)
	CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error)
	CreateToolCall(ctx context.Context, create *store.ToolCall) (*store.ToolCall, error)
	GetToolCall(ctx context.Context, find *store.FindToolCall) (*store.ToolCall, error)
	UpdateToolCall(ctx context.Context, update *store.UpdateToolCall) (*store.ToolCall, error)
	CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error)
}

// Orchestrator runs chat turns end to end.
type Orchestrator struct {
	store     OrchestratorStore
	retriever *prompt.Retriever
	completer Completer
	executor  *tools.Executor
	memory    *memory.Service
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(orchestratorStore OrchestratorStore, retriever *prompt.Retriever, completer Completer, executor *tools.Executor, memoryService *memory.Service, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     orchestratorStore,
		retriever: retriever,
		completer: completer,
		executor:  executor,
		memory:    memoryService,
		logger:    logger,
	}
}

// ProcessChat runs one turn. The caller receives either a well-formed
// result (possibly the generic fallback) or a NotFound/InvalidArgument
// error tied to an identifier they supplied; provider failures never
// propagate.
func (o *Orchestrator) ProcessChat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if req.ProjectID == "" || req.UserID == "" {
		return nil, errors.InvalidArgument("project id and user id are required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.InvalidArgument("message must not be empty")
	}

	turn := observability.NewTurnContext(o.logger, req.ProjectID, req.UserID)

	// A missing project is terminal and must surface as NotFound before any
	// write; the thread row references the project, so creating it first
	// would turn the condition into a constraint violation.
	project, err := o.store.GetProject(ctx, &store.FindProject{ID: &req.ProjectID})
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errors.NotFound("project %s not found", req.ProjectID).
			WithContext("project_id", req.ProjectID)
	}

	thread, err := o.resolveThread(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := o.store.CreateMessage(ctx, &store.Message{
		ID:       uuid.NewString(),
		ThreadID: thread.ID,
		Role:     store.MessageRoleUser,
		Content:  req.Message,
	}); err != nil {
		return nil, err
	}

	promptContext := o.retriever.Retrieve(ctx, req.ProjectID, req.UserID, req.Message, thread.ID)
	catalog := tools.MergeCatalog(req.Tools)

	unattended := req.Source == store.MemorySourceCron || req.Source == store.MemorySourceSystem
	systemPrompt := prompt.BuildSystemPrompt(project, promptContext, catalog, unattended)
	userPrompt := prompt.BuildUserPrompt(req.Message, promptContext)

	raw, err := o.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		turn.Error("completion failed, falling back", err)
		raw = ""
	}

	response := o.parseResponse(turn, raw)

	if response.ToolRequest != nil {
		if err := tools.Validate(response.ToolRequest, catalog); err != nil {
			// Invalid tool requests downgrade the turn, never fail it.
			turn.Warn("invalid tool request, downgrading to ASK",
				slog.String(observability.LogFieldToolName, response.ToolRequest.Name),
				slog.String("error", err.Error()))
			response = &Response{
				Mode:    ModeAsk,
				Message: fmt.Sprintf("I wanted to call %s but the request was not valid (%s). Could you clarify what you need?", response.ToolRequest.Name, err.Error()),
			}
		}
	}

	result := &ChatResult{
		ThreadID: thread.ID,
		Response: response,
	}

	if response.ToolRequest != nil {
		if err := o.handleToolRequest(ctx, turn, req, thread, catalog, response, result); err != nil {
			return nil, err
		}
	}

	if _, err := o.store.CreateMessage(ctx, &store.Message{
		ID:       uuid.NewString(),
		ThreadID: thread.ID,
		Role:     store.MessageRoleAssistant,
		Content:  response.Message,
	}); err != nil {
		return nil, err
	}

	o.writeAudit(ctx, req.ProjectID, thread.ID, req.UserID, "chat_turn", response, req.Source, catalog)

	result.Render = Render{TextToSendToUser: response.Message}
	turn.Info("turn completed",
		slog.String(observability.LogFieldThreadID, thread.ID),
		slog.String(observability.LogFieldMode, string(response.Mode)),
		slog.Int64(observability.LogFieldDuration, turn.DurationMs()))
	return result, nil
}

// resolveThread finds or creates the turn's thread. Creation with a
// caller-supplied id is idempotent: a retry finds the existing thread.
func (o *Orchestrator) resolveThread(ctx context.Context, req *ChatRequest) (*store.Thread, error) {
	if req.ThreadID != "" {
		thread, err := o.store.GetThread(ctx, &store.FindThread{ID: &req.ThreadID})
		if err != nil {
			return nil, err
		}
		if thread != nil {
			return thread, nil
		}
		return o.store.CreateThread(ctx, &store.Thread{
			ID:        req.ThreadID,
			ProjectID: req.ProjectID,
			UserID:    req.UserID,
		})
	}
	return o.store.CreateThread(ctx, &store.Thread{
		ID:        shortuuid.New(),
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
	})
}

// parseResponse turns raw model text into a Response, falling back to the
// fixed safe ASK reply on empty text, unextractable JSON or schema
// mismatch.
func (o *Orchestrator) parseResponse(turn *observability.TurnContext, raw string) *Response {
	text, ok := extract.Extract(raw)
	if !ok {
		turn.Warn("model output had no extractable JSON, falling back")
		return fallbackResponse()
	}

	var response Response
	if err := json.Unmarshal([]byte(text), &response); err != nil {
		turn.Warn("model output did not match the response schema, falling back",
			slog.String("error", err.Error()))
		return fallbackResponse()
	}

	switch response.Mode {
	case ModeAct, ModeAsk, ModeNoop, ModeContinue:
	default:
		turn.Warn("model output carried an unknown mode, falling back",
			slog.String(observability.LogFieldMode, string(response.Mode)))
		return fallbackResponse()
	}
	if response.Message == "" {
		turn.Warn("model output had no message, falling back")
		return fallbackResponse()
	}
	if response.Mode == ModeAct && response.ToolRequest == nil {
		turn.Warn("ACT response without a tool request, falling back")
		return fallbackResponse()
	}
	if response.Mode != ModeAct {
		response.ToolRequest = nil
	}
	return &response
}

func fallbackResponse() *Response {
	return &Response{Mode: ModeAsk, Message: fallbackMessage}
}

// handleToolRequest either executes an auto-approved memory tool in-turn or
// persists a pending ToolCall carrying the catalog snapshot.
func (o *Orchestrator) handleToolRequest(ctx context.Context, turn *observability.TurnContext, req *ChatRequest, thread *store.Thread, catalog []tools.Definition, response *Response, result *ChatResult) error {
	toolRequest := response.ToolRequest
	argsBytes, err := json.Marshal(toolRequest.Args)
	if err != nil {
		argsBytes = []byte("{}")
	}

	if tools.AutoApproved(toolRequest.Name) {
		source := req.Source
		if source == "" {
			source = store.MemorySourceUserChat
		}
		var userID *string
		if req.UserID != "" {
			userID = &req.UserID
		}
		toolResult := o.executor.Execute(ctx, req.ProjectID, userID, source, toolRequest)

		status := store.ToolCallStatusCompleted
		if !toolResult.OK {
			status = store.ToolCallStatusFailed
		}
		resultBytes, _ := json.Marshal(toolResult)
		if _, err := o.store.CreateToolCall(ctx, &store.ToolCall{
			ID:        shortuuid.New(),
			ProjectID: req.ProjectID,
			ThreadID:  thread.ID,
			ToolName:  toolRequest.Name,
			Arguments: string(argsBytes),
			Risk:      toolRequest.Risk,
			Status:    status,
			Result:    string(resultBytes),
		}); err != nil {
			return err
		}

		if _, err := o.store.CreateMessage(ctx, &store.Message{
			ID:       uuid.NewString(),
			ThreadID: thread.ID,
			Role:     store.MessageRoleTool,
			Content:  truncateForTranscript(toolRequest.Name + " -> " + string(resultBytes)),
		}); err != nil {
			return err
		}

		result.ToolAutoExecuted = true
		result.ToolResult = toolResult
		turn.Info("memory tool executed in-turn",
			slog.String(observability.LogFieldToolName, toolRequest.Name),
			slog.Bool("ok", toolResult.OK))
		return nil
	}

	snapshotBytes, err := json.Marshal(catalog)
	if err != nil {
		snapshotBytes = []byte("[]")
	}
	toolCall, err := o.store.CreateToolCall(ctx, &store.ToolCall{
		ID:               shortuuid.New(),
		ProjectID:        req.ProjectID,
		ThreadID:         thread.ID,
		ToolName:         toolRequest.Name,
		Arguments:        string(argsBytes),
		RequiresApproval: toolRequest.RequiresApproval,
		Risk:             toolRequest.Risk,
		Status:           store.ToolCallStatusPending,
		ToolsSnapshot:    string(snapshotBytes),
	})
	if err != nil {
		return err
	}
	result.PendingToolCallID = toolCall.ID
	turn.Info("tool call pending external execution",
		slog.String(observability.LogFieldToolName, toolRequest.Name),
		slog.String("tool_call_id", toolCall.ID))
	return nil
}

// ProcessToolResult settles an externally executed tool call and continues
// the conversation with a synthesized follow-up turn.
func (o *Orchestrator) ProcessToolResult(ctx context.Context, sub *ToolResultSubmission) (*ChatResult, error) {
	if sub.ToolCallID == "" {
		return nil, errors.InvalidArgument("tool call id is required")
	}

	toolCall, err := o.store.GetToolCall(ctx, &store.FindToolCall{ID: &sub.ToolCallID})
	if err != nil {
		return nil, err
	}
	if toolCall == nil {
		return nil, errors.NotFound("tool call %s not found", sub.ToolCallID).
			WithContext("tool_call_id", sub.ToolCallID)
	}

	if tools.AutoApproved(toolCall.ToolName) {
		o.reconcileMemoryProposal(ctx, toolCall, sub)
	}

	status := store.ToolCallStatusCompleted
	if !sub.OK {
		status = store.ToolCallStatusFailed
	}
	envelope := &tools.Result{OK: sub.OK, Data: sub.Data, Error: sub.Error}
	envelopeBytes, _ := json.Marshal(envelope)
	envelopeText := string(envelopeBytes)
	if _, err := o.store.UpdateToolCall(ctx, &store.UpdateToolCall{
		ID:     toolCall.ID,
		Status: &status,
		Result: &envelopeText,
	}); err != nil {
		return nil, err
	}

	// Conversational copy is truncated; the ToolCall record keeps it all.
	if _, err := o.store.CreateMessage(ctx, &store.Message{
		ID:       uuid.NewString(),
		ThreadID: toolCall.ThreadID,
		Role:     store.MessageRoleTool,
		Content:  truncateForTranscript(toolCall.ToolName + " -> " + envelopeText),
	}); err != nil {
		return nil, err
	}

	userID := sub.UserID
	if userID == "" {
		userID = "system"
	}

	outcome := "succeeded"
	if !sub.OK {
		outcome = "failed"
	}
	if _, err := o.memory.RecordEvent(ctx, toolCall.ProjectID, &userID,
		fmt.Sprintf("Tool %s %s", toolCall.ToolName, outcome),
		map[string]any{"tool_call_id": toolCall.ID, "ok": sub.OK},
		store.MemorySourceToolResult, 30*24*time.Hour,
	); err != nil {
		o.logger.Warn("failed to record tool outcome event",
			"tool_call_id", toolCall.ID, "error", err)
	}

	o.writeAudit(ctx, toolCall.ProjectID, toolCall.ThreadID, userID, "tool_result",
		&Response{ToolRequest: &tools.Request{Name: toolCall.ToolName}},
		store.MemorySourceToolResult, nil)

	followUpTools := sub.Tools
	if len(followUpTools) == 0 && toolCall.ToolsSnapshot != "" {
		if err := json.Unmarshal([]byte(toolCall.ToolsSnapshot), &followUpTools); err != nil {
			o.logger.Warn("failed to decode tool catalog snapshot",
				"tool_call_id", toolCall.ID, "error", err)
		}
	}

	// The callback becomes a fresh conversational turn rather than a
	// separate code path.
	return o.ProcessChat(ctx, &ChatRequest{
		ProjectID: toolCall.ProjectID,
		UserID:    userID,
		ThreadID:  toolCall.ThreadID,
		Message:   synthesizeToolMessage(toolCall.ToolName, sub),
		Tools:     followUpTools,
		Source:    store.MemorySourceToolResult,
	})
}

// reconcileMemoryProposal settles a deferred memory proposal: accept or
// reject the created item, or apply the update patch. Failures are logged,
// never fatal for the submission.
func (o *Orchestrator) reconcileMemoryProposal(ctx context.Context, toolCall *store.ToolCall, sub *ToolResultSubmission) {
	switch toolCall.ToolName {
	case tools.ToolMemoryProposeAdd:
		id, _ := sub.Data["memory_item_id"].(string)
		if id == "" {
			var result tools.Result
			if err := json.Unmarshal([]byte(toolCall.Result), &result); err == nil {
				id, _ = result.Data["memory_item_id"].(string)
			}
		}
		if id == "" {
			return
		}
		var err error
		if sub.OK {
			_, err = o.memory.AcceptProposal(ctx, id)
		} else {
			_, err = o.memory.RejectProposal(ctx, id)
		}
		if err != nil {
			o.logger.Warn("failed to reconcile memory proposal",
				"tool_call_id", toolCall.ID, "memory_item_id", id, "error", err)
		}
	case tools.ToolMemoryProposeUpdate:
		if !sub.OK {
			return
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(toolCall.Arguments), &args); err != nil {
			o.logger.Warn("failed to decode tool call arguments",
				"tool_call_id", toolCall.ID, "error", err)
			return
		}
		result := o.executor.Execute(ctx, toolCall.ProjectID, nil, store.MemorySourceToolResult,
			&tools.Request{Name: toolCall.ToolName, Args: args})
		if !result.OK {
			o.logger.Warn("failed to apply memory update patch",
				"tool_call_id", toolCall.ID, "error", result.Error)
		}
	}
}

func (o *Orchestrator) writeAudit(ctx context.Context, projectID, threadID, userID, action string, response *Response, source store.MemorySource, catalog []tools.Definition) {
	toolName := ""
	if response.ToolRequest != nil {
		toolName = response.ToolRequest.Name
	}
	toolNames := make([]string, 0, len(catalog))
	for _, def := range catalog {
		toolNames = append(toolNames, def.Name)
	}
	payload, _ := json.Marshal(map[string]any{
		"mode":            string(response.Mode),
		"tool_name":       toolName,
		"available_tools": toolNames,
	})

	if _, err := o.store.CreateAuditLog(ctx, &store.AuditLog{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		ThreadID:  threadID,
		UserID:    userID,
		Action:    action,
		Mode:      string(response.Mode),
		ToolName:  toolName,
		Source:    string(source),
		Payload:   string(payload),
	}); err != nil {
		o.logger.Warn("failed to write audit log entry",
			"project_id", projectID, "thread_id", threadID, "error", err)
	}
}

func synthesizeToolMessage(toolName string, sub *ToolResultSubmission) string {
	if sub.OK {
		dataBytes, _ := json.Marshal(sub.Data)
		return fmt.Sprintf("Tool %s finished successfully. Result: %s", toolName, truncateForTranscript(string(dataBytes)))
	}
	return fmt.Sprintf("Tool %s failed: %s", toolName, sub.Error)
}

func truncateForTranscript(s string) string {
	if len(s) <= toolMessageCharCap {
		return s
	}
	return s[:toolMessageCharCap] + "…"
}
