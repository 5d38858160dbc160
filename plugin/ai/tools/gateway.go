package tools

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/store"
)

// Validate checks a tool request against the merged catalog. The returned
// error identifies the unknown tool or missing parameter by name. A nil
// error means the request may proceed.
func Validate(req *Request, catalog []Definition) error {
	if req == nil || strings.TrimSpace(req.Name) == "" {
		return errors.ValidationFailed("tool request has no name")
	}
	def, ok := Lookup(catalog, req.Name)
	if !ok {
		return errors.ValidationFailed("unknown tool %q", req.Name).WithContext("tool_name", req.Name)
	}

	// Deterministic error for multiple missing parameters.
	names := make([]string, 0, len(def.Parameters))
	for name := range def.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !def.Parameters[name].Required {
			continue
		}
		if _, present := req.Args[name]; !present {
			return errors.ValidationFailed("tool %q is missing required parameter %q", req.Name, name).
				WithContext("tool_name", req.Name).
				WithContext("parameter", name)
		}
	}
	return nil
}

// AutoApproved reports whether a tool executes synchronously within the
// turn. Memory tools only touch internal state and never wait for external
// sign-off.
func AutoApproved(name string) bool {
	return strings.HasPrefix(name, "memory.")
}

// Executor runs the built-in memory tools against the memory service.
type Executor struct {
	memory *memory.Service
}

// NewExecutor creates a memory tool executor.
func NewExecutor(memoryService *memory.Service) *Executor {
	return &Executor{memory: memoryService}
}

// Execute runs an auto-approved memory tool and always returns a result
// envelope; failures are reported inside the envelope, not as an error.
func (e *Executor) Execute(ctx context.Context, projectID string, userID *string, source store.MemorySource, req *Request) *Result {
	switch req.Name {
	case ToolMemoryProposeAdd:
		return e.executeProposeAdd(ctx, projectID, userID, source, req.Args)
	case ToolMemoryProposeUpdate:
		return e.executeProposeUpdate(ctx, req.Args)
	default:
		return &Result{OK: false, Error: "unknown memory tool " + req.Name}
	}
}

func (e *Executor) executeProposeAdd(ctx context.Context, projectID string, userID *string, source store.MemorySource, args map[string]any) *Result {
	itemType := store.MemoryItemType(stringArg(args, "type"))
	title := stringArg(args, "title")
	content := mapArg(args, "content")
	ttl := time.Duration(floatArg(args, "expires_in_seconds")) * time.Second

	// Events and metrics are observational and created through the
	// dedicated helpers; everything else is stored accepted directly.
	// The proposed/approval workflow is bypassed for memory writes, the
	// model's own judgement plus the audit trail stand in for it.
	var item *store.MemoryItem
	var err error
	switch itemType {
	case store.MemoryItemTypeEvent:
		item, err = e.memory.RecordEvent(ctx, projectID, userID, title, content, source, ttl)
	case store.MemoryItemTypeMetric:
		item, err = e.memory.RecordMetric(ctx, projectID, userID, title, content, ttl)
	default:
		accepted := store.MemoryItemStatusAccepted
		status := &accepted
		if s := stringArg(args, "status"); s != "" {
			v := store.MemoryItemStatus(s)
			status = &v
		}
		confidence := 1.0
		if _, ok := args["confidence"]; ok {
			confidence = floatArg(args, "confidence")
		}
		createReq := &memory.CreateRequest{
			ProjectID:  projectID,
			UserID:     userID,
			Type:       itemType,
			Title:      title,
			Content:    content,
			Status:     status,
			Source:     source,
			Confidence: confidence,
			Tags:       stringSliceArg(args, "tags"),
		}
		if ttl > 0 {
			expires := time.Now().Add(ttl).Unix()
			createReq.ExpiresTs = &expires
		}
		item, err = e.memory.Create(ctx, createReq)
	}
	if err != nil {
		return &Result{OK: false, Error: err.Error()}
	}
	return &Result{OK: true, Data: map[string]any{
		"memory_item_id": item.ID,
		"type":           string(item.Type),
		"title":          item.Title,
	}}
}

func (e *Executor) executeProposeUpdate(ctx context.Context, args map[string]any) *Result {
	id := stringArg(args, "memory_item_id")
	patch := mapArg(args, "patch")
	if id == "" || patch == nil {
		return &Result{OK: false, Error: "memory_item_id and patch are required"}
	}

	update := &store.UpdateMemoryItem{ID: id}
	if title, ok := patch["title"].(string); ok {
		update.Title = &title
	}
	if content, ok := patch["content"].(map[string]any); ok {
		update.Content = content
	}
	if s, ok := patch["status"].(string); ok {
		status := store.MemoryItemStatus(s)
		update.Status = &status
	}
	if c, ok := toFloat(patch["confidence"]); ok {
		update.Confidence = &c
	}
	if tags := toStringSlice(patch["tags"]); tags != nil {
		update.Tags = tags
	}
	if secs, ok := toFloat(patch["expires_in_seconds"]); ok {
		expires := time.Now().Add(time.Duration(secs) * time.Second).Unix()
		update.ExpiresTs = &expires
	}

	item, err := e.memory.Update(ctx, update)
	if err != nil {
		return &Result{OK: false, Error: err.Error()}
	}
	return &Result{OK: true, Data: map[string]any{
		"memory_item_id": item.ID,
		"title":          item.Title,
	}}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func mapArg(args map[string]any, key string) map[string]any {
	if v, ok := args[key].(map[string]any); ok {
		return v
	}
	return nil
}

func floatArg(args map[string]any, key string) float64 {
	v, _ := toFloat(args[key])
	return v
}

func stringSliceArg(args map[string]any, key string) []string {
	return toStringSlice(args[key])
}

// toFloat accepts the numeric types JSON decoding can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}
