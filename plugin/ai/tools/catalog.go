// Package tools models the tool catalog as plain data and validates the
// model's tool requests against it. Catalogs are partly fixed (built-in
// memory tools) and partly supplied per request by the caller.
package tools

// Parameter describes one tool parameter.
type Parameter struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Definition describes one callable tool.
type Definition struct {
	Name             string               `json:"name"`
	Description      string               `json:"description,omitempty"`
	Parameters       map[string]Parameter `json:"parameters,omitempty"`
	RequiresApproval bool                 `json:"requires_approval"`
	Risk             string               `json:"risk,omitempty"`
}

// Request is a tool invocation named by the model.
type Request struct {
	Name             string         `json:"name"`
	Args             map[string]any `json:"args,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
	Risk             string         `json:"risk,omitempty"`
}

// Result is the success/failure envelope every tool execution returns.
type Result struct {
	OK    bool           `json:"ok"`
	Data  map[string]any `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

// Built-in memory tool names.
const (
	ToolMemoryProposeAdd    = "memory.propose_add"
	ToolMemoryProposeUpdate = "memory.propose_update"
)

// BuiltinDefinitions returns the always-available memory tools.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			Name:        ToolMemoryProposeAdd,
			Description: "Store a new memory item (fact, rule, event, decision, open_loop, idea, metric, preference, lesson).",
			Parameters: map[string]Parameter{
				"type":               {Type: "string", Description: "Memory item type.", Required: true},
				"title":              {Type: "string", Description: "Short one-line summary.", Required: true},
				"content":            {Type: "object", Description: "Structured detail fields.", Required: false},
				"status":             {Type: "string", Description: "Initial status, defaults to accepted.", Required: false},
				"confidence":         {Type: "number", Description: "Confidence in [0,1].", Required: false},
				"tags":               {Type: "array", Description: "Free-form tags.", Required: false},
				"expires_in_seconds": {Type: "number", Description: "TTL after which the item expires.", Required: false},
			},
			RequiresApproval: false,
			Risk:             "low",
		},
		{
			Name:        ToolMemoryProposeUpdate,
			Description: "Patch an existing memory item by id.",
			Parameters: map[string]Parameter{
				"memory_item_id": {Type: "string", Description: "Id of the item to patch.", Required: true},
				"patch":          {Type: "object", Description: "Fields to change: title, content, status, confidence, tags, expires_in_seconds.", Required: true},
				"reason":         {Type: "string", Description: "Why the item is being changed.", Required: true},
			},
			RequiresApproval: false,
			Risk:             "low",
		},
	}
}

// MergeCatalog joins caller-supplied tools with the built-ins. Built-ins
// win on a name collision so a caller cannot shadow memory tools.
func MergeCatalog(callerTools []Definition) []Definition {
	merged := BuiltinDefinitions()
	seen := map[string]bool{}
	for _, def := range merged {
		seen[def.Name] = true
	}
	for _, def := range callerTools {
		if seen[def.Name] {
			continue
		}
		seen[def.Name] = true
		merged = append(merged, def)
	}
	return merged
}

// Lookup finds a tool definition by name.
func Lookup(catalog []Definition, name string) (Definition, bool) {
	for _, def := range catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
