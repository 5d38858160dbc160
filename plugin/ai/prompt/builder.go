package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pepavlin/agent-manager-sub000/plugin/ai/tools"
	"github.com/pepavlin/agent-manager-sub000/store"
)

const (
	// MaxLearnedRulesShown caps the learned-rules section; the remainder is
	// announced with a truncation notice.
	MaxLearnedRulesShown = 20
	// MessageCharCap truncates each transcript message.
	MessageCharCap = 500
	// TranscriptCharBudget caps the whole transcript, dropping the oldest
	// messages first.
	TranscriptCharBudget = 4000
)

const baseInstructions = `You are a project management agent. You must respond with a single JSON object and nothing else, no prose before or after it.

Response schema:
{"mode": "ACT" | "ASK" | "NOOP" | "CONTINUE", "message": "<natural language text for the user>", "tool_request": null | {"name": "<tool name>", "args": {<tool arguments>}, "requires_approval": <bool>, "risk": "low" | "medium" | "high"}}

Mode semantics: ACT requests exactly one tool call via tool_request. ASK poses a clarifying question to the user. NOOP answers conversationally with no tool use. CONTINUE signals that further autonomous steps are needed. tool_request must be null unless mode is ACT.`

const conversationalRules = `You are in a live conversation. Be concise and direct, ask when uncertain, and never fabricate project facts that are not in the provided context.`

const unattendedRules = `You are running an unattended review with no user present. Do not ask questions; prefer NOOP or CONTINUE, record noteworthy observations through the memory tools, and only use ACT for low-risk tools.`

// BuildSystemPrompt renders the system prompt in a fixed section order.
// Empty sections are omitted entirely, headers included. Deterministic
// given its inputs.
func BuildSystemPrompt(project *store.Project, promptContext *Context, catalog []tools.Definition, unattended bool) string {
	sections := []string{baseInstructions}

	// Conversational and unattended rules are mutually exclusive.
	if unattended {
		sections = append(sections, unattendedRules)
	} else {
		sections = append(sections, conversationalRules)
	}

	if project != nil {
		var b strings.Builder
		b.WriteString("## Project\n")
		b.WriteString("Name: " + project.Name)
		if project.Role != "" {
			b.WriteString("\nYour role: " + project.Role)
		}
		sections = append(sections, b.String())
	}

	sections = append(sections, renderToolCatalog(catalog))

	if promptContext != nil {
		if promptContext.Playbook != "" {
			sections = append(sections, "## Playbook\n"+promptContext.Playbook)
		}
		if len(promptContext.Preferences) > 0 {
			lines := make([]string, 0, len(promptContext.Preferences))
			for _, pref := range promptContext.Preferences {
				lines = append(lines, "- "+pref.Text)
			}
			sections = append(sections, "## User preferences\n"+strings.Join(lines, "\n"))
		}
		if len(promptContext.Lessons) > 0 {
			lines := make([]string, 0, len(promptContext.Lessons))
			for _, lesson := range promptContext.Lessons {
				lines = append(lines, "- "+lesson.Text)
			}
			sections = append(sections, "## Lessons learned\n"+strings.Join(lines, "\n"))
		}
		if len(promptContext.LearnedRules) > 0 {
			shown := promptContext.LearnedRules
			if len(shown) > MaxLearnedRulesShown {
				shown = shown[:MaxLearnedRulesShown]
			}
			lines := make([]string, 0, len(shown)+1)
			for _, rule := range shown {
				lines = append(lines, "- "+rule.Title)
			}
			if promptContext.RuleCount > len(shown) {
				lines = append(lines, fmt.Sprintf("(showing %d of %d accepted rules)", len(shown), promptContext.RuleCount))
			}
			sections = append(sections, "## Learned rules\n"+strings.Join(lines, "\n"))
		}
		if promptContext.Brief != "" {
			sections = append(sections, "## Project brief\n"+promptContext.Brief)
		}
	}

	return strings.Join(sections, "\n\n")
}

func renderToolCatalog(catalog []tools.Definition) string {
	if len(catalog) == 0 {
		return "## Tools\nNo tools are available for this turn. Never use mode ACT."
	}
	var b strings.Builder
	b.WriteString("## Tools\n")
	for i, def := range catalog {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + def.Name)
		if def.Description != "" {
			b.WriteString(": " + def.Description)
		}
		b.WriteString(fmt.Sprintf(" [approval=%t risk=%s]", def.RequiresApproval, orDefault(def.Risk, "low")))
		if len(def.Parameters) > 0 {
			names := make([]string, 0, len(def.Parameters))
			for name := range def.Parameters {
				names = append(names, name)
			}
			sort.Strings(names)
			params := make([]string, 0, len(names))
			for _, name := range names {
				p := def.Parameters[name]
				tag := name
				if p.Required {
					tag += "*"
				}
				params = append(params, tag+" "+p.Type)
			}
			b.WriteString(" params(" + strings.Join(params, ", ") + ")")
		}
	}
	return b.String()
}

// BuildUserPrompt renders the user-side prompt: knowledge hits, the
// situational picture, a budgeted transcript and the current message.
// Deterministic given its inputs.
func BuildUserPrompt(message string, promptContext *Context) string {
	sections := []string{}

	if promptContext != nil {
		if len(promptContext.KnowledgeHits) > 0 {
			lines := make([]string, 0, len(promptContext.KnowledgeHits))
			for _, hit := range promptContext.KnowledgeHits {
				category := orDefault(hit.Category, "GENERAL")
				lines = append(lines, fmt.Sprintf("- [%s] (%.2f) %s", category, hit.Score, hit.Text))
			}
			sections = append(sections, "## Knowledge base\n"+strings.Join(lines, "\n"))
		}

		if picture := renderSituationalPicture(promptContext); picture != "" {
			sections = append(sections, picture)
		}

		if transcript := renderTranscript(promptContext.RecentMessages); transcript != "" {
			sections = append(sections, "## Conversation so far\n"+transcript)
		}
	}

	sections = append(sections,
		"## Current message\n"+message+"\n\nAnswer with a single JSON object only.")
	return strings.Join(sections, "\n\n")
}

func renderSituationalPicture(promptContext *Context) string {
	groups := []struct {
		header string
		items  []*store.MemoryItem
	}{
		{"Open loops", promptContext.OpenLoops},
		{"Recent events", promptContext.RecentEvents},
		{"Active ideas", promptContext.ActiveIdeas},
		{"Relevant memory", promptContext.RelevantMemory},
	}

	parts := []string{}
	for _, group := range groups {
		if len(group.items) == 0 {
			continue
		}
		lines := make([]string, 0, len(group.items))
		for _, item := range group.items {
			lines = append(lines, itemBullet(item))
		}
		parts = append(parts, group.header+":\n"+strings.Join(lines, "\n"))
	}
	if len(parts) == 0 {
		return ""
	}
	return "## Situational picture\n" + strings.Join(parts, "\n")
}

// itemBullet is a one-line summary: type, status, title and flattened
// content fields.
func itemBullet(item *store.MemoryItem) string {
	var b strings.Builder
	b.WriteString("- " + string(item.Type))
	if item.Status != nil {
		b.WriteString("/" + string(*item.Status))
	}
	b.WriteString(": " + item.Title)
	if len(item.Content) > 0 {
		keys := make([]string, 0, len(item.Content))
		for k := range item.Content {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s: %v", k, item.Content[k]))
		}
		b.WriteString(" (" + strings.Join(pairs, ", ") + ")")
	}
	return b.String()
}

// renderTranscript budgets the conversation. Each message is capped and the
// total budget is applied walking from the most recent message backwards,
// so the oldest messages drop first.
func renderTranscript(messages []*store.Message) string {
	if len(messages) == 0 {
		return ""
	}

	kept := []string{}
	total := 0
	for i := len(messages) - 1; i >= 0; i-- {
		line := string(messages[i].Role) + ": " + truncate(messages[i].Content, MessageCharCap)
		if total+len(line) > TranscriptCharBudget {
			break
		}
		total += len(line)
		kept = append(kept, line)
	}

	// Back to chronological order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
