package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepavlin/agent-manager-sub000/plugin/ai/tools"
	"github.com/pepavlin/agent-manager-sub000/store"
)

func testProject() *store.Project {
	return &store.Project{
		ID:   "p1",
		Name: "Website relaunch",
		Role: "You coordinate the relaunch and keep stakeholders aligned.",
	}
}

func TestBuildSystemPromptDeterministic(t *testing.T) {
	project := testProject()
	promptContext := &Context{
		Playbook: "Always confirm scope before estimating.",
		Preferences: []*store.Preference{
			{Text: "short updates"},
		},
		LearnedRules: []*store.MemoryItem{
			{Type: store.MemoryItemTypeRule, Title: "deploy on Fridays is banned"},
		},
		RuleCount: 1,
		Brief:     "Relaunch scheduled for Q4.",
	}
	catalog := tools.MergeCatalog(nil)

	first := BuildSystemPrompt(project, promptContext, catalog, false)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildSystemPrompt(project, promptContext, catalog, false))
	}
}

func TestBuildSystemPromptSectionOrder(t *testing.T) {
	project := testProject()
	promptContext := &Context{
		Playbook:    "playbook text",
		Preferences: []*store.Preference{{Text: "pref"}},
		Lessons:     []*store.Lesson{{Text: "lesson"}},
		LearnedRules: []*store.MemoryItem{
			{Type: store.MemoryItemTypeRule, Title: "rule one"},
		},
		RuleCount: 1,
		Brief:     "brief text",
	}

	result := BuildSystemPrompt(project, promptContext, tools.MergeCatalog(nil), false)

	markers := []string{
		"single JSON object",
		"live conversation",
		"## Project",
		"## Tools",
		"## Playbook",
		"## User preferences",
		"## Lessons learned",
		"## Learned rules",
		"## Project brief",
	}
	last := -1
	for _, marker := range markers {
		idx := strings.Index(result, marker)
		require.GreaterOrEqual(t, idx, 0, "missing section %q", marker)
		assert.Greater(t, idx, last, "section %q out of order", marker)
		last = idx
	}
}

func TestBuildSystemPromptOmitsEmptySections(t *testing.T) {
	result := BuildSystemPrompt(testProject(), &Context{}, tools.MergeCatalog(nil), false)

	assert.NotContains(t, result, "## Playbook")
	assert.NotContains(t, result, "## User preferences")
	assert.NotContains(t, result, "## Lessons learned")
	assert.NotContains(t, result, "## Learned rules")
	assert.NotContains(t, result, "## Project brief")
}

func TestBuildSystemPromptModeRulesExclusive(t *testing.T) {
	conversational := BuildSystemPrompt(testProject(), &Context{}, tools.MergeCatalog(nil), false)
	assert.Contains(t, conversational, "live conversation")
	assert.NotContains(t, conversational, "unattended review")

	unattended := BuildSystemPrompt(testProject(), &Context{}, tools.MergeCatalog(nil), true)
	assert.Contains(t, unattended, "unattended review")
	assert.NotContains(t, unattended, "live conversation")
}

func TestBuildSystemPromptNoToolsNotice(t *testing.T) {
	result := BuildSystemPrompt(testProject(), &Context{}, nil, false)
	assert.Contains(t, result, "No tools are available")
}

func TestBuildSystemPromptRuleTruncationNotice(t *testing.T) {
	rules := make([]*store.MemoryItem, 0, MaxLearnedRulesShown+5)
	for i := 0; i < MaxLearnedRulesShown+5; i++ {
		rules = append(rules, &store.MemoryItem{
			Type:  store.MemoryItemTypeRule,
			Title: "rule",
		})
	}
	promptContext := &Context{LearnedRules: rules, RuleCount: len(rules)}

	result := BuildSystemPrompt(testProject(), promptContext, tools.MergeCatalog(nil), false)
	assert.Contains(t, result, "(showing 20 of 25 accepted rules)")
}

func TestBuildUserPromptKnowledgeAndPicture(t *testing.T) {
	accepted := store.MemoryItemStatusAccepted
	promptContext := &Context{
		KnowledgeHits: []KnowledgeHit{
			{Text: "launch checklist", Category: "RULES", Score: 0.91},
		},
		OpenLoops: []*store.MemoryItem{
			{
				Type:    store.MemoryItemTypeOpenLoop,
				Status:  &accepted,
				Title:   "waiting on DNS change",
				Content: map[string]any{"owner": "ops"},
			},
		},
	}

	result := BuildUserPrompt("what is blocking us?", promptContext)
	assert.Contains(t, result, "- [RULES] (0.91) launch checklist")
	assert.Contains(t, result, "- open_loop/accepted: waiting on DNS change (owner: ops)")
	assert.Contains(t, result, "## Current message\nwhat is blocking us?")
	assert.Contains(t, result, "single JSON object only")
}

func TestBuildUserPromptDeterministic(t *testing.T) {
	promptContext := &Context{
		RelevantMemory: []*store.MemoryItem{
			{
				Type:    store.MemoryItemTypeFact,
				Title:   "fact",
				Content: map[string]any{"b": 2, "a": 1, "c": 3},
			},
		},
	}
	first := BuildUserPrompt("hello", promptContext)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildUserPrompt("hello", promptContext))
	}
}

func TestRenderTranscriptPerMessageCap(t *testing.T) {
	long := strings.Repeat("x", MessageCharCap+100)
	result := renderTranscript([]*store.Message{
		{Role: store.MessageRoleUser, Content: long},
	})
	assert.LessOrEqual(t, len(result), MessageCharCap+len("user: ")+len("…"))
	assert.True(t, strings.HasSuffix(result, "…"))
}

func TestRenderTranscriptDropsOldestFirst(t *testing.T) {
	messages := []*store.Message{}
	for i := 0; i < 30; i++ {
		messages = append(messages, &store.Message{
			Role:    store.MessageRoleUser,
			Content: strings.Repeat("m", 400),
		})
	}
	messages[len(messages)-1].Content = "NEWEST"
	messages[0].Content = "OLDEST"

	result := renderTranscript(messages)
	assert.Contains(t, result, "NEWEST")
	assert.NotContains(t, result, "OLDEST")
	assert.LessOrEqual(t, len(result), TranscriptCharBudget+len(messages))
}

func TestRenderTranscriptChronologicalOrder(t *testing.T) {
	result := renderTranscript([]*store.Message{
		{Role: store.MessageRoleUser, Content: "first"},
		{Role: store.MessageRoleAssistant, Content: "second"},
		{Role: store.MessageRoleUser, Content: "third"},
	})
	want := "user: first\nassistant: second\nuser: third"
	assert.Equal(t, want, result)
}
