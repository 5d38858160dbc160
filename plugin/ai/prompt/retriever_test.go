package prompt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/vector"
	"github.com/pepavlin/agent-manager-sub000/store"
)

type fakeRetrieverStore struct {
	project     *store.Project
	messages    []*store.Message
	preferences []*store.Preference
	lessons     []*store.Lesson

	preferencesErr error
	messagesErr    error
}

func (f *fakeRetrieverStore) GetProject(context.Context, *store.FindProject) (*store.Project, error) {
	return f.project, nil
}

func (f *fakeRetrieverStore) ListMessages(context.Context, *store.FindMessage) ([]*store.Message, error) {
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.messages, nil
}

func (f *fakeRetrieverStore) ListPreferences(context.Context, *store.FindPreference) ([]*store.Preference, error) {
	if f.preferencesErr != nil {
		return nil, f.preferencesErr
	}
	return f.preferences, nil
}

func (f *fakeRetrieverStore) ListLessons(context.Context, *store.FindLesson) ([]*store.Lesson, error) {
	return f.lessons, nil
}

// retrieverItemStore backs the memory service in retriever tests.
type retrieverItemStore struct {
	items map[string]*store.MemoryItem
}

func (f *retrieverItemStore) CreateMemoryItem(_ context.Context, create *store.MemoryItem) (*store.MemoryItem, error) {
	create.CreatedTs = time.Now().Unix()
	f.items[create.ID] = create
	return create, nil
}

func (f *retrieverItemStore) ListMemoryItems(_ context.Context, find *store.FindMemoryItem) ([]*store.MemoryItem, error) {
	result := []*store.MemoryItem{}
	for _, item := range f.items {
		if find.ID != nil && item.ID != *find.ID {
			continue
		}
		if len(find.Types) > 0 {
			match := false
			for _, t := range find.Types {
				if item.Type == t {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if len(find.Statuses) > 0 {
			if item.Status == nil {
				continue
			}
			match := false
			for _, s := range find.Statuses {
				if *item.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if len(find.ExcludeStatuses) > 0 && item.Status != nil {
			skip := false
			for _, s := range find.ExcludeStatuses {
				if *item.Status == s {
					skip = true
				}
			}
			if skip {
				continue
			}
		}
		if len(find.IDs) > 0 {
			match := false
			for _, id := range find.IDs {
				if item.ID == id {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func (f *retrieverItemStore) UpdateMemoryItem(context.Context, *store.UpdateMemoryItem) (*store.MemoryItem, error) {
	return nil, nil
}

func (f *retrieverItemStore) DeleteMemoryItems(context.Context, *store.DeleteMemoryItem) (int, error) {
	return 0, nil
}

func (f *retrieverItemStore) CreatePreference(_ context.Context, create *store.Preference) (*store.Preference, error) {
	return create, nil
}

func (f *retrieverItemStore) ListPreferences(context.Context, *store.FindPreference) ([]*store.Preference, error) {
	return nil, nil
}

func (f *retrieverItemStore) CreateLesson(_ context.Context, create *store.Lesson) (*store.Lesson, error) {
	return create, nil
}

func (f *retrieverItemStore) ListLessons(context.Context, *store.FindLesson) ([]*store.Lesson, error) {
	return nil, nil
}

type retrieverEmbedder struct {
	err error
}

func (f retrieverEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func TestRetrieveCollectsAllSections(t *testing.T) {
	ctx := context.Background()
	accepted := store.MemoryItemStatusAccepted

	retrieverStore := &fakeRetrieverStore{
		project: &store.Project{ID: "p1", Name: "P", Brief: "the brief"},
		messages: []*store.Message{
			{Role: store.MessageRoleUser, Content: "hello"},
		},
		preferences: []*store.Preference{{Text: "short updates"}},
		lessons:     []*store.Lesson{{Text: "confirm scope"}},
	}
	itemStore := &retrieverItemStore{items: map[string]*store.MemoryItem{
		"loop1": {ID: "loop1", ProjectID: "p1", Type: store.MemoryItemTypeOpenLoop, Status: &accepted, Title: "waiting"},
		"rule1": {ID: "rule1", ProjectID: "p1", Type: store.MemoryItemTypeRule, Status: &accepted, Title: "no friday deploys"},
	}}
	index := vector.NewMemoryIndex()
	require.NoError(t, index.Upsert(ctx, vector.KnowledgeCollection("p1"), []vector.Point{
		{ID: "kb1", Vector: []float32{1, 0}, Payload: map[string]any{"text": "launch checklist", "category": "PROCESS"}},
	}))
	embedder := retrieverEmbedder{}
	memoryService := memory.NewService(itemStore, index, embedder, nil)

	retriever := NewRetriever(retrieverStore, memoryService, index, embedder, nil)
	result := retriever.Retrieve(ctx, "p1", "u1", "what next?", "t1")

	assert.Equal(t, "the brief", result.Brief)
	require.Len(t, result.KnowledgeHits, 1)
	assert.Equal(t, "launch checklist", result.KnowledgeHits[0].Text)
	assert.Len(t, result.Preferences, 1)
	assert.Len(t, result.Lessons, 1)
	assert.Len(t, result.RecentMessages, 1)
	require.Len(t, result.OpenLoops, 1)
	assert.Equal(t, "waiting", result.OpenLoops[0].Title)
	require.Len(t, result.LearnedRules, 1)
	assert.Equal(t, 1, result.RuleCount)
}

func TestRetrieveDegradesFailedSections(t *testing.T) {
	ctx := context.Background()
	retrieverStore := &fakeRetrieverStore{
		project:        &store.Project{ID: "p1", Brief: "brief"},
		preferencesErr: errors.New("preferences table gone"),
		messagesErr:    errors.New("messages table gone"),
	}
	itemStore := &retrieverItemStore{items: map[string]*store.MemoryItem{}}
	index := vector.NewMemoryIndex()
	embedder := retrieverEmbedder{}
	memoryService := memory.NewService(itemStore, index, embedder, nil)

	retriever := NewRetriever(retrieverStore, memoryService, index, embedder, nil)
	result := retriever.Retrieve(ctx, "p1", "u1", "query", "t1")

	// Failed sections come back empty, the rest still arrives.
	assert.Empty(t, result.Preferences)
	assert.Empty(t, result.RecentMessages)
	assert.Equal(t, "brief", result.Brief)
}

func TestRetrieveEmbeddingFailureDegradesSemanticSections(t *testing.T) {
	ctx := context.Background()
	retrieverStore := &fakeRetrieverStore{project: &store.Project{ID: "p1", Brief: "brief"}}
	itemStore := &retrieverItemStore{items: map[string]*store.MemoryItem{}}
	index := vector.NewMemoryIndex()
	require.NoError(t, index.Upsert(ctx, vector.KnowledgeCollection("p1"), []vector.Point{
		{ID: "rule1", Vector: []float32{1, 0}, Payload: map[string]any{"text": "always confirm scope", "category": "RULES"}},
	}))
	embedder := retrieverEmbedder{err: errors.New("embedding backend down")}
	memoryService := memory.NewService(itemStore, index, embedder, nil)

	retriever := NewRetriever(retrieverStore, memoryService, index, embedder, nil)
	result := retriever.Retrieve(ctx, "p1", "u1", "query", "")

	assert.Empty(t, result.KnowledgeHits)
	assert.Empty(t, result.RelevantMemory)
	assert.Equal(t, "brief", result.Brief)
	// The playbook is fetched by recency, not by query similarity, so it
	// still arrives when the query embedding fails.
	assert.Equal(t, "always confirm scope", result.Playbook)
}

func TestRetrievePlaybookNewestFirst(t *testing.T) {
	ctx := context.Background()
	retrieverStore := &fakeRetrieverStore{project: &store.Project{ID: "p1"}}
	itemStore := &retrieverItemStore{items: map[string]*store.MemoryItem{}}
	index := vector.NewMemoryIndex()
	collection := vector.KnowledgeCollection("p1")
	for i, text := range []string{"oldest rule", "middle rule", "newest rule"} {
		require.NoError(t, index.Upsert(ctx, collection, []vector.Point{
			{ID: fmt.Sprintf("rule%d", i), Vector: []float32{1, 0}, Payload: map[string]any{"text": text, "category": "RULES"}},
		}))
	}
	require.NoError(t, index.Upsert(ctx, collection, []vector.Point{
		{ID: "kb1", Vector: []float32{1, 0}, Payload: map[string]any{"text": "not a rule", "category": "PROCESS"}},
	}))
	embedder := retrieverEmbedder{}
	memoryService := memory.NewService(itemStore, index, embedder, nil)

	retriever := NewRetriever(retrieverStore, memoryService, index, embedder, nil)
	result := retriever.Retrieve(ctx, "p1", "u1", "query", "")

	assert.Equal(t, "newest rule\n\nmiddle rule\n\noldest rule", result.Playbook)
}
