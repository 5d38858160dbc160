package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/vector"
	"github.com/pepavlin/agent-manager-sub000/store"
)

func TestValidateUnknownTool(t *testing.T) {
	catalog := MergeCatalog(nil)

	err := Validate(&Request{Name: "jira.create_ticket"}, catalog)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	assert.Contains(t, err.Error(), "jira.create_ticket")
}

func TestValidateMissingRequiredParameter(t *testing.T) {
	catalog := MergeCatalog(nil)

	err := Validate(&Request{
		Name: ToolMemoryProposeAdd,
		Args: map[string]any{"type": "fact"},
	}, catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"title"`)
}

func TestValidateCallerTool(t *testing.T) {
	catalog := MergeCatalog([]Definition{{
		Name: "calendar.schedule",
		Parameters: map[string]Parameter{
			"when": {Type: "string", Required: true},
			"who":  {Type: "string", Required: false},
		},
	}})

	require.NoError(t, Validate(&Request{
		Name: "calendar.schedule",
		Args: map[string]any{"when": "tomorrow"},
	}, catalog))

	err := Validate(&Request{Name: "calendar.schedule"}, catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"when"`)
}

func TestValidateEmptyName(t *testing.T) {
	require.Error(t, Validate(&Request{}, MergeCatalog(nil)))
	require.Error(t, Validate(nil, MergeCatalog(nil)))
}

func TestAutoApproved(t *testing.T) {
	assert.True(t, AutoApproved(ToolMemoryProposeAdd))
	assert.True(t, AutoApproved(ToolMemoryProposeUpdate))
	assert.False(t, AutoApproved("calendar.schedule"))
	assert.False(t, AutoApproved("jira.create_ticket"))
}

func TestMergeCatalogBuiltinsWin(t *testing.T) {
	merged := MergeCatalog([]Definition{
		{Name: ToolMemoryProposeAdd, Description: "shadow attempt"},
		{Name: "calendar.schedule"},
	})

	require.Len(t, merged, 3)
	def, ok := Lookup(merged, ToolMemoryProposeAdd)
	require.True(t, ok)
	assert.NotEqual(t, "shadow attempt", def.Description)
}

// executorItemStore is a minimal in-memory store for executor tests.
type executorItemStore struct {
	items map[string]*store.MemoryItem
}

func (f *executorItemStore) CreateMemoryItem(_ context.Context, create *store.MemoryItem) (*store.MemoryItem, error) {
	create.CreatedTs = time.Now().Unix()
	create.UpdatedTs = create.CreatedTs
	f.items[create.ID] = create
	return create, nil
}

func (f *executorItemStore) ListMemoryItems(_ context.Context, find *store.FindMemoryItem) ([]*store.MemoryItem, error) {
	if find.ID != nil {
		if item, ok := f.items[*find.ID]; ok {
			return []*store.MemoryItem{item}, nil
		}
		return nil, nil
	}
	result := []*store.MemoryItem{}
	for _, item := range f.items {
		result = append(result, item)
	}
	return result, nil
}

func (f *executorItemStore) UpdateMemoryItem(_ context.Context, update *store.UpdateMemoryItem) (*store.MemoryItem, error) {
	item, ok := f.items[update.ID]
	if !ok {
		return nil, nil
	}
	if update.Title != nil {
		item.Title = *update.Title
	}
	if update.Status != nil {
		item.Status = update.Status
	}
	return item, nil
}

func (f *executorItemStore) DeleteMemoryItems(context.Context, *store.DeleteMemoryItem) (int, error) {
	return 0, nil
}

func (f *executorItemStore) CreatePreference(_ context.Context, create *store.Preference) (*store.Preference, error) {
	return create, nil
}

func (f *executorItemStore) ListPreferences(context.Context, *store.FindPreference) ([]*store.Preference, error) {
	return nil, nil
}

func (f *executorItemStore) CreateLesson(_ context.Context, create *store.Lesson) (*store.Lesson, error) {
	return create, nil
}

func (f *executorItemStore) ListLessons(context.Context, *store.FindLesson) ([]*store.Lesson, error) {
	return nil, nil
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func newTestExecutor() (*Executor, *executorItemStore) {
	itemStore := &executorItemStore{items: map[string]*store.MemoryItem{}}
	service := memory.NewService(itemStore, vector.NewMemoryIndex(), unitEmbedder{}, nil)
	return NewExecutor(service), itemStore
}

func TestExecuteProposeAddEvent(t *testing.T) {
	ctx := context.Background()
	executor, itemStore := newTestExecutor()

	result := executor.Execute(ctx, "p1", nil, store.MemorySourceUserChat, &Request{
		Name: ToolMemoryProposeAdd,
		Args: map[string]any{
			"type":               "event",
			"title":              "kickoff call done",
			"expires_in_seconds": float64(3600),
		},
	})
	require.True(t, result.OK, result.Error)

	id, ok := result.Data["memory_item_id"].(string)
	require.True(t, ok)
	item := itemStore.items[id]
	require.NotNil(t, item)
	assert.Equal(t, store.MemoryItemTypeEvent, item.Type)
	require.NotNil(t, item.Status)
	assert.Equal(t, store.MemoryItemStatusAccepted, *item.Status)
	require.NotNil(t, item.ExpiresTs)
}

func TestExecuteProposeAddFactDefaultsAccepted(t *testing.T) {
	ctx := context.Background()
	executor, itemStore := newTestExecutor()

	result := executor.Execute(ctx, "p1", nil, store.MemorySourceUserChat, &Request{
		Name: ToolMemoryProposeAdd,
		Args: map[string]any{
			"type":  "fact",
			"title": "budget is 40k",
			"tags":  []any{"finance"},
		},
	})
	require.True(t, result.OK, result.Error)

	id := result.Data["memory_item_id"].(string)
	item := itemStore.items[id]
	require.NotNil(t, item.Status)
	assert.Equal(t, store.MemoryItemStatusAccepted, *item.Status)
	assert.Equal(t, []string{"finance"}, item.Tags)
}

func TestExecuteProposeUpdate(t *testing.T) {
	ctx := context.Background()
	executor, itemStore := newTestExecutor()

	seed := executor.Execute(ctx, "p1", nil, store.MemorySourceUserChat, &Request{
		Name: ToolMemoryProposeAdd,
		Args: map[string]any{"type": "open_loop", "title": "waiting on vendor"},
	})
	require.True(t, seed.OK)
	id := seed.Data["memory_item_id"].(string)

	result := executor.Execute(ctx, "p1", nil, store.MemorySourceUserChat, &Request{
		Name: ToolMemoryProposeUpdate,
		Args: map[string]any{
			"memory_item_id": id,
			"patch":          map[string]any{"status": "done"},
			"reason":         "vendor replied",
		},
	})
	require.True(t, result.OK, result.Error)
	require.NotNil(t, itemStore.items[id].Status)
	assert.Equal(t, store.MemoryItemStatusDone, *itemStore.items[id].Status)
}

func TestExecuteProposeUpdateMissingArgs(t *testing.T) {
	ctx := context.Background()
	executor, _ := newTestExecutor()

	result := executor.Execute(ctx, "p1", nil, store.MemorySourceUserChat, &Request{
		Name: ToolMemoryProposeUpdate,
		Args: map[string]any{"reason": "no target"},
	})
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Error)
}

func TestExecuteUnknownMemoryTool(t *testing.T) {
	ctx := context.Background()
	executor, _ := newTestExecutor()

	result := executor.Execute(ctx, "p1", nil, store.MemorySourceUserChat, &Request{
		Name: "memory.forget_everything",
	})
	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "memory.forget_everything")
}
