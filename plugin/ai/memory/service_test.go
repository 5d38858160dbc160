package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/vector"
	"github.com/pepavlin/agent-manager-sub000/store"
)

// fakeItemStore is an in-memory ItemStore implementing the same filter
// semantics as the SQL drivers.
type fakeItemStore struct {
	mu          sync.Mutex
	items       map[string]*store.MemoryItem
	preferences []*store.Preference
	lessons     []*store.Lesson
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: map[string]*store.MemoryItem{}}
}

func (f *fakeItemStore) CreateMemoryItem(_ context.Context, create *store.MemoryItem) (*store.MemoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	create.UpdatedTs = create.CreatedTs
	clone := *create
	f.items[create.ID] = &clone
	return create, nil
}

func (f *fakeItemStore) ListMemoryItems(_ context.Context, find *store.FindMemoryItem) ([]*store.MemoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().Unix()
	result := []*store.MemoryItem{}
	for _, item := range f.items {
		if find.ID != nil && item.ID != *find.ID {
			continue
		}
		if len(find.IDs) > 0 && !containsString(find.IDs, item.ID) {
			continue
		}
		if find.ProjectID != nil && item.ProjectID != *find.ProjectID {
			continue
		}
		if find.UserID != nil && (item.UserID == nil || *item.UserID != *find.UserID) {
			continue
		}
		if len(find.Types) > 0 && !containsType(find.Types, item.Type) {
			continue
		}
		if len(find.Statuses) > 0 && (item.Status == nil || !containsStatus(find.Statuses, *item.Status)) {
			continue
		}
		if len(find.ExcludeStatuses) > 0 && item.Status != nil && containsStatus(find.ExcludeStatuses, *item.Status) {
			continue
		}
		expired := item.ExpiresTs != nil && *item.ExpiresTs <= now
		if find.ExpiredOnly && !expired {
			continue
		}
		if !find.ExpiredOnly && !find.IncludeExpired && expired {
			continue
		}
		clone := *item
		result = append(result, &clone)
	}
	if find.Limit > 0 && len(result) > find.Limit {
		result = result[:find.Limit]
	}
	return result, nil
}

func (f *fakeItemStore) UpdateMemoryItem(_ context.Context, update *store.UpdateMemoryItem) (*store.MemoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[update.ID]
	if !ok {
		return nil, nil
	}
	if update.Title != nil {
		item.Title = *update.Title
	}
	if update.Content != nil {
		item.Content = update.Content
	}
	if update.Status != nil {
		item.Status = update.Status
	}
	if update.Confidence != nil {
		item.Confidence = *update.Confidence
	}
	if update.Tags != nil {
		item.Tags = update.Tags
	}
	if update.ExpiresTs != nil {
		item.ExpiresTs = update.ExpiresTs
	}
	item.UpdatedTs = time.Now().Unix()
	clone := *item
	return &clone, nil
}

func (f *fakeItemStore) DeleteMemoryItems(_ context.Context, del *store.DeleteMemoryItem) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	ids := del.IDs
	if del.ID != nil {
		ids = append(ids, *del.ID)
	}
	for _, id := range ids {
		if _, ok := f.items[id]; ok {
			count++
			delete(f.items, id)
		}
	}
	return count, nil
}

func (f *fakeItemStore) CreatePreference(_ context.Context, create *store.Preference) (*store.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preferences = append(f.preferences, create)
	return create, nil
}

func (f *fakeItemStore) ListPreferences(_ context.Context, _ *store.FindPreference) ([]*store.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preferences, nil
}

func (f *fakeItemStore) CreateLesson(_ context.Context, create *store.Lesson) (*store.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lessons = append(f.lessons, create)
	return create, nil
}

func (f *fakeItemStore) ListLessons(_ context.Context, _ *store.FindLesson) ([]*store.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lessons, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsType(list []store.MemoryItemType, v store.MemoryItemType) bool {
	for _, t := range list {
		if t == v {
			return true
		}
	}
	return false
}

func containsStatus(list []store.MemoryItemStatus, v store.MemoryItemStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// fakeEmbedder counts calls and returns a constant unit vector per text.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingIndex rejects every write.
type failingIndex struct{}

func (failingIndex) Upsert(context.Context, string, []vector.Point) error {
	return errors.New("index unavailable")
}

func (failingIndex) Search(context.Context, string, []float32, int, vector.Filter) ([]vector.Hit, error) {
	return nil, errors.New("index unavailable")
}

func (failingIndex) List(context.Context, string, int, vector.Filter) ([]vector.Hit, error) {
	return nil, errors.New("index unavailable")
}

func (failingIndex) Delete(context.Context, string, []string) error {
	return errors.New("index unavailable")
}

func newTestService() (*Service, *fakeItemStore, *vector.MemoryIndex, *fakeEmbedder) {
	itemStore := newFakeItemStore()
	index := vector.NewMemoryIndex()
	embedder := &fakeEmbedder{}
	return NewService(itemStore, index, embedder, nil), itemStore, index, embedder
}

func TestCreateWritesRowAndPoint(t *testing.T) {
	ctx := context.Background()
	service, itemStore, index, _ := newTestService()

	accepted := store.MemoryItemStatusAccepted
	item, err := service.Create(ctx, &CreateRequest{
		ProjectID:  "p1",
		Type:       store.MemoryItemTypeFact,
		Title:      "Client prefers weekly calls",
		Content:    map[string]any{"day": "Tuesday"},
		Status:     &accepted,
		Source:     store.MemorySourceUserChat,
		Confidence: 0.9,
	})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.NotNil(t, item.VectorPointID)
	assert.Equal(t, item.ID, *item.VectorPointID)

	stored, ok := itemStore.items[item.ID]
	require.True(t, ok)
	assert.Equal(t, "Client prefers weekly calls", stored.Title)

	hits, err := index.Search(ctx, vector.MemoryCollection("p1"), []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, item.ID, hits[0].Payload["memory_item_id"])
	assert.Equal(t, "fact", hits[0].Payload["type"])
}

func TestCreateEmbeddingFailurePropagates(t *testing.T) {
	ctx := context.Background()
	itemStore := newFakeItemStore()
	embedder := &fakeEmbedder{err: errors.New("embedding backend down")}
	service := NewService(itemStore, vector.NewMemoryIndex(), embedder, nil)

	_, err := service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeFact,
		Title:     "t",
	})
	require.Error(t, err)
	assert.True(t, agenterrors.IsCode(err, agenterrors.CodeProviderFailure))
	assert.Empty(t, itemStore.items)
}

func TestCreateIndexFailureKeepsRow(t *testing.T) {
	ctx := context.Background()
	itemStore := newFakeItemStore()
	service := NewService(itemStore, failingIndex{}, &fakeEmbedder{}, nil)

	item, err := service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeDecision,
		Title:     "Ship v2 on Friday",
	})
	require.NoError(t, err)
	assert.Contains(t, itemStore.items, item.ID)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newTestService()

	testCases := []struct {
		name string
		req  *CreateRequest
	}{
		{name: "missing_project", req: &CreateRequest{Type: store.MemoryItemTypeFact, Title: "t"}},
		{name: "unknown_type", req: &CreateRequest{ProjectID: "p1", Type: "wish", Title: "t"}},
		{name: "empty_title", req: &CreateRequest{ProjectID: "p1", Type: store.MemoryItemTypeFact, Title: "  "}},
		{name: "confidence_out_of_range", req: &CreateRequest{ProjectID: "p1", Type: store.MemoryItemTypeFact, Title: "t", Confidence: 1.5}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Create(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, agenterrors.IsCode(err, agenterrors.CodeInvalidArgument))
		})
	}
}

func TestUpdateStatusSkipsReembedding(t *testing.T) {
	ctx := context.Background()
	service, _, _, embedder := newTestService()

	proposed := store.MemoryItemStatusProposed
	item, err := service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeOpenLoop,
		Title:     "Waiting on legal review",
		Status:    &proposed,
	})
	require.NoError(t, err)
	require.Equal(t, 1, embedder.callCount())

	accepted := store.MemoryItemStatusAccepted
	_, err = service.Update(ctx, &store.UpdateMemoryItem{ID: item.ID, Status: &accepted})
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.callCount())

	newTitle := "Legal review escalated"
	_, err = service.Update(ctx, &store.UpdateMemoryItem{ID: item.ID, Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.callCount())
}

func TestUpdateContentTriggersReembedding(t *testing.T) {
	ctx := context.Background()
	service, _, _, embedder := newTestService()

	item, err := service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeFact,
		Title:     "t",
		Content:   map[string]any{"a": "1"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, embedder.callCount())

	// Same content, no re-embed.
	_, err = service.Update(ctx, &store.UpdateMemoryItem{ID: item.ID, Content: map[string]any{"a": "1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.callCount())

	_, err = service.Update(ctx, &store.UpdateMemoryItem{ID: item.ID, Content: map[string]any{"a": "2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.callCount())
}

func TestUpdateMissingItem(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newTestService()

	title := "t"
	_, err := service.Update(ctx, &store.UpdateMemoryItem{ID: "missing", Title: &title})
	require.Error(t, err)
	assert.True(t, agenterrors.IsCode(err, agenterrors.CodeNotFound))
}

func TestGetReturnsItem(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newTestService()

	item, err := service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeFact,
		Title:     "budget approved",
	})
	require.NoError(t, err)

	got, err := service.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "budget approved", got.Title)

	_, err = service.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, agenterrors.IsCode(err, agenterrors.CodeNotFound))
}

func TestListExcludesExpiredByDefault(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newTestService()

	past := time.Now().Add(-time.Hour).Unix()
	_, err := service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeMetric,
		Title:     "stale metric",
		ExpiresTs: &past,
	})
	require.NoError(t, err)
	_, err = service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeMetric,
		Title:     "live metric",
	})
	require.NoError(t, err)

	projectID := "p1"
	items, err := service.List(ctx, &store.FindMemoryItem{ProjectID: &projectID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "live metric", items[0].Title)

	items, err = service.List(ctx, &store.FindMemoryItem{ProjectID: &projectID, IncludeExpired: true})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSearchDropsStaleHits(t *testing.T) {
	ctx := context.Background()
	service, _, index, _ := newTestService()

	item, err := service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeFact,
		Title:     "kept",
	})
	require.NoError(t, err)

	// Orphan point with no relational row behind it.
	require.NoError(t, index.Upsert(ctx, vector.MemoryCollection("p1"), []vector.Point{
		{ID: "ghost", Vector: []float32{1, 0, 0}, Payload: map[string]any{"memory_item_id": "ghost"}},
	}))

	items, err := service.Search(ctx, &SearchRequest{ProjectID: "p1", Query: "anything", Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestPurgeExpiredIdempotent(t *testing.T) {
	ctx := context.Background()
	service, _, index, _ := newTestService()

	count, err := service.PurgeExpired(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	past := time.Now().Add(-time.Minute).Unix()
	_, err = service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeEvent,
		Title:     "expired event",
		ExpiresTs: &past,
	})
	require.NoError(t, err)

	count, err = service.PurgeExpired(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := index.Search(ctx, vector.MemoryCollection("p1"), []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	count, err = service.PurgeExpired(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStatusTransitionsArePermissive(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newTestService()

	accepted := store.MemoryItemStatusAccepted
	item, err := service.Create(ctx, &CreateRequest{
		ProjectID: "p1",
		Type:      store.MemoryItemTypeOpenLoop,
		Title:     "loop",
		Status:    &accepted,
	})
	require.NoError(t, err)

	// Accepting an already-accepted item logs but succeeds.
	updated, err := service.AcceptProposal(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Status)
	assert.Equal(t, store.MemoryItemStatusAccepted, *updated.Status)

	updated, err = service.MarkDone(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, store.MemoryItemStatusDone, *updated.Status)
}

func TestRecordEventAccepted(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newTestService()

	item, err := service.RecordEvent(ctx, "p1", nil, "deploy finished", map[string]any{"version": "1.2"}, store.MemorySourceToolResult, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, item.Status)
	assert.Equal(t, store.MemoryItemStatusAccepted, *item.Status)
	require.NotNil(t, item.ExpiresTs)
	assert.Greater(t, *item.ExpiresTs, time.Now().Unix())
}

func TestSavePreferenceWriteThrough(t *testing.T) {
	ctx := context.Background()
	service, itemStore, _, _ := newTestService()

	pref, err := service.SavePreference(ctx, "p1", "u1", "short status updates only")
	require.NoError(t, err)
	assert.True(t, pref.Active)
	require.Len(t, itemStore.preferences, 1)

	projectID := "p1"
	items, err := service.List(ctx, &store.FindMemoryItem{
		ProjectID: &projectID,
		Types:     []store.MemoryItemType{store.MemoryItemTypePreference},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "short status updates only", items[0].Title)
}

func TestFlattenTextDeterministic(t *testing.T) {
	content := map[string]any{"b": 2, "a": "x", "c": true}
	want := "title\na: x\nb: 2\nc: true"
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, FlattenText("title", content))
	}
	assert.Equal(t, "bare", FlattenText("bare", nil))
}
