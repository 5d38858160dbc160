// Package memory implements the dual-persisted memory item store. Every
// item lives as an authoritative relational row plus a best-effort vector
// point used for semantic retrieval.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/vector"
	"github.com/pepavlin/agent-manager-sub000/store"
)

// Embedder generates embedding vectors for texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ItemStore is the subset of the store the memory service needs.
// *store.Store satisfies it.
type ItemStore interface {
	CreateMemoryItem(ctx context.Context, create *store.MemoryItem) (*store.MemoryItem, error)
	ListMemoryItems(ctx context.Context, find *store.FindMemoryItem) ([]*store.MemoryItem, error)
	UpdateMemoryItem(ctx context.Context, update *store.UpdateMemoryItem) (*store.MemoryItem, error)
	DeleteMemoryItems(ctx context.Context, delete *store.DeleteMemoryItem) (int, error)
	CreatePreference(ctx context.Context, create *store.Preference) (*store.Preference, error)
	ListPreferences(ctx context.Context, find *store.FindPreference) ([]*store.Preference, error)
	CreateLesson(ctx context.Context, create *store.Lesson) (*store.Lesson, error)
	ListLessons(ctx context.Context, find *store.FindLesson) ([]*store.Lesson, error)
}

// Service coordinates the relational rows and the mirrored vector points.
type Service struct {
	store    ItemStore
	index    vector.Index
	embedder Embedder
	logger   *slog.Logger
}

// NewService creates a memory service.
func NewService(itemStore ItemStore, index vector.Index, embedder Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    itemStore,
		index:    index,
		embedder: embedder,
		logger:   logger,
	}
}

// CreateRequest describes a memory item to create.
type CreateRequest struct {
	ProjectID    string
	UserID       *string
	Type         store.MemoryItemType
	Title        string
	Content      map[string]any
	Status       *store.MemoryItemStatus
	Source       store.MemorySource
	Confidence   float64
	Tags         []string
	SupersedesID *string
	ExpiresTs    *int64
}

var validTypes = map[store.MemoryItemType]bool{
	store.MemoryItemTypeFact:       true,
	store.MemoryItemTypeRule:       true,
	store.MemoryItemTypeEvent:      true,
	store.MemoryItemTypeDecision:   true,
	store.MemoryItemTypeOpenLoop:   true,
	store.MemoryItemTypeIdea:       true,
	store.MemoryItemTypeMetric:     true,
	store.MemoryItemTypePreference: true,
	store.MemoryItemTypeLesson:     true,
}

// Create embeds the item, writes the relational row and mirrors a vector
// point. An embedding failure aborts the create since there is no sensible
// item to store without a vector; an index write failure is logged and the
// relational row stands.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*store.MemoryItem, error) {
	if req.ProjectID == "" {
		return nil, errors.InvalidArgument("project id is required")
	}
	if !validTypes[req.Type] {
		return nil, errors.InvalidArgument("unknown memory item type %q", req.Type)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.InvalidArgument("title is required")
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, errors.InvalidArgument("confidence must be in [0,1], got %v", req.Confidence)
	}

	text := FlattenText(req.Title, req.Content)
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, errors.ProviderFailure(err, "failed to embed memory item")
	}

	id := uuid.NewString()
	item, err := s.store.CreateMemoryItem(ctx, &store.MemoryItem{
		ID:            id,
		ProjectID:     req.ProjectID,
		UserID:        req.UserID,
		Type:          req.Type,
		Title:         req.Title,
		Content:       req.Content,
		Status:        req.Status,
		Source:        req.Source,
		Confidence:    req.Confidence,
		Tags:          req.Tags,
		SupersedesID:  req.SupersedesID,
		VectorPointID: &id,
		ExpiresTs:     req.ExpiresTs,
	})
	if err != nil {
		return nil, err
	}

	s.upsertPoint(ctx, item, vectors[0])
	return item, nil
}

// Update patches a memory item. The vector point is re-embedded only when
// the title or content changed; status/confidence/tag edits skip the
// embedding call.
func (s *Service) Update(ctx context.Context, update *store.UpdateMemoryItem) (*store.MemoryItem, error) {
	current, err := s.getIncludingExpired(ctx, update.ID)
	if err != nil {
		return nil, err
	}

	contentChanged := false
	if update.Title != nil && *update.Title != current.Title {
		contentChanged = true
	}
	if update.Content != nil && !reflect.DeepEqual(update.Content, current.Content) {
		contentChanged = true
	}

	item, err := s.store.UpdateMemoryItem(ctx, update)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.NotFound("memory item %s not found", update.ID).WithContext("memory_item_id", update.ID)
	}

	if contentChanged {
		text := FlattenText(item.Title, item.Content)
		vectors, err := s.embedder.Embed(ctx, []string{text})
		if err != nil {
			s.logger.Warn("failed to re-embed memory item, vector point is stale",
				"memory_item_id", item.ID, "error", err)
			return item, nil
		}
		s.upsertPoint(ctx, item, vectors[0])
	}
	return item, nil
}

// List returns memory items matching the filter. Expired items are excluded
// unless the filter opts in.
func (s *Service) List(ctx context.Context, find *store.FindMemoryItem) ([]*store.MemoryItem, error) {
	return s.store.ListMemoryItems(ctx, find)
}

// Get returns a single non-expired memory item by id.
func (s *Service) Get(ctx context.Context, id string) (*store.MemoryItem, error) {
	items, err := s.store.ListMemoryItems(ctx, &store.FindMemoryItem{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.NotFound("memory item %s not found", id).WithContext("memory_item_id", id)
	}
	return items[0], nil
}

// SearchRequest describes a semantic search over memory items.
type SearchRequest struct {
	ProjectID string
	Query     string
	Types     []store.MemoryItemType
	UserID    *string
	Limit     int
}

// Search embeds the query, searches the project's memory collection and
// rehydrates full items from the relational store. Hits whose row has
// expired or been deleted are dropped silently.
func (s *Service) Search(ctx context.Context, req *SearchRequest) ([]*store.MemoryItem, error) {
	if req.Limit <= 0 {
		req.Limit = 10
	}
	vectors, err := s.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, errors.ProviderFailure(err, "failed to embed search query")
	}

	var filter vector.Filter
	if len(req.Types) == 1 {
		filter = vector.Filter{"type": string(req.Types[0])}
	}
	// With a multi-type filter the index is over-fetched and the type
	// restriction applied on the relational side.
	fetchLimit := req.Limit
	if len(req.Types) > 1 {
		fetchLimit = req.Limit * len(req.Types)
	}

	hits, err := s.index.Search(ctx, vector.MemoryCollection(req.ProjectID), vectors[0], fetchLimit, filter)
	if err != nil {
		return nil, errors.IndexWriteFailure(err, "failed to search memory index")
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	items, err := s.store.ListMemoryItems(ctx, &store.FindMemoryItem{
		IDs:       ids,
		ProjectID: &req.ProjectID,
		UserID:    req.UserID,
		Types:     req.Types,
	})
	if err != nil {
		return nil, err
	}

	// Preserve similarity order.
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	sort.SliceStable(items, func(i, j int) bool {
		return rank[items[i].ID] < rank[items[j].ID]
	})
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return items, nil
}

// PurgeExpired deletes all items of a project whose expiry has passed,
// removing their vector points first. It is idempotent; with nothing
// expired it returns 0 and performs no deletes.
func (s *Service) PurgeExpired(ctx context.Context, projectID string) (int, error) {
	expired, err := s.store.ListMemoryItems(ctx, &store.FindMemoryItem{
		ProjectID:   &projectID,
		ExpiredOnly: true,
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	pointIDs := make([]string, 0, len(expired))
	for _, item := range expired {
		ids = append(ids, item.ID)
		if item.VectorPointID != nil {
			pointIDs = append(pointIDs, *item.VectorPointID)
		}
	}
	if len(pointIDs) > 0 {
		if err := s.index.Delete(ctx, vector.MemoryCollection(projectID), pointIDs); err != nil {
			s.logger.Warn("failed to delete expired vector points",
				"project_id", projectID, "count", len(pointIDs), "error", err)
		}
	}
	return s.store.DeleteMemoryItems(ctx, &store.DeleteMemoryItem{IDs: ids})
}

// AcceptProposal transitions an item to accepted. A prior status other than
// proposed is logged, not rejected.
func (s *Service) AcceptProposal(ctx context.Context, id string) (*store.MemoryItem, error) {
	return s.transition(ctx, id, store.MemoryItemStatusAccepted, store.MemoryItemStatusProposed)
}

// RejectProposal transitions an item to rejected.
func (s *Service) RejectProposal(ctx context.Context, id string) (*store.MemoryItem, error) {
	return s.transition(ctx, id, store.MemoryItemStatusRejected, store.MemoryItemStatusProposed)
}

// MarkDone transitions an item to done.
func (s *Service) MarkDone(ctx context.Context, id string) (*store.MemoryItem, error) {
	return s.transition(ctx, id, store.MemoryItemStatusDone, store.MemoryItemStatusAccepted)
}

func (s *Service) transition(ctx context.Context, id string, to, expectedFrom store.MemoryItemStatus) (*store.MemoryItem, error) {
	current, err := s.getIncludingExpired(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == nil || *current.Status != expectedFrom {
		got := "<nil>"
		if current.Status != nil {
			got = string(*current.Status)
		}
		s.logger.Warn("memory item status transition from unexpected state",
			"memory_item_id", id, "from", got, "to", string(to))
	}
	return s.Update(ctx, &store.UpdateMemoryItem{ID: id, Status: &to})
}

// RecordEvent appends an observational event item. Events need no approval
// and are created accepted.
func (s *Service) RecordEvent(ctx context.Context, projectID string, userID *string, title string, content map[string]any, source store.MemorySource, ttl time.Duration) (*store.MemoryItem, error) {
	accepted := store.MemoryItemStatusAccepted
	req := &CreateRequest{
		ProjectID:  projectID,
		UserID:     userID,
		Type:       store.MemoryItemTypeEvent,
		Title:      title,
		Content:    content,
		Status:     &accepted,
		Source:     source,
		Confidence: 1,
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl).Unix()
		req.ExpiresTs = &expires
	}
	return s.Create(ctx, req)
}

// RecordMetric appends a metric observation with a TTL, created accepted.
func (s *Service) RecordMetric(ctx context.Context, projectID string, userID *string, title string, content map[string]any, ttl time.Duration) (*store.MemoryItem, error) {
	accepted := store.MemoryItemStatusAccepted
	req := &CreateRequest{
		ProjectID:  projectID,
		UserID:     userID,
		Type:       store.MemoryItemTypeMetric,
		Title:      title,
		Content:    content,
		Status:     &accepted,
		Source:     store.MemorySourceSystem,
		Confidence: 1,
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl).Unix()
		req.ExpiresTs = &expires
	}
	return s.Create(ctx, req)
}

// SavePreference writes the legacy preference row and mirrors it as a
// preference-type memory item. The legacy write is authoritative; a mirror
// failure is logged and the preference stands.
func (s *Service) SavePreference(ctx context.Context, projectID, userID, text string) (*store.Preference, error) {
	pref, err := s.store.CreatePreference(ctx, &store.Preference{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		Text:      text,
		Active:    true,
	})
	if err != nil {
		return nil, err
	}

	active := store.MemoryItemStatusActive
	if _, err := s.Create(ctx, &CreateRequest{
		ProjectID:  projectID,
		UserID:     &userID,
		Type:       store.MemoryItemTypePreference,
		Title:      text,
		Status:     &active,
		Source:     store.MemorySourceUserChat,
		Confidence: 1,
	}); err != nil {
		s.logger.Warn("failed to mirror preference as memory item",
			"preference_id", pref.ID, "error", err)
	}
	return pref, nil
}

// SaveLesson writes the legacy lesson row and mirrors it as a lesson-type
// memory item.
func (s *Service) SaveLesson(ctx context.Context, projectID, userID, text string) (*store.Lesson, error) {
	lesson, err := s.store.CreateLesson(ctx, &store.Lesson{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		Text:      text,
	})
	if err != nil {
		return nil, err
	}

	active := store.MemoryItemStatusActive
	if _, err := s.Create(ctx, &CreateRequest{
		ProjectID:  projectID,
		UserID:     &userID,
		Type:       store.MemoryItemTypeLesson,
		Title:      text,
		Status:     &active,
		Source:     store.MemorySourceUserChat,
		Confidence: 1,
	}); err != nil {
		s.logger.Warn("failed to mirror lesson as memory item",
			"lesson_id", lesson.ID, "error", err)
	}
	return lesson, nil
}

// OpenLoops returns open-loop items in any non-done status.
func (s *Service) OpenLoops(ctx context.Context, projectID string, limit int) ([]*store.MemoryItem, error) {
	return s.store.ListMemoryItems(ctx, &store.FindMemoryItem{
		ProjectID:       &projectID,
		Types:           []store.MemoryItemType{store.MemoryItemTypeOpenLoop},
		ExcludeStatuses: []store.MemoryItemStatus{store.MemoryItemStatusDone},
		Limit:           limit,
	})
}

// RecentEvents returns the most recently recorded accepted events.
func (s *Service) RecentEvents(ctx context.Context, projectID string, limit int) ([]*store.MemoryItem, error) {
	return s.store.ListMemoryItems(ctx, &store.FindMemoryItem{
		ProjectID: &projectID,
		Types:     []store.MemoryItemType{store.MemoryItemTypeEvent},
		Statuses:  []store.MemoryItemStatus{store.MemoryItemStatusAccepted},
		Limit:     limit,
	})
}

// ActiveIdeas returns idea items in active status.
func (s *Service) ActiveIdeas(ctx context.Context, projectID string, limit int) ([]*store.MemoryItem, error) {
	return s.store.ListMemoryItems(ctx, &store.FindMemoryItem{
		ProjectID: &projectID,
		Types:     []store.MemoryItemType{store.MemoryItemTypeIdea},
		Statuses:  []store.MemoryItemStatus{store.MemoryItemStatusActive, store.MemoryItemStatusAccepted},
		Limit:     limit,
	})
}

// AcceptedRules returns all accepted rule items and their total count, so
// the prompt builder can show a subset with a truncation notice.
func (s *Service) AcceptedRules(ctx context.Context, projectID string) ([]*store.MemoryItem, int, error) {
	rules, err := s.store.ListMemoryItems(ctx, &store.FindMemoryItem{
		ProjectID: &projectID,
		Types:     []store.MemoryItemType{store.MemoryItemTypeRule},
		Statuses:  []store.MemoryItemStatus{store.MemoryItemStatusAccepted},
	})
	if err != nil {
		return nil, 0, err
	}
	return rules, len(rules), nil
}

func (s *Service) getIncludingExpired(ctx context.Context, id string) (*store.MemoryItem, error) {
	items, err := s.store.ListMemoryItems(ctx, &store.FindMemoryItem{
		ID:             &id,
		IncludeExpired: true,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.NotFound("memory item %s not found", id).WithContext("memory_item_id", id)
	}
	return items[0], nil
}

func (s *Service) upsertPoint(ctx context.Context, item *store.MemoryItem, embedding []float32) {
	payload := map[string]any{
		"memory_item_id": item.ID,
		"type":           string(item.Type),
		"title":          item.Title,
		"content_text":   FlattenText(item.Title, item.Content),
		"created_ts":     item.CreatedTs,
	}
	if item.Status != nil {
		payload["status"] = string(*item.Status)
	}
	if item.ExpiresTs != nil {
		payload["expires_ts"] = *item.ExpiresTs
	}
	if item.UserID != nil {
		payload["user_id"] = *item.UserID
	}

	err := s.index.Upsert(ctx, vector.MemoryCollection(item.ProjectID), []vector.Point{{
		ID:      item.ID,
		Vector:  embedding,
		Payload: payload,
	}})
	if err != nil {
		s.logger.Warn("failed to upsert memory vector point, row remains authoritative",
			"memory_item_id", item.ID, "error", err)
	}
}

// FlattenText joins the title and the content map into the single text blob
// that gets embedded. Content keys are sorted so the blob is deterministic.
func FlattenText(title string, content map[string]any) string {
	if len(content) == 0 {
		return title
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(title)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(fmt.Sprintf("%v", content[k]))
	}
	return b.String()
}
