// Package prompt gathers turn context and renders the system and user
// prompts. Retrieval is settle-all: every sub-fetch tolerates failure and
// degrades to an empty section instead of failing the turn.
package prompt

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/vector"
	"github.com/pepavlin/agent-manager-sub000/store"
)

// DefaultRecentMessages is how many trailing thread messages are retrieved.
const DefaultRecentMessages = 20

// KnowledgeHit is one knowledge base match surfaced to the model.
type KnowledgeHit struct {
	Text     string
	Category string
	Score    float32
}

// Context is everything retrieved for one turn.
type Context struct {
	KnowledgeHits  []KnowledgeHit
	Preferences    []*store.Preference
	Lessons        []*store.Lesson
	Playbook       string
	Brief          string
	RecentMessages []*store.Message
	OpenLoops      []*store.MemoryItem
	RecentEvents   []*store.MemoryItem
	ActiveIdeas    []*store.MemoryItem
	RelevantMemory []*store.MemoryItem
	LearnedRules   []*store.MemoryItem
	RuleCount      int
}

// RetrieverStore is the subset of the store the retriever reads from.
// *store.Store satisfies it.
type RetrieverStore interface {
	GetProject(ctx context.Context, find *store.FindProject) (*store.Project, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
	ListPreferences(ctx context.Context, find *store.FindPreference) ([]*store.Preference, error)
	ListLessons(ctx context.Context, find *store.FindLesson) ([]*store.Lesson, error)
}

// Retriever assembles turn context from the store, the memory service and
// the knowledge base index.
type Retriever struct {
	store    RetrieverStore
	memory   *memory.Service
	index    vector.Index
	embedder memory.Embedder
	logger   *slog.Logger

	recentMessageLimit int
}

// NewRetriever creates a retriever.
func NewRetriever(retrieverStore RetrieverStore, memoryService *memory.Service, index vector.Index, embedder memory.Embedder, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:              retrieverStore,
		memory:             memoryService,
		index:              index,
		embedder:           embedder,
		logger:             logger,
		recentMessageLimit: DefaultRecentMessages,
	}
}

// Retrieve runs all sub-fetches concurrently and joins whatever succeeded.
// It never returns an error; failed sections come back empty.
func (r *Retriever) Retrieve(ctx context.Context, projectID, userID, query, threadID string) *Context {
	result := &Context{}

	// The query embedding feeds three sections. If it fails those sections
	// degrade together and everything else still runs.
	var queryVector []float32
	if strings.TrimSpace(query) != "" {
		vectors, err := r.embedder.Embed(ctx, []string{query})
		if err != nil {
			r.logger.Warn("failed to embed retrieval query, semantic sections degraded",
				"project_id", projectID, "error", err)
		} else {
			queryVector = vectors[0]
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if queryVector == nil {
			return nil
		}
		hits, err := r.index.Search(gctx, vector.KnowledgeCollection(projectID), queryVector, 5, nil)
		if err != nil {
			r.logger.Warn("knowledge base search failed", "project_id", projectID, "error", err)
			return nil
		}
		result.KnowledgeHits = toKnowledgeHits(hits)
		return nil
	})

	g.Go(func() error {
		active := true
		prefs, err := r.store.ListPreferences(gctx, &store.FindPreference{
			ProjectID: &projectID,
			UserID:    &userID,
			Active:    &active,
		})
		if err != nil {
			r.logger.Warn("preference fetch failed", "project_id", projectID, "error", err)
			return nil
		}
		result.Preferences = prefs
		return nil
	})

	g.Go(func() error {
		lessons, err := r.store.ListLessons(gctx, &store.FindLesson{
			ProjectID: &projectID,
			UserID:    &userID,
		})
		if err != nil {
			r.logger.Warn("lesson fetch failed", "project_id", projectID, "error", err)
			return nil
		}
		result.Lessons = lessons
		return nil
	})

	// The playbook is always surfaced, so it is fetched by recency rather
	// than by similarity to the query and survives a failed embedding.
	g.Go(func() error {
		hits, err := r.index.List(gctx, vector.KnowledgeCollection(projectID), 3,
			vector.Filter{"category": "RULES"})
		if err != nil {
			r.logger.Warn("playbook fetch failed", "project_id", projectID, "error", err)
			return nil
		}
		texts := []string{}
		for _, hit := range hits {
			if text, ok := hit.Payload["text"].(string); ok && text != "" {
				texts = append(texts, text)
			}
		}
		result.Playbook = strings.Join(texts, "\n\n")
		return nil
	})

	g.Go(func() error {
		project, err := r.store.GetProject(gctx, &store.FindProject{ID: &projectID})
		if err != nil || project == nil {
			r.logger.Warn("brief fetch failed", "project_id", projectID, "error", err)
			return nil
		}
		result.Brief = project.Brief
		return nil
	})

	g.Go(func() error {
		if threadID == "" {
			return nil
		}
		messages, err := r.store.ListMessages(gctx, &store.FindMessage{
			ThreadID: &threadID,
			Limit:    r.recentMessageLimit,
		})
		if err != nil {
			r.logger.Warn("recent message fetch failed", "thread_id", threadID, "error", err)
			return nil
		}
		result.RecentMessages = messages
		return nil
	})

	g.Go(func() error {
		r.fetchSituational(gctx, projectID, query, result)
		return nil
	})

	g.Go(func() error {
		rules, count, err := r.memory.AcceptedRules(gctx, projectID)
		if err != nil {
			r.logger.Warn("learned rule fetch failed", "project_id", projectID, "error", err)
			return nil
		}
		result.LearnedRules = rules
		result.RuleCount = count
		return nil
	})

	// Workers only return nil; Wait just joins them.
	_ = g.Wait()
	return result
}

// fetchSituational gathers the situational picture. Each piece tolerates
// failure independently.
func (r *Retriever) fetchSituational(ctx context.Context, projectID, query string, result *Context) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		loops, err := r.memory.OpenLoops(gctx, projectID, 10)
		if err != nil {
			r.logger.Warn("open loop fetch failed", "project_id", projectID, "error", err)
			return nil
		}
		result.OpenLoops = loops
		return nil
	})

	g.Go(func() error {
		events, err := r.memory.RecentEvents(gctx, projectID, 10)
		if err != nil {
			r.logger.Warn("recent event fetch failed", "project_id", projectID, "error", err)
			return nil
		}
		result.RecentEvents = events
		return nil
	})

	g.Go(func() error {
		ideas, err := r.memory.ActiveIdeas(gctx, projectID, 10)
		if err != nil {
			r.logger.Warn("active idea fetch failed", "project_id", projectID, "error", err)
			return nil
		}
		result.ActiveIdeas = ideas
		return nil
	})

	g.Go(func() error {
		if strings.TrimSpace(query) == "" {
			return nil
		}
		items, err := r.memory.Search(gctx, &memory.SearchRequest{
			ProjectID: projectID,
			Query:     query,
			Types: []store.MemoryItemType{
				store.MemoryItemTypeFact,
				store.MemoryItemTypeDecision,
				store.MemoryItemTypeLesson,
				store.MemoryItemTypePreference,
			},
			Limit: 5,
		})
		if err != nil {
			r.logger.Warn("semantic memory search failed", "project_id", projectID, "error", err)
			return nil
		}
		result.RelevantMemory = items
		return nil
	})

	_ = g.Wait()
}

func toKnowledgeHits(hits []vector.Hit) []KnowledgeHit {
	result := make([]KnowledgeHit, 0, len(hits))
	for _, hit := range hits {
		kh := KnowledgeHit{Score: hit.Score}
		if text, ok := hit.Payload["text"].(string); ok {
			kh.Text = text
		}
		if category, ok := hit.Payload["category"].(string); ok {
			kh.Category = category
		}
		if kh.Text == "" {
			continue
		}
		result = append(result, kh)
	}
	return result
}
