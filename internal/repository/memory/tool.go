package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"toolshed/internal/domain"
)

// ToolRepository keeps tools in process memory. It backs STORE_DRIVER=memory
// and the service tests.
type ToolRepository struct {
	mu    sync.RWMutex
	tools map[string]*domain.Tool
	byURL map[string]string
}

// NewToolRepository creates an empty repository
func NewToolRepository() *ToolRepository {
	return &ToolRepository{
		tools: make(map[string]*domain.Tool),
		byURL: make(map[string]string),
	}
}

func (r *ToolRepository) Create(ctx context.Context, tool *domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool.URLKey = tool.DedupeKey()
	if _, exists := r.byURL[tool.URLKey]; exists {
		return fmt.Errorf("failed to create tool %s: %w", tool.URL, domain.ErrDuplicateURL)
	}

	if tool.ID == "" {
		tool.ID = uuid.New().String()
	}
	if tool.SubmittedAt.IsZero() {
		tool.SubmittedAt = time.Now().UTC()
	}
	if tool.Categories == nil {
		tool.Categories = []string{}
	}

	r.tools[tool.ID] = cloneTool(tool)
	r.byURL[tool.URLKey] = tool.ID
	return nil
}

func (r *ToolRepository) GetByID(ctx context.Context, id string) (*domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTool(tool), nil
}

// GetByURL looks a tool up by its dedupe key
func (r *ToolRepository) GetByURL(ctx context.Context, url string) (*domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byURL[url]
	if !ok {
		return nil, nil
	}
	return cloneTool(r.tools[id]), nil
}

func (r *ToolRepository) Update(ctx context.Context, id string, update domain.ToolUpdate) (*domain.Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.tools[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	if update.Name != nil {
		tool.Name = *update.Name
	}
	if update.Description != nil {
		tool.Description = *update.Description
	}
	if len(update.Categories) > 0 {
		tool.Categories = append([]string(nil), update.Categories...)
	}
	if update.ImageURL != nil {
		image := *update.ImageURL
		tool.ImageURL = &image
	}
	if update.Justification != nil {
		tool.Justification = *update.Justification
	}

	updatedAt := update.LastUpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	updatedAt = updatedAt.UTC()
	tool.LastUpdatedAt = &updatedAt

	return cloneTool(tool), nil
}

func (r *ToolRepository) IncrementCounters(ctx context.Context, id string, delta domain.VoteDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.tools[id]
	if !ok {
		return domain.ErrNotFound
	}
	tool.Upvotes += delta.Upvotes
	tool.Downvotes += delta.Downvotes
	return nil
}

func (r *ToolRepository) List(ctx context.Context) ([]*domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*domain.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, cloneTool(tool))
	}
	sort.SliceStable(tools, func(i, j int) bool {
		return tools[i].SubmittedAt.After(tools[j].SubmittedAt)
	})
	return tools, nil
}

// cloneTool copies a tool so callers never share pointers with the store
func cloneTool(tool *domain.Tool) *domain.Tool {
	c := *tool
	c.Categories = append([]string{}, tool.Categories...)
	if tool.ImageURL != nil {
		image := *tool.ImageURL
		c.ImageURL = &image
	}
	if tool.LastUpdatedAt != nil {
		at := *tool.LastUpdatedAt
		c.LastUpdatedAt = &at
	}
	return &c
}
