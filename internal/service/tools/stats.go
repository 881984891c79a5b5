package tools

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// CategoryCount is the number of tools tagged with one category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Stats summarises the directory
type Stats struct {
	TotalTools      int             `json:"totalTools"`
	TotalUpvotes    int             `json:"totalUpvotes"`
	TotalDownvotes  int             `json:"totalDownvotes"`
	WithImage       int             `json:"withImage"`
	TopCategories   []CategoryCount `json:"topCategories"`
	LastSubmittedAt *time.Time      `json:"lastSubmittedAt,omitempty"`
}

const topCategoryLimit = 10

// Stats computes directory totals from the stored tools
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	tools, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools for stats: %w", err)
	}

	stats := &Stats{TotalTools: len(tools), TopCategories: []CategoryCount{}}
	counts := make(map[string]int)

	for _, tool := range tools {
		stats.TotalUpvotes += tool.Upvotes
		stats.TotalDownvotes += tool.Downvotes
		if tool.ImageURL != nil {
			stats.WithImage++
		}
		for _, c := range tool.Categories {
			counts[c]++
		}
		if stats.LastSubmittedAt == nil || tool.SubmittedAt.After(*stats.LastSubmittedAt) {
			at := tool.SubmittedAt
			stats.LastSubmittedAt = &at
		}
	}

	for category, n := range counts {
		stats.TopCategories = append(stats.TopCategories, CategoryCount{Category: category, Count: n})
	}
	sort.Slice(stats.TopCategories, func(i, j int) bool {
		a, b := stats.TopCategories[i], stats.TopCategories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	if len(stats.TopCategories) > topCategoryLimit {
		stats.TopCategories = stats.TopCategories[:topCategoryLimit]
	}

	return stats, nil
}
