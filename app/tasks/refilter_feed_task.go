package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/feed"
)

// RefilterFeedTask re-applies the current filters of a feed to its stored
// trends.
type RefilterFeedTask struct {
	Task
	FeedConfig *feed.Config
	filterer   *feed.Filterer
	trendRepo  database.TrendRepository
}

func NewRefilterFeedTask(feedName string, feedConfig *feed.Config, filterer *feed.Filterer,
	trendRepo database.TrendRepository) *RefilterFeedTask {
	return &RefilterFeedTask{
		Task:       NewTask(TaskTypeRefilterFeed, feedName),
		FeedConfig: feedConfig,
		filterer:   filterer,
		trendRepo:  trendRepo,
	}
}

func (t *RefilterFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	trends, err := t.trendRepo.GetAllTrends(t.Subject)
	if err != nil {
		return fmt.Errorf("failed to get trends: %w", err)
	}

	items := make([]feed.Item, len(trends))
	for i, tr := range trends {
		items[i] = feed.Item{
			GUID:        tr.GUID,
			Title:       tr.Title,
			Link:        tr.Link,
			Description: tr.Description,
			Content:     tr.Content,
			PublishedAt: tr.PublishedAt,
			Categories:  tr.Categories,
			ContentHash: tr.ContentHash,
		}
	}

	updatedCount := 0
	errorCount := 0

	for i, item := range t.filterer.Run(items, t.FeedConfig) {
		original := trends[i]
		if original.IsFiltered == item.IsFiltered && original.FilterReason == item.FilterReason {
			continue
		}

		if err := t.trendRepo.UpdateTrendFilterStatus(original.ID, item.IsFiltered, item.FilterReason); err != nil {
			slog.Error("Failed to update trend filter status", "trend_id", original.ID, "error", err)
			errorCount++
		} else {
			updatedCount++
		}
	}

	slog.Info("Task completed",
		"type", "RefilterFeed",
		"feed", t.Subject,
		"duration", t.GetDuration(),
		"success", updatedCount,
		"errors", errorCount)

	return nil
}
