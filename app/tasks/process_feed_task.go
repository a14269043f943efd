package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/feed"
)

// ProcessFeedTask fetches a watched feed and stores its new entries as trends.
type ProcessFeedTask struct {
	Task
	FeedConfig *feed.Config
	httpClient *http.Client
	parser     *feed.Parser
	filterer   *feed.Filterer
	feedRepo   database.FeedRepository
	trendRepo  database.TrendRepository
	userAgent  string
}

func NewProcessFeedTask(feedName string, feedConfig *feed.Config, httpClient *http.Client, parser *feed.Parser,
	filterer *feed.Filterer, feedRepo database.FeedRepository, trendRepo database.TrendRepository,
	userAgent string) *ProcessFeedTask {
	return &ProcessFeedTask{
		Task:       NewTask(TaskTypeProcessFeed, feedName),
		FeedConfig: feedConfig,
		httpClient: httpClient,
		parser:     parser,
		filterer:   filterer,
		feedRepo:   feedRepo,
		trendRepo:  trendRepo,
		userAgent:  userAgent,
	}
}

func (t *ProcessFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.FeedConfig.Settings.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.Subject)
		return nil
	}

	data, err := t.fetchFeed(ctx, t.FeedConfig.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	if err := t.storeFeedMetadata(metadata); err != nil {
		return fmt.Errorf("failed to store feed metadata: %w", err)
	}

	if limit := t.FeedConfig.Settings.MaxItems; limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	duplicateCount := 0
	filteredCount := 0
	newCount := 0

	fresh := make([]feed.Item, 0, len(items))
	for _, item := range items {
		isDuplicate, _, err := t.trendRepo.CheckDuplicate(t.Subject, item.ContentHash)
		if err != nil {
			return fmt.Errorf("failed to check for duplicates: %w", err)
		}
		if isDuplicate {
			duplicateCount++
			continue
		}
		fresh = append(fresh, item)
	}

	for _, item := range t.filterer.Run(fresh, t.FeedConfig) {
		if item.IsFiltered {
			filteredCount++
		} else {
			newCount++
		}

		if err := t.trendRepo.UpsertTrend(t.Subject, toTrendItem(item)); err != nil {
			return fmt.Errorf("failed to store trend: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "ProcessFeed",
		"feed", t.Subject,
		"duration", t.GetDuration(),
		"total", len(items),
		"duplicates", duplicateCount,
		"filtered", filteredCount,
		"new", newCount)

	return nil
}

func (t *ProcessFeedTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.FeedConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (t *ProcessFeedTask) storeFeedMetadata(metadata *feed.Metadata) error {
	nextFetch := time.Now().UTC().Add(time.Duration(t.FeedConfig.Settings.RefreshInterval) * time.Second)

	err := t.feedRepo.UpdateFeedMetadata(t.Subject, metadata.Title, metadata.Link, metadata.Description,
		metadata.Language, metadata.FeedPublishedAt, nextFetch)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata and next fetch time: %w", err)
	}

	return nil
}

func toTrendItem(item feed.Item) database.TrendItem {
	return database.TrendItem{
		GUID:         item.GUID,
		Link:         item.Link,
		Title:        item.Title,
		Description:  item.Description,
		Content:      item.Content,
		Categories:   item.Categories,
		PublishedAt:  item.PublishedAt,
		ContentHash:  item.ContentHash,
		IsFiltered:   item.IsFiltered,
		FilterReason: item.FilterReason,
	}
}
