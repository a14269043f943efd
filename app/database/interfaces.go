package database

import (
	"time"
)

type AnalysisRepository interface {
	CreateAnalysis(a *Analysis) error
	UpdateAnalysisStatus(id, status, errMsg string) error
	CompleteAnalysis(id string, outcome AnalysisOutcome) error
	FailUnfinishedAnalyses(reason string) (int64, error)
	GetAnalysis(id string) (*Analysis, error)
	GetAnalysisStats() (map[string]int, error)
}

type FeedRepository interface {
	GetFeed(feedName string) (*Feed, error)
	GetFeedCount() (int, error)

	UpsertFeed(feedName, feedURL string, verify bool) error
	UpdateFeedMetadata(feedName, title, link, description, language string, feedPublishedAt *time.Time, nextFetch time.Time) error
}

type TrendRepository interface {
	GetVisibleTrends(feedName string, limit int) ([]Trend, error)
	GetRecentTrends(limit int) ([]Trend, error)
	GetAllTrends(feedName string) ([]Trend, error)
	GetTrendCount(feedName string) (int, error)
	GetTrendStats(feedName string) (total, visible, verified int, err error)

	UpsertTrend(feedName string, item TrendItem) error
	UpdateTrendFilterStatus(trendID string, isFiltered bool, reason string) error

	CheckDuplicate(feedName, contentHash string) (bool, *string, error)

	GetTrendsForVerification(feedName string, limit int) ([]Trend, error)
	UpdateVerification(trendID string, v Verification) error
}
