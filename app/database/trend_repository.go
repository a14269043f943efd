package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Failed verifications are retried until this many attempts were made.
const maxVerificationAttempts = 3

// TrendRepo stores watch feed entries and their verification results.
type TrendRepo struct {
	db *DB
}

var _ TrendRepository = (*TrendRepo)(nil)

func NewTrendRepository(db *DB) *TrendRepo {
	return &TrendRepo{db: db}
}

const trendColumns = `
	t.id, t.feed_id, t.guid, t.link, t.title, t.description, t.content, t.categories,
	t.published_at, t.detected_at, t.content_hash, t.is_filtered, t.filter_reason,
	t.verification_status, t.is_misinformation, t.verdict, t.confidence, t.verification_result,
	t.verification_error, t.verification_attempts, t.verified_at`

// CheckDuplicate reports whether the feed already holds an entry with the same
// content hash, and returns its ID.
func (r *TrendRepo) CheckDuplicate(feedName, contentHash string) (bool, *string, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT t.id
		FROM trends t
		JOIN feeds f ON f.id = t.feed_id
		WHERE f.name = ? AND t.content_hash = ?
		LIMIT 1
	`, feedName, contentHash).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to check duplicate: %w", err)
	}

	return true, &id, nil
}

// UpsertTrend stores item under the named feed. A repeated GUID refreshes the
// entry but keeps its verification state.
func (r *TrendRepo) UpsertTrend(feedName string, item TrendItem) error {
	categories, err := json.Marshal(nonNil(item.Categories))
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	publishedAt := item.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}

	_, err = r.db.Exec(`
		INSERT INTO trends (
			id, feed_id, guid, link, title, description, content, categories,
			published_at, detected_at, content_hash, is_filtered, filter_reason
		)
		SELECT ?, f.id, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		FROM feeds f
		WHERE f.name = ?
		ON CONFLICT (feed_id, guid) DO UPDATE SET
			link = excluded.link,
			title = excluded.title,
			description = excluded.description,
			content = excluded.content,
			categories = excluded.categories,
			content_hash = excluded.content_hash,
			is_filtered = excluded.is_filtered,
			filter_reason = excluded.filter_reason
	`, uuid.NewString(), item.GUID, item.Link, item.Title, item.Description, item.Content, string(categories),
		publishedAt.UTC(), time.Now().UTC(), item.ContentHash, item.IsFiltered, item.FilterReason,
		feedName)
	if err != nil {
		return fmt.Errorf("failed to upsert trend: %w", err)
	}

	return nil
}

func (r *TrendRepo) UpdateTrendFilterStatus(trendID string, isFiltered bool, reason string) error {
	_, err := r.db.Exec(`
		UPDATE trends SET is_filtered = ?, filter_reason = ? WHERE id = ?
	`, isFiltered, reason, trendID)
	if err != nil {
		return fmt.Errorf("failed to update trend filter status: %w", err)
	}
	return nil
}

// GetVisibleTrends returns the newest unfiltered entries of a feed.
func (r *TrendRepo) GetVisibleTrends(feedName string, limit int) ([]Trend, error) {
	return r.queryTrends(`
		SELECT `+trendColumns+`
		FROM trends t
		JOIN feeds f ON f.id = t.feed_id
		WHERE f.name = ? AND t.is_filtered = 0
		ORDER BY t.published_at DESC
		LIMIT ?
	`, feedName, limit)
}

// GetRecentTrends returns the newest unfiltered entries across all feeds.
func (r *TrendRepo) GetRecentTrends(limit int) ([]Trend, error) {
	return r.queryTrends(`
		SELECT `+trendColumns+`
		FROM trends t
		WHERE t.is_filtered = 0
		ORDER BY t.detected_at DESC, t.published_at DESC
		LIMIT ?
	`, limit)
}

func (r *TrendRepo) GetAllTrends(feedName string) ([]Trend, error) {
	return r.queryTrends(`
		SELECT `+trendColumns+`
		FROM trends t
		JOIN feeds f ON f.id = t.feed_id
		WHERE f.name = ?
		ORDER BY t.published_at DESC
	`, feedName)
}

// GetTrendsForVerification returns unfiltered entries that are still pending
// or whose earlier verification failed fewer than three times.
func (r *TrendRepo) GetTrendsForVerification(feedName string, limit int) ([]Trend, error) {
	return r.queryTrends(`
		SELECT `+trendColumns+`
		FROM trends t
		JOIN feeds f ON f.id = t.feed_id
		WHERE f.name = ?
		  AND t.is_filtered = 0
		  AND (t.verification_status = ? OR (t.verification_status = ? AND t.verification_attempts < ?))
		ORDER BY t.published_at DESC
		LIMIT ?
	`, feedName, VerificationPending, VerificationFailed, maxVerificationAttempts, limit)
}

// UpdateVerification records a verification attempt. Failed attempts are
// counted.
func (r *TrendRepo) UpdateVerification(trendID string, v Verification) error {
	attempt := 0
	if v.Status == VerificationFailed {
		attempt = 1
	}

	var verifiedAt *time.Time
	if v.Status == VerificationVerified {
		now := time.Now().UTC()
		verifiedAt = &now
	}

	_, err := r.db.Exec(`
		UPDATE trends
		SET verification_status = ?, is_misinformation = ?, verdict = ?, confidence = ?,
		    verification_result = ?, verification_error = ?,
		    verification_attempts = verification_attempts + ?, verified_at = ?
		WHERE id = ?
	`, v.Status, v.IsMisinformation, v.Verdict, v.Confidence, v.Result, v.Error, attempt, verifiedAt, trendID)
	if err != nil {
		return fmt.Errorf("failed to update trend verification: %w", err)
	}
	return nil
}

func (r *TrendRepo) GetTrendCount(feedName string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM trends t
		JOIN feeds f ON f.id = t.feed_id
		WHERE f.name = ?
	`, feedName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trends: %w", err)
	}
	return count, nil
}

// GetTrendStats returns the total, unfiltered and verified entry counts of a feed.
func (r *TrendRepo) GetTrendStats(feedName string) (int, int, int, error) {
	var total, visible, verified int
	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN t.is_filtered = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN t.verification_status = ? THEN 1 ELSE 0 END), 0)
		FROM trends t
		JOIN feeds f ON f.id = t.feed_id
		WHERE f.name = ?
	`, VerificationVerified, feedName).Scan(&total, &visible, &verified)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get trend stats: %w", err)
	}
	return total, visible, verified, nil
}

func (r *TrendRepo) queryTrends(query string, args ...any) ([]Trend, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trends: %w", err)
	}
	defer rows.Close()

	trends := []Trend{}
	for rows.Next() {
		var t Trend
		var categories string
		err := rows.Scan(
			&t.ID, &t.FeedID, &t.GUID, &t.Link, &t.Title, &t.Description, &t.Content, &categories,
			&t.PublishedAt, &t.DetectedAt, &t.ContentHash, &t.IsFiltered, &t.FilterReason,
			&t.VerificationStatus, &t.IsMisinformation, &t.Verdict, &t.Confidence, &t.VerificationResult,
			&t.VerificationError, &t.VerificationAttempts, &t.VerifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trend row: %w", err)
		}
		if err := json.Unmarshal([]byte(categories), &t.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
		trends = append(trends, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend rows: %w", err)
	}

	return trends, nil
}
