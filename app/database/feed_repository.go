package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FeedRepo stores the watch feeds declared in the feed config directory.
type FeedRepo struct {
	db *DB
}

var _ FeedRepository = (*FeedRepo)(nil)

func NewFeedRepository(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

// UpsertFeed registers a feed by name or updates its URL and verify flag.
func (r *FeedRepo) UpsertFeed(feedName, feedURL string, verify bool) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO feeds (id, name, feed_url, verify, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			feed_url = excluded.feed_url,
			verify = excluded.verify,
			updated_at = excluded.updated_at
	`, uuid.NewString(), feedName, feedURL, verify, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

// UpdateFeedMetadata records a successful fetch and schedules the next one.
func (r *FeedRepo) UpdateFeedMetadata(feedName, title, link, description, language string,
	feedPublishedAt *time.Time, nextFetch time.Time) error {
	now := time.Now().UTC()

	res, err := r.db.Exec(`
		UPDATE feeds
		SET title = ?, link = ?, description = ?, language = ?, feed_published_at = ?,
		    last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE name = ?
	`, title, link, description, language, utcPtr(feedPublishedAt), now, nextFetch.UTC(), now, feedName)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("feed %s: %w", feedName, ErrNotFound)
	}

	return nil
}

// GetFeed returns the feed by name, or nil when it is not registered.
func (r *FeedRepo) GetFeed(feedName string) (*Feed, error) {
	var feed Feed
	err := r.db.QueryRow(`
		SELECT id, name, feed_url, verify, title, link, description, language,
		       feed_published_at, last_fetched_at, next_fetch_at, created_at, updated_at
		FROM feeds
		WHERE name = ?
	`, feedName).Scan(
		&feed.ID, &feed.Name, &feed.FeedURL, &feed.Verify, &feed.Title, &feed.Link, &feed.Description, &feed.Language,
		&feed.FeedPublishedAt, &feed.LastFetchedAt, &feed.NextFetchAt, &feed.CreatedAt, &feed.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

func (r *FeedRepo) GetFeedCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
